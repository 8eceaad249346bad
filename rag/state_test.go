package rag

import (
	"testing"

	"github.com/BaSui01/adaptiverag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewState(t *testing.T) {
	s := NewState("q")
	assert.Equal(t, "q", s.Question)
	assert.NotNil(t, s.Documents)
	assert.Empty(t, s.Documents)
	assert.Nil(t, s.Generation)
	assert.Equal(t, "", s.GenerationText())
}

func TestMerge_OverwritesOnlySetFields(t *testing.T) {
	gen := "old answer"
	s := State{
		Question:   "q",
		Generation: &gen,
		Documents:  []types.Document{types.NewDocument("a", map[string]any{"source": "x"})},
	}

	merged := Merge(s, Update{}.WithQuestion("q2"))
	assert.Equal(t, "q2", merged.Question)
	assert.Equal(t, "old answer", merged.GenerationText())
	assert.Equal(t, s.Documents, merged.Documents)

	merged = Merge(s, Update{}.WithDocuments(nil))
	assert.NotNil(t, merged.Documents)
	assert.Empty(t, merged.Documents)
	assert.Equal(t, "q", merged.Question)

	merged = Merge(s, Update{}.WithGeneration("new answer"))
	assert.Equal(t, "new answer", merged.GenerationText())
	assert.Equal(t, "old answer", *s.Generation)
}

func TestMerge_DoesNotAlias(t *testing.T) {
	docs := []types.Document{types.NewDocument("a", map[string]any{"k": "v"})}
	u := Update{}.WithDocuments(docs)
	docs[0].PageContent = "mutated"

	s := Merge(NewState("q"), u)
	require.Len(t, s.Documents, 1)
	assert.Equal(t, "a", s.Documents[0].PageContent)

	s.Documents[0].Metadata["k"] = "changed"
	assert.Equal(t, "v", (*u.Documents)[0].Metadata["k"])

	g := "gen"
	base := State{Question: "q", Generation: &g}
	out := Merge(base, Update{})
	*out.Generation = "other"
	assert.Equal(t, "gen", g)
}

func TestUpdate_IsEmpty(t *testing.T) {
	assert.True(t, Update{}.IsEmpty())
	assert.False(t, Update{}.WithQuestion("").IsEmpty())
	assert.False(t, Update{}.WithDocuments(nil).IsEmpty())
	assert.False(t, Update{}.WithGeneration("").IsEmpty())
}

func drawDocs(rt *rapid.T, label string) []types.Document {
	contents := rapid.SliceOfN(rapid.StringN(0, 8, -1), 0, 4).Draw(rt, label)
	docs := make([]types.Document, len(contents))
	for i, c := range contents {
		docs[i] = types.NewDocument(c, map[string]any{"i": i})
	}
	return docs
}

// Property: 未设置的字段保持不变，已设置的字段取更新值，且空更新是恒等操作。
func TestMerge_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewState(rapid.String().Draw(rt, "question"))
		s.Documents = drawDocs(rt, "docs")
		if rapid.Bool().Draw(rt, "has_gen") {
			g := rapid.String().Draw(rt, "gen")
			s.Generation = &g
		}

		var u Update
		if rapid.Bool().Draw(rt, "set_q") {
			u = u.WithQuestion(rapid.String().Draw(rt, "new_q"))
		}
		if rapid.Bool().Draw(rt, "set_docs") {
			u = u.WithDocuments(drawDocs(rt, "new_docs"))
		}
		if rapid.Bool().Draw(rt, "set_gen") {
			u = u.WithGeneration(rapid.String().Draw(rt, "new_gen"))
		}

		out := Merge(s, u)

		wantQ := s.Question
		if u.Question != nil {
			wantQ = *u.Question
		}
		if out.Question != wantQ {
			rt.Fatalf("question %q, want %q", out.Question, wantQ)
		}

		wantDocs := s.Documents
		if u.Documents != nil {
			wantDocs = *u.Documents
		}
		if !assert.ObjectsAreEqual(wantDocs, out.Documents) {
			rt.Fatalf("documents %v, want %v", out.Documents, wantDocs)
		}

		wantGen := s.GenerationText()
		if u.Generation != nil {
			wantGen = *u.Generation
		}
		if out.GenerationText() != wantGen {
			rt.Fatalf("generation %q, want %q", out.GenerationText(), wantGen)
		}

		if again := Merge(out, Update{}); !assert.ObjectsAreEqual(out, again) {
			rt.Fatalf("empty update changed state: %+v vs %+v", out, again)
		}
	})
}
