package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/BaSui01/adaptiverag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func newTestChunker(t *testing.T, size, overlap int) *DocumentChunker {
	t.Helper()
	c, err := NewDocumentChunker(ChunkingConfig{ChunkSize: size, ChunkOverlap: overlap}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestChunkingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChunkingConfig
		wantErr bool
	}{
		{"default", DefaultChunkingConfig(), false},
		{"zero size", ChunkingConfig{ChunkSize: 0}, true},
		{"negative overlap", ChunkingConfig{ChunkSize: 10, ChunkOverlap: -1}, true},
		{"overlap equals size", ChunkingConfig{ChunkSize: 10, ChunkOverlap: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocumentChunker(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultChunkingConfig(t *testing.T) {
	cfg := DefaultChunkingConfig()
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, []string{"\n\n", "\n", " ", ""}, cfg.Separators)
}

func TestSplitText_ShortTextIsSingleChunk(t *testing.T) {
	c := newTestChunker(t, 100, 10)
	assert.Equal(t, []string{"hello world"}, c.SplitText("  hello world \n"))
	assert.Empty(t, c.SplitText(""))
	assert.Empty(t, c.SplitText("   \n\n  "))
}

func TestSplitText_WordsWithOverlap(t *testing.T) {
	c := newTestChunker(t, 10, 4)
	chunks := c.SplitText("foo bar baz qux")
	// "foo bar" (7) 放不下 " baz"，重叠保留 " bar"
	assert.Equal(t, []string{"foo bar", "bar baz", "baz qux"}, chunks)
}

func TestSplitText_PrefersParagraphs(t *testing.T) {
	c := newTestChunker(t, 20, 0)
	chunks := c.SplitText("first paragraph\n\nsecond paragraph")
	assert.Equal(t, []string{"first paragraph", "second paragraph"}, chunks)
}

func TestSplitText_FallsBackToCharacters(t *testing.T) {
	c := newTestChunker(t, 4, 0)
	chunks := c.SplitText("abcdefghij")
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)
}

func TestSplitText_CountsRunes(t *testing.T) {
	c := newTestChunker(t, 3, 0)
	chunks := c.SplitText("检索增强生成")
	assert.Equal(t, []string{"检索增", "强生成"}, chunks)
}

func TestSplitDocuments_CopiesMetadata(t *testing.T) {
	c := newTestChunker(t, 10, 0)
	src := types.NewDocument("alpha beta gamma delta", map[string]any{"source": "https://example.com"})
	chunks := c.SplitDocuments([]types.Document{src})

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.Equal(t, "https://example.com", ch.Source())
	}
	chunks[0].Metadata["source"] = "mutated"
	assert.Equal(t, "https://example.com", src.Source())
	assert.Equal(t, "https://example.com", chunks[1].Source())
}

// Property: no chunk exceeds the size, no chunk is blank, and short words survive intact.
func TestSplitText_BoundsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(2, 60).Draw(rt, "size")
		overlap := rapid.IntRange(0, size-1).Draw(rt, "overlap")
		words := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 40).Draw(rt, "words")
		seps := rapid.SliceOfN(rapid.SampledFrom([]string{" ", "\n", "\n\n"}), len(words), len(words)).Draw(rt, "seps")

		var b strings.Builder
		for i, w := range words {
			b.WriteString(w)
			b.WriteString(seps[i])
		}
		text := b.String()

		c, err := NewDocumentChunker(ChunkingConfig{ChunkSize: size, ChunkOverlap: overlap}, nil)
		if err != nil {
			rt.Fatalf("new chunker: %v", err)
		}
		chunks := c.SplitText(text)
		joined := strings.Join(chunks, " ")
		for _, ch := range chunks {
			if n := utf8.RuneCountInString(ch); n > size {
				rt.Fatalf("chunk %q has %d runes, limit %d", ch, n, size)
			}
			if strings.TrimSpace(ch) == "" {
				rt.Fatalf("blank chunk")
			}
		}
		for _, w := range words {
			// 片段带至多两字符的分隔符前缀，短于上限的词不会被拆开
			if len(w)+2 < size && !strings.Contains(joined, w) {
				rt.Fatalf("word %q lost", w)
			}
		}
	})
}
