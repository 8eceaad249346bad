package rag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BaSui01/adaptiverag/testutil"
	"github.com/BaSui01/adaptiverag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptSet(t *testing.T) {
	p := DefaultPromptSet("")
	require.NoError(t, p.Validate())
	assert.Equal(t, PromptSetVersion, p.Version)
	assert.Contains(t, p.RouterSystem, "related to langgraph")

	scoped := DefaultPromptSet("agents, prompt engineering")
	assert.Contains(t, scoped.RouterSystem, "related to agents, prompt engineering")
	assert.NotEqual(t, p.Checksum(), scoped.Checksum())
}

func TestPromptSet_ChecksumIsStable(t *testing.T) {
	a, b := DefaultPromptSet(""), DefaultPromptSet("")
	assert.Equal(t, a.Checksum(), b.Checksum())
	assert.Len(t, a.Checksum(), 64)

	b.RAGTemplate += " "
	assert.NotEqual(t, a.Checksum(), b.Checksum())
}

func TestPromptSet_Verify(t *testing.T) {
	p := DefaultPromptSet("")
	require.NoError(t, p.Verify(""))
	require.NoError(t, p.Verify(strings.ToUpper(p.Checksum())))

	err := p.Verify("deadbeef")
	testutil.AssertErrorCode(t, err, types.ErrConfiguration)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestPromptSet_ValidateMissingPlaceholder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PromptSet)
		want   string
	}{
		{"rag context", func(p *PromptSet) { p.RAGTemplate = "Question: {question}" }, "{context}"},
		{"relevance question", func(p *PromptSet) { p.RelevanceHuman = "{document}" }, "{question}"},
		{"hallucination generation", func(p *PromptSet) { p.HallucinationHuman = "{documents}" }, "{generation}"},
		{"empty router", func(p *PromptSet) { p.RouterSystem = "  " }, "router system is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPromptSet("")
			tt.mutate(&p)
			err := p.Validate()
			testutil.AssertErrorCode(t, err, types.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPromptSet_WithRAGTemplateFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "rag.txt")
	require.NoError(t, os.WriteFile(good, []byte("Context:\n{context}\n\nQ: {question}\nA:"), 0o600))

	p, err := DefaultPromptSet("").WithRAGTemplateFile(good)
	require.NoError(t, err)
	assert.Equal(t, "Context:\n{context}\n\nQ: {question}\nA:", p.RAGTemplate)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("no placeholders"), 0o600))
	_, err = DefaultPromptSet("").WithRAGTemplateFile(bad)
	testutil.AssertErrorCode(t, err, types.ErrConfiguration)

	_, err = DefaultPromptSet("").WithRAGTemplateFile(filepath.Join(dir, "missing.txt"))
	testutil.AssertErrorCode(t, err, types.ErrConfiguration)
}

func TestRender_SinglePass(t *testing.T) {
	got := render("Q: {question} C: {context}", map[string]string{
		"question": "what is {context}?",
		"context":  "facts",
	})
	assert.Equal(t, "Q: what is {context}? C: facts", got)
}
