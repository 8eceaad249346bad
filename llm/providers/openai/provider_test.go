package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/adaptiverag/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_OrganizationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "org-1", r.Header.Get("OpenAI-Organization"))
		assert.Equal(t, "Bearer sk", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"1","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{APIKey: "sk", BaseURL: srv.URL, Organization: "org-1"}, nil)

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content())
	assert.Equal(t, "openai", p.Name())
}

func TestOpenAIProvider_DefaultBaseURL(t *testing.T) {
	p := NewOpenAIProvider(Config{}, nil)
	assert.Equal(t, DefaultBaseURL, p.BaseURL())
}
