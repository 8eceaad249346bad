package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/adaptiverag/llm"
	"github.com/BaSui01/adaptiverag/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Defaults(t *testing.T) {
	p := New(Config{Name: "test", BaseURL: "https://api.example.com/"}, nil)
	assert.Equal(t, "test", p.Name())
	assert.Equal(t, "https://api.example.com/v1/chat/completions", p.url)
	assert.Equal(t, defaultTimeout, p.client.Timeout)
}

func TestCompletion_Success(t *testing.T) {
	var captured providers.OpenAICompatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "adaptiverag", r.Header.Get("X-Client"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			ID:    "resp-1",
			Model: "qwen/qwen3-32b",
			Choices: []providers.OpenAICompatChoice{{
				Index:        0,
				FinishReason: "stop",
				Message:      providers.OpenAICompatMessage{Role: "assistant", Content: `{"datasource":"vectorstore"}`},
			}},
			Usage:   &providers.OpenAICompatUsage{PromptTokens: 12, CompletionTokens: 5, TotalTokens: 17},
			Created: 1700000000,
		})
	}))
	defer srv.Close()

	p := New(Config{
		Name:         "groq",
		APIKey:       "sk-test",
		BaseURL:      srv.URL + "/",
		DefaultModel: "qwen/qwen3-32b",
		Headers:      map[string]string{"X-Client": "adaptiverag"},
		Decorate: func(body *providers.OpenAICompatRequest) {
			body.ReasoningFormat = "hidden"
		},
	}, zap.NewNop())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			llm.SystemMessage("route"),
			llm.UserMessage("what is langgraph?"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "qwen/qwen3-32b", captured.Model)
	assert.Equal(t, "hidden", captured.ReasoningFormat)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "what is langgraph?", captured.Messages[1].Content)

	assert.Equal(t, "groq", resp.Provider)
	assert.Equal(t, `{"datasource":"vectorstore"}`, resp.Content())
	assert.Equal(t, 17, resp.Usage.TotalTokens)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestCompletion_HTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  llm.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, llm.ErrUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, llm.ErrRateLimited, true},
		{"quota", http.StatusBadRequest, `{"error":{"message":"insufficient quota"}}`, llm.ErrQuotaExceeded, false},
		{"upstream", http.StatusServiceUnavailable, `oops`, llm.ErrUpstreamError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := New(Config{Name: "openai", BaseURL: srv.URL, DefaultModel: "gpt-4o-mini"}, nil)
			_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage("hi")}})

			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantCode, llmErr.Code)
			assert.Equal(t, tt.retryable, llmErr.Retryable)
			assert.Equal(t, tt.status, llmErr.HTTPStatus)
			assert.Equal(t, "openai", llmErr.Provider)
		})
	}
}

func TestCompletion_RejectsEmptyRequest(t *testing.T) {
	p := New(Config{Name: "openai"}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrInvalidRequest, llmErr.Code)
}

func TestCompletion_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","model":"m","choices":[]}`))
	}))
	defer srv.Close()

	p := New(Config{Name: "openai", BaseURL: srv.URL}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage("hi")}})

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
}

func TestCompletion_RequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := New(Config{Name: "groq", BaseURL: srv.URL}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{llm.UserMessage("hi")},
		Timeout:  20 * time.Millisecond,
	})

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamTimeout, llmErr.Code)
	assert.Equal(t, http.StatusGatewayTimeout, llmErr.HTTPStatus)
	assert.True(t, llmErr.Retryable)
}
