package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/adaptiverag/rag"
	"github.com/BaSui01/adaptiverag/types"
	"github.com/BaSui01/adaptiverag/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRunner struct {
	exec     *workflow.Execution[rag.State]
	err      error
	question string
	deadline bool
	calls    int
}

func (s *stubRunner) Execute(ctx context.Context, question string) (*workflow.Execution[rag.State], error) {
	s.calls++
	s.question = question
	_, s.deadline = ctx.Deadline()
	return s.exec, s.err
}

func answeredExecution() *workflow.Execution[rag.State] {
	generation := "Agent memory is short-term or long-term."
	return &workflow.Execution[rag.State]{
		RunID:      "run-123",
		EntryLabel: workflow.Label(rag.RouteVectorstore),
		State: rag.State{
			Question:   "What are the types of agent memory?",
			Generation: &generation,
			Documents: []types.Document{
				{PageContent: "Short-term memory is in-context learning.", Metadata: map[string]any{"source": "https://example.com/agent"}},
			},
		},
		Steps: []workflow.Step{{Node: rag.NodeRetrieve}, {Node: rag.NodeGradeDocuments}, {Node: rag.NodeGenerate}},
	}
}

func postQuery(h *QueryHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/agentic-query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleQuery(w, req)
	return w
}

func TestQueryHandler_Success(t *testing.T) {
	runner := &stubRunner{exec: answeredExecution()}
	h := NewQueryHandler(runner, time.Minute, zap.NewNop())

	w := postQuery(h, `{"question":"What are the types of agent memory?"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-123", w.Header().Get(RunIDHeader))
	assert.Equal(t, "What are the types of agent memory?", runner.question)
	assert.True(t, runner.deadline)

	var raw struct {
		Success bool `json:"success"`
		Data    struct {
			Question   string           `json:"question"`
			Generation string           `json:"generation"`
			Documents  []types.Document `json:"documents"`
		} `json:"data"`
		Timestamp time.Time `json:"timestamp"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.True(t, raw.Success)
	assert.Equal(t, "What are the types of agent memory?", raw.Data.Question)
	assert.Equal(t, "Agent memory is short-term or long-term.", raw.Data.Generation)
	require.Len(t, raw.Data.Documents, 1)
	assert.Equal(t, "https://example.com/agent", raw.Data.Documents[0].Metadata["source"])
	assert.False(t, raw.Timestamp.IsZero())
}

func TestQueryHandler_NoTimeoutUsesRequestContext(t *testing.T) {
	runner := &stubRunner{exec: answeredExecution()}
	h := NewQueryHandler(runner, 0, nil)

	w := postQuery(h, `{"question":"q"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, runner.deadline)
}

func TestQueryHandler_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"blank question", `{"question":"   "}`},
		{"missing question", `{}`},
		{"malformed", `{"question":`},
		{"unknown field", `{"question":"q","stream":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{exec: answeredExecution()}
			w := postQuery(NewQueryHandler(runner, 0, zap.NewNop()), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, runner.calls)
			assert.Contains(t, w.Body.String(), `"code":"INVALID_REQUEST"`)
		})
	}
}

func TestQueryHandler_ErrorsNeverCarryState(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "step cap",
			err:        types.NewMaxIterationsExceededError(25),
			wantStatus: http.StatusLoopDetected,
			wantCode:   "MAX_ITERATIONS_EXCEEDED",
		},
		{
			name:       "evidence store",
			err:        fmt.Errorf("node retrieve failed: %w", types.NewEvidenceStoreUnavailableError("no evidence index at ./data/index")),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "EVIDENCE_STORE_UNAVAILABLE",
		},
		{
			name:       "classification",
			err:        fmt.Errorf("route route_question after __start__ failed: %w", types.NewClassificationParseError("bad datasource")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "CLASSIFICATION_PARSE",
		},
		{
			name:       "timeout",
			err:        types.FromContextError(context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 出错时 Execution 仍带着部分状态
			runner := &stubRunner{exec: answeredExecution(), err: tt.err}
			w := postQuery(NewQueryHandler(runner, 0, zap.NewNop()), `{"question":"q"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "run-123", w.Header().Get(RunIDHeader))

			var raw map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
			assert.Equal(t, false, raw["success"])
			assert.NotContains(t, raw, "data")
			assert.NotContains(t, w.Body.String(), "short-term")
			errInfo, ok := raw["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, errInfo["code"])
		})
	}
}

func TestQueryHandler_ErrorWithoutExecution(t *testing.T) {
	runner := &stubRunner{err: types.NewInvalidRequestError("question is required")}
	w := postQuery(NewQueryHandler(runner, 0, zap.NewNop()), `{"question":"q"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get(RunIDHeader))
}
