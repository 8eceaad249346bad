package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/adaptiverag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"message":"hello"}`, w.Body.String())
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"key": "value"}, resp.Data)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "typed error keeps its status",
			err:        types.NewEvidenceStoreUnavailableError("no evidence index at ./data/index"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "EVIDENCE_STORE_UNAVAILABLE",
		},
		{
			name:       "wrapped typed error",
			err:        fmt.Errorf("node retrieve failed: %w", types.NewWebSearchUnavailableError("search down")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "WEB_SEARCH_UNAVAILABLE",
		},
		{
			name:       "status derived from code",
			err:        types.NewError(types.ErrMaxIterationsExceeded, "cap"),
			wantStatus: http.StatusLoopDetected,
			wantCode:   "MAX_ITERATIONS_EXCEEDED",
		},
		{
			name:       "plain error is internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
		{
			name:       "context deadline is a timeout",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "TIMEOUT",
		},
		{
			name:       "context canceled",
			err:        context.Canceled,
			wantStatus: types.StatusClientClosedRequest,
			wantCode:   "RUN_CANCELED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Nil(t, resp.Data)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestWriteError_EnvelopeShape(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "question is required", nil)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, false, raw["success"])
	assert.NotContains(t, raw, "data")
	assert.Equal(t, map[string]any{"code": "INVALID_REQUEST", "message": "question is required"}, raw["error"])
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code types.ErrorCode
		want int
	}{
		{types.ErrInvalidRequest, http.StatusBadRequest},
		{types.ErrUnauthorized, http.StatusUnauthorized},
		{types.ErrRateLimited, http.StatusTooManyRequests},
		{types.ErrRunCanceled, 499},
		{types.ErrTimeout, http.StatusGatewayTimeout},
		{types.ErrEvidenceStoreUnavailable, http.StatusServiceUnavailable},
		{types.ErrClassificationParse, http.StatusBadGateway},
		{types.ErrWebSearchUnavailable, http.StatusBadGateway},
		{types.ErrJudgmentServiceUnavailable, http.StatusBadGateway},
		{types.ErrSourceFetchFailed, http.StatusBadGateway},
		{types.ErrMaxIterationsExceeded, 508},
		{types.ErrGraphConfiguration, http.StatusInternalServerError},
		{types.ErrInternalError, http.StatusInternalServerError},
		{types.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, mapErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Question string `json:"question"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
		wantMsg string
	}{
		{name: "valid", body: `{"question":"what is an agent?"}`},
		{name: "empty", body: "", wantErr: true, wantMsg: "request body is empty"},
		{name: "malformed", body: `{"question":`, wantErr: true, wantMsg: "invalid JSON body"},
		{name: "unknown field", body: `{"question":"q","extra":1}`, wantErr: true, wantMsg: "invalid JSON body"},
		{
			name:    "too large",
			body:    `{"question":"` + strings.Repeat("a", MaxRequestBodyBytes) + `"}`,
			wantErr: true,
			wantMsg: "request body too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			req := httptest.NewRequest(http.MethodPost, "/agentic-query", nil)
			if tt.body != "" {
				body = strings.NewReader(tt.body)
				req = httptest.NewRequest(http.MethodPost, "/agentic-query", body)
			}
			w := httptest.NewRecorder()

			var dst payload
			err := DecodeJSONBody(w, req, &dst, zap.NewNop())
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "what is an agent?", dst.Question)
				return
			}

			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
		})
	}
}
