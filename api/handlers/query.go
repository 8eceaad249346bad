package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/adaptiverag/api"
	"github.com/BaSui01/adaptiverag/rag"
	"github.com/BaSui01/adaptiverag/types"
	"github.com/BaSui01/adaptiverag/workflow"
	"go.uber.org/zap"
)

// RunIDHeader 响应头，携带本次图运行的 run id
const RunIDHeader = "X-Run-ID"

// QueryRunner 执行一次自适应 RAG 运行（*rag.Pipeline）
type QueryRunner interface {
	Execute(ctx context.Context, question string) (*workflow.Execution[rag.State], error)
}

// QueryHandler 问答处理器
type QueryHandler struct {
	runner  QueryRunner
	timeout time.Duration
	logger  *zap.Logger
}

// NewQueryHandler 创建问答处理器。timeout <= 0 时只受请求 context 约束。
func NewQueryHandler(runner QueryRunner, timeout time.Duration, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{
		runner:  runner,
		timeout: timeout,
		logger:  logger.With(zap.String("handler", "query")),
	}
}

// HandleQuery 处理 POST /agentic-query。
// 成功时 data 为最终状态；失败时只返回错误，不返回中间状态。
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req api.QueryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, types.NewInvalidRequestError("question is required"), h.logger)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	exec, err := h.runner.Execute(ctx, req.Question)
	if exec != nil {
		w.Header().Set(RunIDHeader, exec.RunID)
	}
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("query answered",
		zap.String("run_id", exec.RunID),
		zap.String("entry", string(exec.EntryLabel)),
		zap.Int("steps", len(exec.Steps)),
		zap.Int("documents", len(exec.State.Documents)),
		zap.Duration("duration", exec.Duration),
	)
	WriteSuccess(w, exec.State)
}
