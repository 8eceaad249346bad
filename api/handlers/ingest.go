package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/BaSui01/adaptiverag/api"
	"github.com/BaSui01/adaptiverag/rag"
	"go.uber.org/zap"
)

// Ingestor 构建并替换证据索引（*rag.Ingestor）
type Ingestor interface {
	Ingest(ctx context.Context, req rag.IngestRequest) (*rag.IngestResult, error)
}

// IngestHandler 入库处理器
type IngestHandler struct {
	ingestor Ingestor
	logger   *zap.Logger
}

// NewIngestHandler 创建入库处理器
func NewIngestHandler(ingestor Ingestor, logger *zap.Logger) *IngestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{
		ingestor: ingestor,
		logger:   logger.With(zap.String("handler", "ingest")),
	}
}

// HandleIngest 处理 POST /save-data-vectordb
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req api.IngestRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	// db_path 仅为兼容旧前端而接受
	if req.DBPath != "" {
		h.logger.Warn("db_path is ignored, the index path is server configuration",
			zap.String("db_path", req.DBPath))
	}

	result, err := h.ingestor.Ingest(r.Context(), rag.IngestRequest{
		URLs:         req.URLs,
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, api.IngestResponse{
		Status:    "success",
		Message:   fmt.Sprintf("indexed %d chunks from %d sources", result.Chunks, len(result.Sources)),
		Sources:   result.Sources,
		Chunks:    result.Chunks,
		IndexPath: result.IndexPath,
	})
}
