package rag

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/adaptiverag/llm/embedding"
	"github.com/BaSui01/adaptiverag/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 📥 证据入库
// =============================================================================

// DocumentLoader 抓取单个来源并返回文档。rag/loader.WebLoader 实现此接口。
type DocumentLoader interface {
	Load(ctx context.Context, source string) ([]types.Document, error)
}

// IngestRecorder 记录入库结果
type IngestRecorder interface {
	RecordIngestion(status string, chunks int, duration time.Duration)
}

// IngestRequest 入库请求。非正的分块参数回落到配置值。
type IngestRequest struct {
	URLs         []string `json:"urls"`
	ChunkSize    int      `json:"chunk_size,omitempty"`
	ChunkOverlap int      `json:"chunk_overlap,omitempty"`
}

// IngestResult 入库结果
type IngestResult struct {
	Sources   []string      `json:"sources"`
	Chunks    int           `json:"chunks"`
	IndexPath string        `json:"index_path"`
	Duration  time.Duration `json:"duration"`
}

// IngestorConfig 入库配置
type IngestorConfig struct {
	Chunking         ChunkingConfig `json:"chunking"`
	FetchConcurrency int            `json:"fetch_concurrency"`
}

// DefaultIngestorConfig 默认入库配置
func DefaultIngestorConfig() IngestorConfig {
	return IngestorConfig{
		Chunking:         DefaultChunkingConfig(),
		FetchConcurrency: 4,
	}
}

// Ingestor 抓取、分块、嵌入并替换证据索引。同一时刻只有一个入库在写。
type Ingestor struct {
	store    *EvidenceStore
	loader   DocumentLoader
	embedder embedding.Provider
	config   IngestorConfig
	recorder IngestRecorder
	logger   *zap.Logger

	// 单写信号量
	sem chan struct{}
}

// NewIngestor 创建入库器
func NewIngestor(store *EvidenceStore, loader DocumentLoader, embedder embedding.Provider, config IngestorConfig, recorder IngestRecorder, logger *zap.Logger) (*Ingestor, error) {
	switch {
	case store == nil:
		return nil, types.NewError(types.ErrConfiguration, "ingestor requires an evidence store")
	case loader == nil:
		return nil, types.NewError(types.ErrConfiguration, "ingestor requires a document loader")
	case embedder == nil:
		return nil, types.NewError(types.ErrConfiguration, "ingestor requires an embedder")
	}
	if config.Chunking.ChunkSize <= 0 {
		config.Chunking = DefaultChunkingConfig()
	}
	if err := config.Chunking.Validate(); err != nil {
		return nil, types.NewError(types.ErrConfiguration, err.Error())
	}
	if config.FetchConcurrency <= 0 {
		config.FetchConcurrency = DefaultIngestorConfig().FetchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		store:    store,
		loader:   loader,
		embedder: embedder,
		config:   config,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "ingestor")),
		sem:      make(chan struct{}, 1),
	}, nil
}

// Ingest 执行一次完整入库。失败时不写任何内容，旧索引保持可用。
func (in *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	start := time.Now()
	result, err := in.ingest(ctx, req)

	status := "success"
	chunks := 0
	if err != nil {
		status = string(types.AsError(err).Code)
	} else {
		chunks = result.Chunks
		result.Duration = time.Since(start)
	}
	if in.recorder != nil {
		in.recorder.RecordIngestion(status, chunks, time.Since(start))
	}
	return result, err
}

func (in *Ingestor) ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	urls := normalizeURLs(req.URLs)
	if len(urls) == 0 {
		return nil, types.NewInvalidRequestError("no urls provided")
	}

	chunking := in.config.Chunking
	if req.ChunkSize > 0 {
		chunking.ChunkSize = req.ChunkSize
	}
	if req.ChunkOverlap > 0 {
		chunking.ChunkOverlap = req.ChunkOverlap
	}
	chunker, err := NewDocumentChunker(chunking, in.logger)
	if err != nil {
		return nil, types.NewInvalidRequestError(err.Error())
	}

	select {
	case in.sem <- struct{}{}:
		defer func() { <-in.sem }()
	case <-ctx.Done():
		return nil, types.FromContextError(ctx.Err())
	}

	docs, err := in.fetchAll(ctx, urls)
	if err != nil {
		return nil, err
	}

	chunks := chunker.SplitDocuments(docs)
	if len(chunks) == 0 {
		return nil, types.NewInvalidRequestError("no text could be extracted from the given urls")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.PageContent
	}
	vectors, err := in.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.FromContextError(ctx.Err())
		}
		return nil, types.NewError(types.ErrUpstreamError, "embed chunks").
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(in.embedder.Name())
	}
	if len(vectors) != len(chunks) {
		return nil, types.NewInternalError(fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	identity := in.store.Identity()
	idx := &Index{
		Manifest: IndexManifest{
			FormatVersion:  IndexFormatVersion,
			EmbeddingModel: identity.Model,
			Dimensions:     identity.Dimensions,
			ChunkSize:      chunking.ChunkSize,
			ChunkOverlap:   chunking.ChunkOverlap,
			ChunkCount:     len(chunks),
			Sources:        urls,
			CreatedAt:      time.Now().UTC(),
		},
		Chunks: make([]Chunk, len(chunks)),
	}
	for i, doc := range chunks {
		if len(vectors[i]) != identity.Dimensions {
			return nil, types.NewInternalError(fmt.Sprintf("embedding %d has %d dimensions, expected %d", i, len(vectors[i]), identity.Dimensions))
		}
		idx.Chunks[i] = Chunk{
			ID:        chunkID(doc.Source(), i, doc.PageContent),
			Document:  doc,
			Embedding: vectors[i],
		}
	}

	if err := in.store.Replace(ctx, idx); err != nil {
		return nil, err
	}

	in.logger.Info("ingestion completed",
		zap.Int("sources", len(urls)),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))

	return &IngestResult{
		Sources:   urls,
		Chunks:    len(chunks),
		IndexPath: in.store.IndexPath(),
	}, nil
}

// fetchAll 并发抓取，结果按输入顺序拼接。
func (in *Ingestor) fetchAll(ctx context.Context, urls []string) ([]types.Document, error) {
	results := make([][]types.Document, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.config.FetchConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			docs, err := in.loader.Load(gctx, u)
			if err != nil {
				if types.IsErrorCode(err, types.ErrSourceFetchFailed) || types.IsErrorCode(err, types.ErrInvalidRequest) {
					return err
				}
				if ctx.Err() != nil {
					return types.FromContextError(ctx.Err())
				}
				return types.NewSourceFetchError(u).WithCause(err)
			}
			results[i] = docs
			in.logger.Debug("source fetched", zap.String("url", u), zap.Int("documents", len(docs)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []types.Document
	for _, r := range results {
		docs = append(docs, r...)
	}
	return docs, nil
}

// normalizeURLs 去空白、去重并保持顺序
func normalizeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// chunkID 由来源、位置和内容派生的确定性 ID
func chunkID(source string, position int, content string) string {
	name := fmt.Sprintf("%s#%d#%s", source, position, content)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
