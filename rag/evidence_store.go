package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/adaptiverag/llm/embedding"
	"github.com/BaSui01/adaptiverag/types"
	"go.uber.org/zap"
)

// DefaultTopK 检索返回的默认文档数
const DefaultTopK = 4

// EvidenceStoreConfig 证据库配置
type EvidenceStoreConfig struct {
	IndexPath string `json:"index_path"`
	TopK      int    `json:"top_k"`
}

// EvidenceStore 持久化索引之上的检索服务。
// 首次检索时惰性加载索引；入库通过 Replace 原子替换。并发读由 RWMutex 保护。
type EvidenceStore struct {
	config   EvidenceStoreConfig
	embedder embedding.Provider
	logger   *zap.Logger

	mu       sync.RWMutex
	store    *vectorIndex
	manifest *IndexManifest
}

// NewEvidenceStore 创建证据库，不会立即加载索引。
func NewEvidenceStore(config EvidenceStoreConfig, embedder embedding.Provider, logger *zap.Logger) (*EvidenceStore, error) {
	if embedder == nil {
		return nil, types.NewError(types.ErrConfiguration, "evidence store requires an embedder")
	}
	if config.IndexPath == "" {
		return nil, types.NewError(types.ErrConfiguration, "evidence store requires an index path")
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvidenceStore{
		config:   config,
		embedder: embedder,
		logger:   logger.With(zap.String("component", "evidence_store")),
	}, nil
}

// Identity 当前嵌入器对应的索引身份
func (e *EvidenceStore) Identity() IndexIdentity {
	return IndexIdentity{Model: e.embedder.Model(), Dimensions: e.embedder.Dimensions()}
}

// IndexPath 返回索引目录
func (e *EvidenceStore) IndexPath() string { return e.config.IndexPath }

// TopK 返回检索条数
func (e *EvidenceStore) TopK() int { return e.config.TopK }

// Manifest 返回已加载索引的清单。
func (e *EvidenceStore) Manifest() (IndexManifest, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.manifest == nil {
		return IndexManifest{}, false
	}
	return *e.manifest, true
}

// Retrieve 嵌入 query 并返回 top-k 文档，按相似度降序。
func (e *EvidenceStore) Retrieve(ctx context.Context, query string) ([]types.Document, error) {
	store, err := e.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, types.NewEvidenceStoreUnavailableError("embed query").
			WithCause(err).
			WithProvider(e.embedder.Name())
	}

	hits, err := store.Search(vec, e.config.TopK)
	if err != nil {
		return nil, types.NewEvidenceStoreUnavailableError("search evidence index").WithCause(err)
	}

	docs := make([]types.Document, len(hits))
	for i, h := range hits {
		docs[i] = h.Chunk.Document.Clone()
	}
	e.logger.Debug("evidence retrieved",
		zap.Int("documents", len(docs)),
		zap.Int("top_k", e.config.TopK))
	return docs, nil
}

// Replace 持久化新索引并替换内存中的索引。写盘失败时保持旧索引。
func (e *EvidenceStore) Replace(ctx context.Context, idx *Index) error {
	if idx == nil {
		return types.NewInvalidRequestError("index is nil")
	}
	if got, want := idx.Manifest.Identity(), e.Identity(); got != want {
		return types.NewInternalError(fmt.Sprintf("index identity %s does not match embedder %s", got, want))
	}

	store, err := buildVectorIndex(idx)
	if err != nil {
		return err
	}
	if err := SaveIndex(ctx, e.config.IndexPath, idx, e.logger); err != nil {
		return err
	}

	manifest := idx.Manifest
	e.mu.Lock()
	e.store = store
	e.manifest = &manifest
	e.mu.Unlock()

	e.logger.Info("evidence index replaced",
		zap.Int("chunks", len(idx.Chunks)),
		zap.Strings("sources", manifest.Sources))
	return nil
}

// Reload 从磁盘重新加载索引。
func (e *EvidenceStore) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.loadLocked(ctx)
	return err
}

// Check 就绪检查：索引已加载或可加载。
func (e *EvidenceStore) Check(ctx context.Context) error {
	_, err := e.ensureLoaded(ctx)
	return err
}

func (e *EvidenceStore) ensureLoaded(ctx context.Context) (*vectorIndex, error) {
	e.mu.RLock()
	store := e.store
	e.mu.RUnlock()
	if store != nil {
		return store, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store != nil {
		return e.store, nil
	}
	return e.loadLocked(ctx)
}

// loadLocked 需持有写锁。失败不缓存，下一次检索会重试加载。
func (e *EvidenceStore) loadLocked(ctx context.Context) (*vectorIndex, error) {
	idx, err := LoadIndex(ctx, e.config.IndexPath, e.Identity(), e.logger)
	if err != nil {
		return nil, err
	}
	store, err := buildVectorIndex(idx)
	if err != nil {
		return nil, err
	}
	manifest := idx.Manifest
	e.store = store
	e.manifest = &manifest
	e.logger.Info("evidence index loaded",
		zap.String("path", e.config.IndexPath),
		zap.Int("chunks", len(idx.Chunks)))
	return store, nil
}

func buildVectorIndex(idx *Index) (*vectorIndex, error) {
	vi, err := newVectorIndex(idx.Chunks)
	if err != nil {
		return nil, types.NewEvidenceStoreUnavailableError("build vector index").WithCause(err)
	}
	return vi, nil
}
