package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/adaptiverag/internal/cache"
)

// DefaultFlightTimeout 共享上游搜索的期限
const DefaultFlightTimeout = 30 * time.Second

// CacheRecorder receives cache lookup outcomes (implemented by the metrics collector).
type CacheRecorder interface {
	RecordCacheLookup(cacheName string, hit bool)
}

// CachedProvider 在 Redis 中缓存搜索结果。缓存读写失败只记录日志，不影响搜索。
// 同一个键的并发未命中只会触发一次上游搜索。
type CachedProvider struct {
	inner    WebSearchProvider
	flight   singleflight.Group
	cache    *cache.Manager
	ttl      time.Duration
	recorder CacheRecorder
	logger   *zap.Logger

	flightTimeout time.Duration
}

// NewCachedProvider wraps inner with a redis-backed result cache.
func NewCachedProvider(inner WebSearchProvider, manager *cache.Manager, ttl time.Duration, recorder CacheRecorder, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		inner:    inner,
		cache:    manager,
		ttl:      ttl,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "web_search_cache")),

		flightTimeout: DefaultFlightTimeout,
	}
}

// Name returns the wrapped provider's name.
func (p *CachedProvider) Name() string { return p.inner.Name() }

// Search serves from cache when possible.
func (p *CachedProvider) Search(ctx context.Context, query string, opts WebSearchOptions) ([]WebSearchResult, error) {
	key := searchCacheKey(p.inner.Name(), query, opts)

	var cached []WebSearchResult
	err := p.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		p.record(true)
		return cached, nil
	case cache.IsCacheMiss(err):
		p.record(false)
	default:
		p.record(false)
		p.logger.Warn("search cache read failed", zap.Error(err))
	}

	// 共享的上游调用不随任何一个调用方取消，每个调用方只按自己的 ctx 等待
	ch := p.flight.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.flightTimeout)
		defer cancel()
		results, err := p.inner.Search(sctx, query, opts)
		if err != nil {
			return nil, err
		}
		if err := p.cache.SetJSON(sctx, key, results, p.ttl); err != nil {
			p.logger.Warn("search cache write failed", zap.Error(err))
		}
		return results, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]WebSearchResult), nil
	}
}

// WithFlightTimeout bounds the upstream search shared by concurrent misses.
func (p *CachedProvider) WithFlightTimeout(d time.Duration) *CachedProvider {
	if d > 0 {
		p.flightTimeout = d
	}
	return p
}

func (p *CachedProvider) record(hit bool) {
	if p.recorder != nil {
		p.recorder.RecordCacheLookup("web_search", hit)
	}
}

func searchCacheKey(provider, query string, opts WebSearchOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s\x00%s\x00%s",
		provider,
		strings.TrimSpace(query),
		opts.MaxResults,
		opts.SearchDepth,
		strings.Join(opts.Domains, ","),
		strings.Join(opts.ExcludeDomains, ","))
	return "websearch:" + hex.EncodeToString(h.Sum(nil))
}
