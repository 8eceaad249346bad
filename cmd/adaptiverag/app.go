package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/adaptiverag/config"
	"github.com/BaSui01/adaptiverag/internal/cache"
	"github.com/BaSui01/adaptiverag/internal/metrics"
	"github.com/BaSui01/adaptiverag/llm"
	"github.com/BaSui01/adaptiverag/llm/embedding"
	"github.com/BaSui01/adaptiverag/llm/providers/groq"
	"github.com/BaSui01/adaptiverag/llm/providers/openai"
	"github.com/BaSui01/adaptiverag/llm/tools"
	"github.com/BaSui01/adaptiverag/rag"
	"github.com/BaSui01/adaptiverag/rag/loader"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// App 持有一次进程生命周期内的全部协作方，由配置一次性构建。
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector

	embedder embedding.Provider
	store    *rag.EvidenceStore
	ingestor *rag.Ingestor

	// 以下仅在 withPipeline 时构建
	pipeline *rag.Pipeline
	cache    *cache.Manager
}

type appOptions struct {
	pipeline bool
	tracer   trace.Tracer
}

type appOption func(*appOptions)

// withTracer 图运行 span 使用的 tracer，缺省用全局 provider
func withTracer(t trace.Tracer) appOption {
	return func(o *appOptions) { o.tracer = t }
}

// newApp 构建证据索引与入库组件；withPipeline 时再构建判定、生成与搜索。
func newApp(cfg *config.Config, collector *metrics.Collector, logger *zap.Logger, withPipeline bool, options ...appOption) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		return nil, fmt.Errorf("metrics collector is required")
	}
	opts := appOptions{pipeline: withPipeline}
	for _, o := range options {
		o(&opts)
	}

	if err := checkCredentials(cfg, opts); err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, logger: logger, metrics: collector}

	app.embedder = embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
		Timeout:    cfg.Embedding.Timeout,
	})

	store, err := rag.NewEvidenceStore(rag.EvidenceStoreConfig{
		IndexPath: cfg.Index.Path,
		TopK:      cfg.Index.TopK,
	}, app.embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("create evidence store: %w", err)
	}
	app.store = store

	webLoader := loader.NewWebLoader(loader.WebLoaderConfig{
		Timeout:      cfg.Loader.Timeout,
		MaxBodyBytes: cfg.Loader.MaxBodyBytes,
		UserAgent:    cfg.Loader.UserAgent,
	}, logger)

	ingestor, err := rag.NewIngestor(store, webLoader, app.embedder, rag.IngestorConfig{
		Chunking: rag.ChunkingConfig{
			ChunkSize:    cfg.Index.ChunkSize,
			ChunkOverlap: cfg.Index.ChunkOverlap,
		},
		FetchConcurrency: cfg.Index.FetchConcurrency,
	}, collector, logger)
	if err != nil {
		return nil, fmt.Errorf("create ingestor: %w", err)
	}
	app.ingestor = ingestor

	if !opts.pipeline {
		return app, nil
	}
	if err := app.buildPipeline(opts.tracer); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// checkCredentials 入库只需要嵌入密钥，问答需要全部密钥
func checkCredentials(cfg *config.Config, opts appOptions) error {
	if opts.pipeline {
		return cfg.ValidateCredentials()
	}
	if cfg.Embedding.APIKey == "" {
		return fmt.Errorf("missing credentials: embedding.api_key")
	}
	return nil
}

func (a *App) buildPipeline(tracer trace.Tracer) error {
	cfg := a.cfg

	judge, err := newChatProvider("judge", cfg.LLM.Judge, cfg, a.metrics, a.logger)
	if err != nil {
		return err
	}
	generator, err := newChatProvider("generator", cfg.LLM.Generator, cfg, a.metrics, a.logger)
	if err != nil {
		return err
	}

	search, err := a.newWebSearch()
	if err != nil {
		return err
	}

	prompts := rag.DefaultPromptSet(cfg.Pipeline.VectorstoreTopics)
	if cfg.Prompts.RAGTemplateFile != "" {
		if prompts, err = prompts.WithRAGTemplateFile(cfg.Prompts.RAGTemplateFile); err != nil {
			return err
		}
	}
	if err := prompts.Verify(cfg.Prompts.Checksum); err != nil {
		return err
	}

	pipelineOpts := []rag.PipelineOption{rag.WithStepRecorder(a.metrics)}
	if tracer != nil {
		pipelineOpts = append(pipelineOpts, rag.WithTracer(tracer))
	}
	pipeline, err := rag.NewPipeline(rag.Dependencies{
		Judge:     judge,
		Generator: generator,
		Retriever: a.store,
		WebSearch: search,
	}, prompts, rag.PipelineConfig{
		MaxSteps: cfg.Pipeline.MaxSteps,
		Nodes: rag.NodeConfig{
			JudgeModel:           cfg.LLM.Judge.Model,
			GeneratorModel:       cfg.LLM.Generator.Model,
			GeneratorTemperature: float32(cfg.LLM.Generator.Temperature),
			GradeConcurrency:     cfg.Pipeline.GradeConcurrency,
			WebMaxResults:        cfg.Search.MaxResults,
			CallTimeout:          cfg.Pipeline.CallTimeout,
		},
	}, a.logger, pipelineOpts...)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	a.pipeline = pipeline

	a.logger.Info("pipeline ready",
		zap.String("prompt_version", prompts.Version),
		zap.String("prompt_checksum", prompts.Checksum()),
		zap.String("judge_model", cfg.LLM.Judge.Model),
		zap.String("generator_model", cfg.LLM.Generator.Model),
		zap.String("search", search.Name()),
		zap.Int("max_steps", pipeline.MaxSteps()))
	return nil
}

// newChatProvider 按 provider 名称创建对话服务，并套上令牌桶限流
func newChatProvider(role string, mc config.ModelConfig, cfg *config.Config, recorder llm.CallRecorder, logger *zap.Logger) (llm.Provider, error) {
	var inner llm.Provider
	switch mc.Provider {
	case "groq":
		inner = groq.NewGroqProvider(groq.Config{
			APIKey:          mc.APIKey,
			BaseURL:         mc.BaseURL,
			Model:           mc.Model,
			Timeout:         mc.Timeout,
			ReasoningFormat: mc.ReasoningFormat,
		}, logger)
	case "openai":
		inner = openai.NewOpenAIProvider(openai.Config{
			APIKey:  mc.APIKey,
			BaseURL: mc.BaseURL,
			Model:   mc.Model,
			Timeout: mc.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("llm.%s: unsupported provider %q", role, mc.Provider)
	}

	return llm.NewRateLimitedProvider(inner, llm.RateLimitConfig{
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
		CallTimeout:       cfg.Pipeline.CallTimeout,
	}, recorder, logger.With(zap.String("role", role))), nil
}

// newWebSearch 创建搜索后端；启用 Redis 时包一层结果缓存
func (a *App) newWebSearch() (tools.WebSearchProvider, error) {
	cfg := a.cfg
	if !cfg.Search.Enabled {
		a.logger.Warn("web search disabled, web_search routes will fail")
		return tools.DisabledProvider{}, nil
	}

	var search tools.WebSearchProvider
	switch cfg.Search.Provider {
	case "tavily":
		search = tools.NewTavilyProvider(tools.TavilyConfig{
			APIKey:  cfg.Search.APIKey,
			BaseURL: cfg.Search.BaseURL,
			Timeout: cfg.Search.Timeout,
		}, a.logger)
	default:
		return nil, fmt.Errorf("search: unsupported provider %q", cfg.Search.Provider)
	}

	if !cfg.Redis.Enabled {
		return search, nil
	}
	cacheCfg := cache.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		KeyPrefix:    cfg.Redis.KeyPrefix,
		DefaultTTL:   cfg.Search.CacheTTL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}
	manager, err := cache.NewManager(cacheCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.cache = manager
	return tools.NewCachedProvider(search, manager, cfg.Search.CacheTTL, a.metrics, a.logger).
		WithFlightTimeout(cfg.Search.Timeout), nil
}

// readinessChecks 返回 /ready 使用的检查项
func (a *App) readinessChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"evidence_index": a.store.Check,
	}
	if a.cache != nil {
		checks["redis"] = a.cache.Ping
	}
	return checks
}

// Close 释放外部连接
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
}
