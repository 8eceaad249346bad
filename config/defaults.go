package config

import "time"

// DefaultConfig 返回未经任何覆盖的配置，加载器以它为底
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		LLM:       DefaultLLMConfig(),
		Embedding: DefaultEmbeddingConfig(),
		Search:    DefaultSearchConfig(),
		Pipeline:  DefaultPipelineConfig(),
		Prompts:   PromptsConfig{},
		Index:     DefaultIndexConfig(),
		Loader:    DefaultLoaderConfig(),
		Redis:     DefaultRedisConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 的 WriteTimeout 要盖住 RequestTimeout，否则长查询的响应会被截断
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:           8000,
		MetricsPort:        9091,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       6 * time.Minute,
		IdleTimeout:        2 * time.Minute,
		ShutdownTimeout:    15 * time.Second,
		RequestTimeout:     5 * time.Minute,
		RateLimitRPS:       10,
		RateLimitBurst:     20,
		CORSAllowedOrigins: []string{"*"},
		StaticDir:          "./static",
	}
}

func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Judge:             DefaultModelConfig(),
		Generator:         DefaultModelConfig(),
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// DefaultModelConfig 判定与生成共用 groq 上的 qwen3，推理内容隐藏
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Provider:        "groq",
		Model:           "qwen/qwen3-32b",
		Timeout:         60 * time.Second,
		ReasoningFormat: "hidden",
	}
}

func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:   "openai",
		Model:      "text-embedding-3-large",
		Dimensions: 1024,
		BatchSize:  256,
		Timeout:    60 * time.Second,
	}
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Enabled:    true,
		Provider:   "tavily",
		MaxResults: 5,
		Timeout:    30 * time.Second,
		CacheTTL:   10 * time.Minute,
	}
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxSteps:          25,
		GradeConcurrency:  4,
		CallTimeout:       60 * time.Second,
		VectorstoreTopics: "langgraph",
	}
}

// DefaultIndexConfig 500/50 的切块与 top-4 检索
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Path:             "./data/index",
		TopK:             4,
		ChunkSize:        500,
		ChunkOverlap:     50,
		FetchConcurrency: 4,
		WatchInterval:    5 * time.Second,
	}
}

func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		Timeout:      30 * time.Second,
		MaxBodyBytes: 20 << 20,
		UserAgent:    "adaptiverag/1.0",
	}
}

// DefaultRedisConfig 缓存默认关闭
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "adaptiverag:",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "adaptiverag",
		SampleRate:   0.1,
	}
}
