package config

import "time"

// Config 是进程的全部配置。yaml 标签对应配置文件键，
// env 标签拼接成 <前缀>_<段>_<字段> 形式的环境变量名。
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`
	Search    SearchConfig    `yaml:"search" env:"SEARCH"`
	Pipeline  PipelineConfig  `yaml:"pipeline" env:"PIPELINE"`
	Prompts   PromptsConfig   `yaml:"prompts" env:"PROMPTS"`
	Index     IndexConfig     `yaml:"index" env:"INDEX"`
	Loader    LoaderConfig    `yaml:"loader" env:"LOADER"`
	Redis     RedisConfig     `yaml:"redis" env:"REDIS"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

type ServerConfig struct {
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// 0 表示不单独启动 metrics 端口
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 单次 /agentic-query 运行的期限，WriteTimeout 应大于它
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`

	RateLimitRPS       float64  `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst     int      `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	StaticDir          string   `yaml:"static_dir" env:"STATIC_DIR"`
	// 为空时不鉴权
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
}

// LLMConfig 判定与生成各用一个模型，限流也各自一个令牌桶
type LLMConfig struct {
	Judge             ModelConfig `yaml:"judge" env:"JUDGE"`
	Generator         ModelConfig `yaml:"generator" env:"GENERATOR"`
	RequestsPerSecond float64     `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int         `yaml:"burst" env:"BURST"`
}

type ModelConfig struct {
	// groq 或 openai
	Provider    string        `yaml:"provider" env:"PROVIDER"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	Model       string        `yaml:"model" env:"MODEL"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 只有 groq 识别：hidden、raw、parsed
	ReasoningFormat string `yaml:"reasoning_format" env:"REASONING_FORMAT"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider" env:"PROVIDER"`
	APIKey   string `yaml:"api_key" env:"API_KEY"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL"`
	Model    string `yaml:"model" env:"MODEL"`
	// Model 与 Dimensions 一起构成索引身份
	Dimensions int           `yaml:"dimensions" env:"DIMENSIONS"`
	BatchSize  int           `yaml:"batch_size" env:"BATCH_SIZE"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type SearchConfig struct {
	// 关闭时 web_search 节点返回 WEB_SEARCH_UNAVAILABLE
	Enabled    bool          `yaml:"enabled" env:"ENABLED"`
	Provider   string        `yaml:"provider" env:"PROVIDER"`
	APIKey     string        `yaml:"api_key" env:"API_KEY"`
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	MaxResults int           `yaml:"max_results" env:"MAX_RESULTS"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 需要启用 redis
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

type PipelineConfig struct {
	// 单次运行最多执行的动作节点数
	MaxSteps         int           `yaml:"max_steps" env:"MAX_STEPS"`
	GradeConcurrency int           `yaml:"grade_concurrency" env:"GRADE_CONCURRENCY"`
	CallTimeout      time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
	// 写进路由提示词的证据库主题
	VectorstoreTopics string `yaml:"vectorstore_topics" env:"VECTORSTORE_TOPICS"`
}

type PromptsConfig struct {
	// 锁定的 SHA-256，为空时不校验
	Checksum string `yaml:"checksum" env:"CHECKSUM"`
	// 必须包含 {context} 与 {question}
	RAGTemplateFile string `yaml:"rag_template_file" env:"RAG_TEMPLATE_FILE"`
}

type IndexConfig struct {
	Path             string `yaml:"path" env:"PATH"`
	TopK             int    `yaml:"top_k" env:"TOP_K"`
	ChunkSize        int    `yaml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap     int    `yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
	FetchConcurrency int    `yaml:"fetch_concurrency" env:"FETCH_CONCURRENCY"`
	// 0 表示不感知其他进程写入的索引
	WatchInterval time.Duration `yaml:"watch_interval" env:"WATCH_INTERVAL"`
}

type LoaderConfig struct {
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	UserAgent    string        `yaml:"user_agent" env:"USER_AGENT"`
}

type RedisConfig struct {
	Enabled      bool   `yaml:"enabled" env:"ENABLED"`
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	KeyPrefix    string `yaml:"key_prefix" env:"KEY_PREFIX"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

type LogConfig struct {
	// debug、info、warn、error
	Level string `yaml:"level" env:"LEVEL"`
	// json 或 console
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 不使用 TLS 连接 collector
	Insecure    bool    `yaml:"insecure" env:"INSECURE"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate  float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}
