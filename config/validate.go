package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	llmProviders       = []string{"groq", "openai"}
	embeddingProviders = []string{"openai"}
	searchProviders    = []string{"tavily"}
	logLevels          = []string{"debug", "info", "warn", "error"}
)

// Validate 检查结构性约束，一次报告全部问题。密钥是否齐全由 ValidateCredentials 负责，
// 这样 ingest 等只需部分密钥的命令也能使用同一份配置。
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	s := c.Server
	check(validPort(s.HTTPPort), "invalid HTTP port: %d", s.HTTPPort)
	check(s.MetricsPort == 0 || validPort(s.MetricsPort), "invalid metrics port: %d", s.MetricsPort)
	check(s.MetricsPort == 0 || s.MetricsPort != s.HTTPPort, "metrics port must differ from HTTP port (%d)", s.HTTPPort)
	check(s.RequestTimeout > 0, "request_timeout must be positive")
	check(s.RateLimitRPS >= 0, "rate_limit_rps must not be negative")

	for _, m := range []struct {
		role string
		cfg  ModelConfig
	}{{"judge", c.LLM.Judge}, {"generator", c.LLM.Generator}} {
		check(oneOf(m.cfg.Provider, llmProviders), "unsupported %s provider %q", m.role, m.cfg.Provider)
		check(m.cfg.Model != "", "%s model is required", m.role)
		check(m.cfg.Temperature >= 0 && m.cfg.Temperature <= 2, "%s temperature must be in [0, 2], got %g", m.role, m.cfg.Temperature)
	}
	check(c.LLM.RequestsPerSecond >= 0, "llm requests_per_second must not be negative")

	e := c.Embedding
	check(oneOf(e.Provider, embeddingProviders), "unsupported embedding provider %q", e.Provider)
	check(e.Model != "", "embedding model is required")
	check(e.Dimensions > 0, "embedding dimensions must be positive")
	check(e.BatchSize > 0, "embedding batch_size must be positive")

	if c.Search.Enabled {
		check(oneOf(c.Search.Provider, searchProviders), "unsupported search provider %q", c.Search.Provider)
		check(c.Search.MaxResults > 0, "search max_results must be positive")
	}

	check(c.Pipeline.MaxSteps > 0, "max_steps must be positive")
	check(c.Pipeline.GradeConcurrency > 0, "grade_concurrency must be positive")

	idx := c.Index
	check(idx.TopK > 0, "top_k must be positive")
	check(idx.ChunkSize > 0, "chunk_size must be positive")
	check(idx.ChunkOverlap >= 0 && idx.ChunkOverlap < idx.ChunkSize,
		"chunk_overlap must be in [0, chunk_size), got %d", idx.ChunkOverlap)
	check(strings.TrimSpace(idx.Path) != "", "index path is required")
	check(idx.FetchConcurrency > 0, "fetch_concurrency must be positive")

	check(c.Loader.MaxBodyBytes > 0, "loader max_body_bytes must be positive")
	check(!c.Redis.Enabled || c.Redis.Addr != "", "redis addr is required when redis is enabled")
	check(oneOf(c.Log.Level, logLevels), "invalid log level %q", c.Log.Level)
	check(c.Telemetry.SampleRate >= 0 && c.Telemetry.SampleRate <= 1,
		"telemetry sample_rate must be in [0, 1], got %g", c.Telemetry.SampleRate)

	if len(problems) > 0 {
		return errors.New("config validation errors: " + strings.Join(problems, "; "))
	}
	return nil
}

// ValidateCredentials 列出 query 服务需要但仍为空的密钥，搜索关闭时不要求搜索密钥
func (c *Config) ValidateCredentials() error {
	var missing []string
	for _, k := range []struct {
		name, value string
		need        bool
	}{
		{"llm.judge.api_key", c.LLM.Judge.APIKey, true},
		{"llm.generator.api_key", c.LLM.Generator.APIKey, true},
		{"embedding.api_key", c.Embedding.APIKey, true},
		{"search.api_key", c.Search.APIKey, c.Search.Enabled},
	} {
		if k.need && k.value == "" {
			missing = append(missing, k.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
