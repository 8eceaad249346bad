package groq

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/adaptiverag/llm/providers"
	"github.com/BaSui01/adaptiverag/llm/providers/openaicompat"
)

const (
	// DefaultBaseURL Groq 的 OpenAI 兼容入口
	DefaultBaseURL = "https://api.groq.com/openai"
	// DefaultModel 判定与生成的默认模型
	DefaultModel = "qwen/qwen3-32b"
)

// Config Groq 连接参数
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// ReasoningFormat hidden / raw / parsed，为空时不发送
	ReasoningFormat string
}

// GroqProvider 判定与生成的默认服务
type GroqProvider struct {
	*openaicompat.Provider
}

func NewGroqProvider(cfg Config, logger *zap.Logger) *GroqProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	compat := openaicompat.Config{
		Name:          "groq",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: DefaultModel,
		Timeout:       cfg.Timeout,
	}
	if format := cfg.ReasoningFormat; format != "" {
		compat.Decorate = func(body *providers.OpenAICompatRequest) { body.ReasoningFormat = format }
	}
	return &GroqProvider{Provider: openaicompat.New(compat, logger)}
}
