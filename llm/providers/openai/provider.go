package openai

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/adaptiverag/llm/providers/openaicompat"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"
)

// Config OpenAI 连接参数
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	Organization string
}

type OpenAIProvider struct {
	*openaicompat.Provider
}

// NewOpenAIProvider Organization 非空时附带 OpenAI-Organization 头
func NewOpenAIProvider(cfg Config, logger *zap.Logger) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	var headers map[string]string
	if cfg.Organization != "" {
		headers = map[string]string{"OpenAI-Organization": cfg.Organization}
	}
	return &OpenAIProvider{Provider: openaicompat.New(openaicompat.Config{
		Name:          "openai",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: DefaultModel,
		Timeout:       cfg.Timeout,
		Headers:       headers,
	}, logger)}
}
