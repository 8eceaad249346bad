package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/adaptiverag/internal/tlsutil"
	"github.com/BaSui01/adaptiverag/llm"
	"github.com/BaSui01/adaptiverag/llm/providers"
)

const (
	defaultTimeout  = 60 * time.Second
	completionsPath = "/v1/chat/completions"
)

// Config 描述一个 OpenAI 兼容的 /chat/completions 服务
type Config struct {
	Name          string
	APIKey        string
	BaseURL       string
	DefaultModel  string
	FallbackModel string
	Timeout       time.Duration

	// Headers 每个请求都会带上的额外头
	Headers map[string]string

	// Decorate 在发送前修改请求体，用于服务商特有字段
	Decorate func(body *providers.OpenAICompatRequest)
}

// Provider 实现 llm.Provider
type Provider struct {
	cfg    Config
	url    string
	client *http.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		url:    strings.TrimRight(cfg.BaseURL, "/") + completionsPath,
		client: tlsutil.NewClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", cfg.Name)),
	}
}

func (p *Provider) Name() string { return p.cfg.Name }

// BaseURL 配置的服务根地址
func (p *Provider) BaseURL() string { return p.cfg.BaseURL }

// Completion 发送一次非流式对话请求
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, p.fail(llm.ErrInvalidRequest, http.StatusBadRequest, false, "chat request has no messages")
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := providers.OpenAICompatRequest{
		Model:       providers.ChooseModel(req, p.cfg.DefaultModel, p.cfg.FallbackModel),
		Messages:    providers.ConvertMessagesToOpenAI(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	if p.cfg.Decorate != nil {
		p.cfg.Decorate(&body)
	}

	start := time.Now()
	out, err := p.post(ctx, body)
	if err != nil {
		return nil, err
	}

	resp := providers.ToLLMChatResponse(*out, p.cfg.Name)
	if out.Created != 0 {
		resp.CreatedAt = time.Unix(out.Created, 0)
	}
	p.logger.Debug("completion done",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)))
	return resp, nil
}

func (p *Provider) post(ctx context.Context, body providers.OpenAICompatRequest) (*providers.OpenAICompatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	providers.BearerTokenHeaders(httpReq, p.cfg.APIKey)
	for k, v := range p.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, p.fail(llm.ErrUpstreamTimeout, http.StatusGatewayTimeout, true, err.Error())
		}
		return nil, p.fail(llm.ErrUpstreamError, http.StatusBadGateway, true, err.Error())
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= http.StatusBadRequest {
		msg := providers.ReadErrorMessage(httpResp.Body)
		p.logger.Warn("completion rejected",
			zap.String("model", body.Model),
			zap.Int("status", httpResp.StatusCode),
			zap.String("message", msg))
		return nil, providers.MapHTTPError(httpResp.StatusCode, msg, p.cfg.Name)
	}

	var out providers.OpenAICompatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return nil, p.fail(llm.ErrUpstreamError, http.StatusBadGateway, true, "decode completion: "+err.Error())
	}
	if len(out.Choices) == 0 {
		return nil, p.fail(llm.ErrUpstreamError, http.StatusBadGateway, true, "response contains no choices")
	}
	return &out, nil
}

func (p *Provider) fail(code llm.ErrorCode, status int, retryable bool, msg string) *llm.Error {
	return &llm.Error{Code: code, Message: msg, HTTPStatus: status, Retryable: retryable, Provider: p.cfg.Name}
}
