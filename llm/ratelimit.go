package llm

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CallRecorder receives per-call measurements (implemented by the metrics collector).
type CallRecorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// RateLimitConfig 控制对上游服务的请求速率与单次调用超时。
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CallTimeout       time.Duration
}

// RateLimitedProvider 用令牌桶包装 Provider，使并发评分不超过上游限流。
type RateLimitedProvider struct {
	inner    Provider
	limiter  *rate.Limiter
	timeout  time.Duration
	recorder CallRecorder
	logger   *zap.Logger
}

// NewRateLimitedProvider wraps inner. A non-positive rate disables limiting.
func NewRateLimitedProvider(inner Provider, cfg RateLimitConfig, recorder CallRecorder, logger *zap.Logger) *RateLimitedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}
	return &RateLimitedProvider{
		inner:    inner,
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  cfg.CallTimeout,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "rate_limited_provider"), zap.String("provider", inner.Name())),
	}
}

// Name returns the wrapped provider's name.
func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

// Completion waits for a token, then calls the wrapped provider under the call timeout.
func (p *RateLimitedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{
			Code:       ErrRateLimited,
			Message:    err.Error(),
			HTTPStatus: http.StatusTooManyRequests,
			Retryable:  true,
			Provider:   p.inner.Name(),
		}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.inner.Completion(ctx, req)
	duration := time.Since(start)

	model := ""
	if req != nil {
		model = req.Model
	}
	status := "success"
	var prompt, completion int
	if err != nil {
		status = "error"
		if le, ok := AsError(err); ok {
			status = string(le.Code)
		}
		p.logger.Debug("completion failed", zap.Duration("duration", duration), zap.Error(err))
	} else {
		if resp.Model != "" {
			model = resp.Model
		}
		prompt, completion = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	if p.recorder != nil {
		p.recorder.RecordLLMRequest(p.inner.Name(), model, status, duration, prompt, completion)
	}
	return resp, err
}
