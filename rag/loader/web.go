package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/adaptiverag/internal/tlsutil"
	"github.com/BaSui01/adaptiverag/types"
	"go.uber.org/zap"
)

// WebLoaderConfig configures URL fetching.
type WebLoaderConfig struct {
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	MaxBodyBytes int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
	UserAgent    string        `json:"user_agent" yaml:"user_agent"`
}

// DefaultWebLoaderConfig returns the default fetch settings.
func DefaultWebLoaderConfig() WebLoaderConfig {
	return WebLoaderConfig{
		Timeout:      30 * time.Second,
		MaxBodyBytes: 20 << 20,
		UserAgent:    "adaptiverag-loader/1.0",
	}
}

// WebLoader fetches a URL over HTTP and parses the body with a ParserRegistry.
type WebLoader struct {
	config   WebLoaderConfig
	client   *http.Client
	registry *ParserRegistry
	logger   *zap.Logger
}

// WebLoaderOption customizes a WebLoader.
type WebLoaderOption func(*WebLoader)

// WithHTTPClient replaces the default TLS-hardened client.
func WithHTTPClient(client *http.Client) WebLoaderOption {
	return func(l *WebLoader) { l.client = client }
}

// WithRegistry replaces the built-in parser registry.
func WithRegistry(r *ParserRegistry) WebLoaderOption {
	return func(l *WebLoader) { l.registry = r }
}

// NewWebLoader creates a WebLoader.
func NewWebLoader(config WebLoaderConfig, logger *zap.Logger, opts ...WebLoaderOption) *WebLoader {
	defaults := DefaultWebLoaderConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &WebLoader{
		config:   config,
		registry: NewParserRegistry(),
		logger:   logger.With(zap.String("component", "web_loader")),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = tlsutil.NewClient(config.Timeout, tlsutil.WithUserAgent(config.UserAgent))
	}
	return l
}

// Load fetches source and returns its documents. Every document carries "source" metadata.
// Invalid URLs are INVALID_REQUEST; network, status and parse failures are SOURCE_FETCH_FAILED.
func (l *WebLoader) Load(ctx context.Context, source string) ([]types.Document, error) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("invalid source url %q", source))
	}
	source = u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, types.NewSourceFetchError(source).WithCause(err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.FromContextError(ctx.Err())
		}
		return nil, types.NewSourceFetchError(source).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, types.NewSourceFetchError(source).
			WithCause(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))).
			WithRetryable(resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.config.MaxBodyBytes+1))
	if err != nil {
		return nil, types.NewSourceFetchError(source).WithCause(err)
	}
	if int64(len(body)) > l.config.MaxBodyBytes {
		return nil, types.NewSourceFetchError(source).
			WithCause(fmt.Errorf("body exceeds %d bytes", l.config.MaxBodyBytes)).
			WithRetryable(false)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	docs, err := l.registry.Parse(ctx, contentType, source, body)
	if err != nil {
		return nil, types.NewSourceFetchError(source).WithCause(err).WithRetryable(false)
	}

	out := docs[:0]
	for _, d := range docs {
		if strings.TrimSpace(d.PageContent) == "" {
			continue
		}
		if d.Metadata == nil {
			d.Metadata = map[string]any{}
		}
		d.Metadata["source"] = source
		out = append(out, d)
	}

	l.logger.Debug("source loaded",
		zap.String("url", source),
		zap.String("content_type", contentType),
		zap.Int("documents", len(out)),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}
