package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/adaptiverag/internal/tlsutil"
	"go.uber.org/zap"
)

// TavilyConfig configures the Tavily search backend.
type TavilyConfig struct {
	APIKey  string        `json:"-"`
	BaseURL string        `json:"base_url,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// DefaultTavilyConfig returns defaults for the public Tavily API.
func DefaultTavilyConfig() TavilyConfig {
	return TavilyConfig{
		BaseURL: "https://api.tavily.com",
		Timeout: 30 * time.Second,
	}
}

// TavilyProvider implements WebSearchProvider against the Tavily search API.
type TavilyProvider struct {
	cfg    TavilyConfig
	client *http.Client
	logger *zap.Logger
}

// NewTavilyProvider creates a Tavily-backed search provider.
func NewTavilyProvider(cfg TavilyConfig, logger *zap.Logger) *TavilyProvider {
	defaults := DefaultTavilyConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TavilyProvider{
		cfg:    cfg,
		client: tlsutil.NewClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "tavily")),
	}
}

// Name returns the provider name.
func (p *TavilyProvider) Name() string { return "tavily" }

type tavilyRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results,omitempty"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Query        string         `json:"query"`
	Results      []tavilyResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

// Search queries Tavily and maps its results.
func (p *TavilyProvider) Search(ctx context.Context, query string, opts WebSearchOptions) ([]WebSearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}

	payload, err := json.Marshal(tavilyRequest{
		Query:          query,
		MaxResults:     opts.MaxResults,
		SearchDepth:    opts.SearchDepth,
		IncludeDomains: opts.Domains,
		ExcludeDomains: opts.ExcludeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read tavily response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tavilyResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	results := make([]WebSearchResult, 0, len(tr.Results))
	for _, r := range tr.Results {
		results = append(results, WebSearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}

	p.logger.Debug("web search completed",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	return results, nil
}
