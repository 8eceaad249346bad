package tools

import (
	"context"
	"strings"

	"github.com/BaSui01/adaptiverag/types"
)

// WebSearchProvider defines the interface for web search backends.
type WebSearchProvider interface {
	// Search performs a web search and returns results.
	Search(ctx context.Context, query string, opts WebSearchOptions) ([]WebSearchResult, error)
	// Name returns the provider name.
	Name() string
}

// WebSearchOptions configures a web search request.
type WebSearchOptions struct {
	MaxResults     int      `json:"max_results"`               // Maximum number of results
	SearchDepth    string   `json:"search_depth,omitempty"`    // "basic" or "advanced"
	Domains        []string `json:"domains,omitempty"`         // Restrict to specific domains
	ExcludeDomains []string `json:"exclude_domains,omitempty"` // Exclude specific domains
}

// DefaultMaxResults matches the number of results the pipeline asks for.
const DefaultMaxResults = 5

// DefaultWebSearchOptions returns sensible defaults.
func DefaultWebSearchOptions() WebSearchOptions {
	return WebSearchOptions{
		MaxResults:  DefaultMaxResults,
		SearchDepth: "basic",
	}
}

// WebSearchResult represents a single search result.
type WebSearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Content string  `json:"content,omitempty"` // Extracted page content if available
	Score   float64 `json:"score,omitempty"`   // Relevance score (0-1)
}

// Text returns the result's content, falling back to the snippet.
func (r WebSearchResult) Text() string {
	if strings.TrimSpace(r.Content) != "" {
		return r.Content
	}
	return r.Snippet
}

// DisabledProvider 在关闭联网搜索时替代真实后端，每次调用都失败。
type DisabledProvider struct{}

// Name returns "disabled".
func (DisabledProvider) Name() string { return "disabled" }

// Search always fails with WEB_SEARCH_UNAVAILABLE.
func (DisabledProvider) Search(context.Context, string, WebSearchOptions) ([]WebSearchResult, error) {
	return nil, types.NewWebSearchUnavailableError("web search is disabled (search.enabled=false)")
}
