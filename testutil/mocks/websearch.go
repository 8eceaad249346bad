package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/adaptiverag/llm/tools"
)

// MockWebSearch 是 WebSearchProvider 的模拟实现，记录每次查询。
type MockWebSearch struct {
	mu      sync.Mutex
	results []tools.WebSearchResult
	err     error
	queries []string
	options []tools.WebSearchOptions
}

// NewMockWebSearch 创建返回固定结果的 MockWebSearch
func NewMockWebSearch(results ...tools.WebSearchResult) *MockWebSearch {
	return &MockWebSearch{results: results}
}

// WithError 设置返回错误
func (m *MockWebSearch) WithError(err error) *MockWebSearch {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockWebSearch) Name() string { return "mock-search" }

// Search 返回预设结果
func (m *MockWebSearch) Search(ctx context.Context, query string, opts tools.WebSearchOptions) ([]tools.WebSearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	m.options = append(m.options, opts)
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]tools.WebSearchResult, len(m.results))
	copy(out, m.results)
	return out, nil
}

// Queries 返回收到的查询
func (m *MockWebSearch) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// Options 返回每次查询的选项
func (m *MockWebSearch) Options() []tools.WebSearchOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tools.WebSearchOptions(nil), m.options...)
}

// CallCount 返回调用次数
func (m *MockWebSearch) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}
