package mocks

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// MockEmbedder 是确定性的词袋嵌入器：每个词哈希到一个维度。
// 共享词越多的文本余弦相似度越高，足以驱动检索测试。
type MockEmbedder struct {
	mu sync.Mutex

	name       string
	model      string
	dimensions int
	err        error

	queryCalls    int
	documentCalls int
	embedded      int
}

// NewMockEmbedder 创建 MockEmbedder
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &MockEmbedder{name: "mock-embedding", model: "mock-embed", dimensions: dimensions}
}

// WithModel 设置模型名
func (m *MockEmbedder) WithModel(model string) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
	return m
}

// WithError 设置返回错误
func (m *MockEmbedder) WithError(err error) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockEmbedder) Name() string { return m.name }

func (m *MockEmbedder) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

func (m *MockEmbedder) Dimensions() int { return m.dimensions }

// EmbedQuery 嵌入单个查询
func (m *MockEmbedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	m.mu.Lock()
	m.queryCalls++
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Vector(query), nil
}

// EmbedDocuments 嵌入多个文档
func (m *MockEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	m.mu.Lock()
	m.documentCalls++
	m.embedded += len(documents)
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float64, len(documents))
	for i, d := range documents {
		out[i] = m.Vector(d)
	}
	return out, nil
}

// Vector 计算 text 的嵌入向量
func (m *MockEmbedder) Vector(text string) []float64 {
	vec := make([]float64, m.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[int(h.Sum32())%m.dimensions]++
	}
	// 空文本给一个固定的非零向量，避免零向量
	if len(words) == 0 {
		vec[0] = 1
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// QueryCalls 返回 EmbedQuery 调用次数
func (m *MockEmbedder) QueryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryCalls
}

// DocumentCalls 返回 EmbedDocuments 调用次数
func (m *MockEmbedder) DocumentCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documentCalls
}

// EmbeddedCount 返回累计嵌入的文档数
func (m *MockEmbedder) EmbeddedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedded
}
