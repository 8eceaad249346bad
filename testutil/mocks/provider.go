package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/adaptiverag/llm"
)

// ProviderCall 一次 Completion 调用的请求与结果
type ProviderCall struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Err      error
}

// MockProvider 模拟判定或生成服务。
// 默认返回固定文本；WithResponder 可以按请求内容脚本化回复。
type MockProvider struct {
	mu    sync.Mutex
	name  string
	reply func(req *llm.ChatRequest) string
	err   error
	delay time.Duration
	calls []ProviderCall
}

func NewMockProvider() *MockProvider {
	return &MockProvider{name: "mock", reply: func(*llm.ChatRequest) string { return "" }}
}

func (m *MockProvider) WithName(name string) *MockProvider {
	m.mu.Lock()
	m.name = name
	m.mu.Unlock()
	return m
}

// WithResponse 每次都回复 content
func (m *MockProvider) WithResponse(content string) *MockProvider {
	return m.WithResponder(func(*llm.ChatRequest) string { return content })
}

// WithResponder 由 fn 根据请求决定回复
func (m *MockProvider) WithResponder(fn func(req *llm.ChatRequest) string) *MockProvider {
	m.mu.Lock()
	m.reply = fn
	m.err = nil
	m.mu.Unlock()
	return m
}

// WithError 之后的调用都失败
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	return m
}

// WithDelay 回复前等待 d，期间 ctx 结束则返回 ctx.Err()
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
	return m
}

func (m *MockProvider) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	name, reply, err, delay := m.name, m.reply, m.err, m.delay
	m.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	var resp *llm.ChatResponse
	if err == nil {
		content := reply(req)
		resp = &llm.ChatResponse{
			ID:       "mock-" + name,
			Provider: name,
			Model:    req.Model,
			Choices: []llm.ChatChoice{{
				FinishReason: "stop",
				Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
			}},
			Usage:     llm.ChatUsage{PromptTokens: 10, CompletionTokens: len(content), TotalTokens: 10 + len(content)},
			CreatedAt: time.Now(),
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, ProviderCall{Request: req, Response: resp, Err: err})
	m.mu.Unlock()
	return resp, err
}

// Calls 按调用顺序返回记录的副本
func (m *MockProvider) Calls() []ProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProviderCall(nil), m.calls...)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastRequest 尚未调用时为 nil
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1].Request
}
