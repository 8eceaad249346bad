package llm

import (
	"context"
	"regexp"
	"strings"
)

// Provider 是判定服务与生成服务共同的调用面
type Provider interface {
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Name() string
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripReasoning 去掉推理模型的 <think> 段。
// 没有闭合的 <think> 之后全部视为推理内容。
func StripReasoning(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	if open := strings.Index(text, "<think>"); open >= 0 {
		text = text[:open]
	}
	return strings.TrimSpace(text)
}
