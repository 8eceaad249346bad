package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/adaptiverag/llm"
)

// =============================================================================
// 错误映射
// =============================================================================

type statusRule struct {
	code      llm.ErrorCode
	retryable bool
}

// statusRules 覆盖 Groq 与 OpenAI 文档中出现的状态码，其余按 5xx 可重试处理
var statusRules = map[int]statusRule{
	http.StatusBadRequest:         {llm.ErrInvalidRequest, false},
	http.StatusUnauthorized:       {llm.ErrUnauthorized, false},
	http.StatusForbidden:          {llm.ErrForbidden, false},
	http.StatusTooManyRequests:    {llm.ErrRateLimited, true},
	http.StatusBadGateway:         {llm.ErrUpstreamError, true},
	http.StatusServiceUnavailable: {llm.ErrUpstreamError, true},
	http.StatusGatewayTimeout:     {llm.ErrUpstreamTimeout, true},
	529:                           {llm.ErrModelOverloaded, true},
}

// MapHTTPError 把上游非 2xx 响应转换为 llm.Error
func MapHTTPError(status int, msg string, provider string) *llm.Error {
	rule, ok := statusRules[status]
	if !ok {
		rule = statusRule{code: llm.ErrUpstreamError, retryable: status >= 500}
	}
	// 额度用尽在 OpenAI 上以 400 返回
	if status == http.StatusBadRequest && mentionsQuota(msg) {
		rule = statusRule{code: llm.ErrQuotaExceeded}
	}
	return &llm.Error{
		Code:       rule.code,
		Message:    msg,
		HTTPStatus: status,
		Retryable:  rule.retryable,
		Provider:   provider,
	}
}

func mentionsQuota(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "credit")
}

// ReadErrorMessage 读取错误响应体，优先取 {"error":{"message":...}}
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		if envelope.Error.Type == "" {
			return envelope.Error.Message
		}
		return fmt.Sprintf("%s (type: %s)", envelope.Error.Message, envelope.Error.Type)
	}
	return strings.TrimSpace(string(data))
}

// =============================================================================
// /chat/completions 报文
// =============================================================================

// OpenAICompatMessage 是 chat/completions 的消息
type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// OpenAICompatRequest 是 chat/completions 请求体。
// ReasoningFormat 只有 Groq 识别，其余服务商忽略该字段。
type OpenAICompatRequest struct {
	Model           string                `json:"model"`
	Messages        []OpenAICompatMessage `json:"messages"`
	MaxTokens       int                   `json:"max_tokens,omitempty"`
	Temperature     float32               `json:"temperature,omitempty"`
	TopP            float32               `json:"top_p,omitempty"`
	Stop            []string              `json:"stop,omitempty"`
	ReasoningFormat string                `json:"reasoning_format,omitempty"`
}

// OpenAICompatChoice 响应中的一个候选
type OpenAICompatChoice struct {
	Index        int                 `json:"index"`
	FinishReason string              `json:"finish_reason"`
	Message      OpenAICompatMessage `json:"message"`
}

// OpenAICompatUsage token 用量
type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAICompatResponse 是 chat/completions 响应体
type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   *OpenAICompatUsage   `json:"usage,omitempty"`
	Created int64                `json:"created,omitempty"`
}

// ConvertMessagesToOpenAI 转换判定/生成提示词消息
func ConvertMessagesToOpenAI(msgs []llm.Message) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = OpenAICompatMessage{Role: string(m.Role), Content: m.Content, Name: m.Name}
	}
	return out
}

// ToLLMChatResponse 把响应体转换为 llm.ChatResponse，候选一律视为 assistant
func ToLLMChatResponse(oa OpenAICompatResponse, provider string) *llm.ChatResponse {
	resp := &llm.ChatResponse{
		ID:       oa.ID,
		Provider: provider,
		Model:    oa.Model,
		Choices:  make([]llm.ChatChoice, len(oa.Choices)),
	}
	for i, c := range oa.Choices {
		resp.Choices[i] = llm.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message:      llm.Message{Role: llm.RoleAssistant, Content: c.Message.Content, Name: c.Message.Name},
		}
	}
	if u := oa.Usage; u != nil {
		resp.Usage = llm.ChatUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return resp
}

// ChooseModel 请求指定的模型优先，其次是配置的默认模型
func ChooseModel(req *llm.ChatRequest, defaultModel, fallbackModel string) string {
	switch {
	case req != nil && req.Model != "":
		return req.Model
	case defaultModel != "":
		return defaultModel
	default:
		return fallbackModel
	}
}

// BearerTokenHeaders 设置 Authorization 与 Content-Type
func BearerTokenHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Authorization", "Bearer "+apiKey)
	r.Header.Set("Content-Type", "application/json")
}
