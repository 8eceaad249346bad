package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/adaptiverag/llm"
	"github.com/BaSui01/adaptiverag/types"
)

// Validator is implemented by judgment types that check their own fields after decoding.
type Validator interface {
	Validate() error
}

// ParseError 表示回复无法解析为目标结构。
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("structured output parse failed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// StructuredOutput 是绑定了 Schema 的泛型结构化调用器，可被多个 goroutine 共享。
type StructuredOutput[T any] struct {
	provider   llm.Provider
	schema     *types.JSONSchema
	schemaJSON string
	model      string
}

// NewStructuredOutput binds provider and schema. model may be empty to use the provider default.
func NewStructuredOutput[T any](provider llm.Provider, schema *types.JSONSchema, model string) (*StructuredOutput[T], error) {
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}
	if schema == nil {
		return nil, errors.New("schema cannot be nil")
	}
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return &StructuredOutput[T]{
		provider:   provider,
		schema:     schema,
		schemaJSON: string(raw),
		model:      model,
	}, nil
}

// Schema returns the bound schema.
func (s *StructuredOutput[T]) Schema() *types.JSONSchema { return s.schema }

// GenerateWithMessages 发送 messages（前置 Schema 指令）并解析回复。
func (s *StructuredOutput[T]) GenerateWithMessages(ctx context.Context, messages []llm.Message) (*T, error) {
	all := make([]llm.Message, 0, len(messages)+1)
	all = append(all, llm.SystemMessage(s.buildPrompt()))
	all = append(all, messages...)

	resp, err := s.provider.Completion(ctx, &llm.ChatRequest{
		Model:    s.model,
		Messages: all,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &ParseError{Err: errors.New("no response choices returned")}
	}
	return Parse[T](resp.Content())
}

func (s *StructuredOutput[T]) buildPrompt() string {
	return fmt.Sprintf("You must respond with valid JSON that conforms to the following JSON Schema:\n%s\n\nRespond only with the JSON object, no additional text.", s.schemaJSON)
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON 从可能夹带推理段、代码块或说明文字的回复中取出 JSON 对象。
func ExtractJSON(response string) string {
	response = llm.StripReasoning(response)

	if strings.Contains(response, "```") {
		if m := codeFence.FindStringSubmatch(response); len(m) > 1 {
			response = strings.TrimSpace(m[1])
		}
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}
	return response
}

// Parse decodes raw into T and runs Validate when T implements Validator.
// 模型附带的多余字段直接忽略。
func Parse[T any](raw string) (*T, error) {
	jsonStr := ExtractJSON(raw)
	if jsonStr == "" {
		return nil, &ParseError{Raw: raw, Err: errors.New("empty response")}
	}

	var value T
	if err := json.Unmarshal([]byte(jsonStr), &value); err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("JSON parse error: %w", err)}
	}
	if v, ok := any(&value).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
	}
	return &value, nil
}
