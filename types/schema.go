package types

// JSONSchema 只覆盖判定输出用得到的部分：对象、字符串与字符串枚举。
// 序列化结果直接嵌入判定提示词。
type JSONSchema struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`

	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`

	Enum []string `json:"enum,omitempty"`
}

// Field 是对象的一个属性
type Field struct {
	Name     string
	Schema   *JSONSchema
	Optional bool
}

// Object 构造封闭对象：未声明的属性不允许出现，非 Optional 的字段必填
func Object(title, description string, fields ...Field) *JSONSchema {
	closed := false
	s := &JSONSchema{
		Title:                title,
		Description:          description,
		Type:                 "object",
		Properties:           make(map[string]*JSONSchema, len(fields)),
		AdditionalProperties: &closed,
	}
	for _, f := range fields {
		s.Properties[f.Name] = f.Schema
		if !f.Optional {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

// String 自由文本字段
func String(description string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description}
}

// Enum 取值限定在 values 之内的字符串字段
func Enum(description string, values ...string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description, Enum: values}
}
