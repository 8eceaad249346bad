package rag

import (
	"github.com/BaSui01/adaptiverag/types"
)

// State 是一次管线运行的工作状态，由单次运行独占。
type State struct {
	Question   string           `json:"question"`
	Generation *string          `json:"generation,omitempty"`
	Documents  []types.Document `json:"documents"`
}

// NewState returns the initial state for question.
func NewState(question string) State {
	return State{Question: question, Documents: []types.Document{}}
}

// GenerationText returns the generation or "" when none was produced.
func (s State) GenerationText() string {
	if s.Generation == nil {
		return ""
	}
	return *s.Generation
}

// Update 是节点返回的增量，nil 字段表示保持原值。
type Update struct {
	Question   *string
	Documents  *[]types.Document
	Generation *string
}

// WithQuestion sets the question field of the update.
func (u Update) WithQuestion(q string) Update {
	u.Question = &q
	return u
}

// WithDocuments sets the documents field of the update. A nil slice clears the documents.
func (u Update) WithDocuments(docs []types.Document) Update {
	cp := types.CloneDocuments(docs)
	u.Documents = &cp
	return u
}

// WithGeneration sets the generation field of the update.
func (u Update) WithGeneration(g string) Update {
	u.Generation = &g
	return u
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Question == nil && u.Documents == nil && u.Generation == nil
}

// Merge 把 u 合并进 s：已设置的字段覆盖，未设置的字段保留。
// 返回的 State 不与 s 或 u 共享文档切片。
func Merge(s State, u Update) State {
	out := State{
		Question:   s.Question,
		Generation: s.Generation,
	}
	if u.Question != nil {
		out.Question = *u.Question
	}
	if u.Generation != nil {
		g := *u.Generation
		out.Generation = &g
	}
	if u.Documents != nil {
		out.Documents = types.CloneDocuments(*u.Documents)
	} else {
		out.Documents = types.CloneDocuments(s.Documents)
	}
	return out
}
