package types

import "strings"

// Document 是一段不可变的证据文本及其元数据。
// 评分等操作生成新的切片，不修改已有 Document。
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewDocument creates a document, copying metadata.
func NewDocument(content string, metadata map[string]any) Document {
	return Document{PageContent: content, Metadata: cloneMetadata(metadata)}
}

// Source returns the "source" metadata value if it is a string.
func (d Document) Source() string {
	if s, ok := d.Metadata["source"].(string); ok {
		return s
	}
	return ""
}

// Clone returns a deep-enough copy: metadata map is copied, values are shared.
func (d Document) Clone() Document {
	return Document{PageContent: d.PageContent, Metadata: cloneMetadata(d.Metadata)}
}

// CloneDocuments copies a document slice. A nil input yields an empty, non-nil slice.
func CloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}

// JoinContents joins page contents with sep.
func JoinContents(docs []Document, sep string) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.PageContent
	}
	return strings.Join(parts, sep)
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
