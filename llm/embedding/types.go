package embedding

import "context"

// Provider 把文本映射为定长向量。
// Model 与 Dimensions 组成索引身份，构建与查询必须一致。
type Provider interface {
	// EmbedQuery 嵌入检索问题
	EmbedQuery(ctx context.Context, query string) ([]float64, error)

	// EmbedDocuments 嵌入文档块，返回顺序与输入一致
	EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error)

	Name() string
	Model() string
	Dimensions() int
}
