package fixtures

import "fmt"

// RouteJSON 路由判定的结构化输出
func RouteJSON(datasource string) string {
	return fmt.Sprintf(`{"datasource":%q}`, datasource)
}

// BinaryScoreJSON 三种二元评分共用的结构化输出
func BinaryScoreJSON(score string) string {
	return fmt.Sprintf(`{"binary_score":%q}`, score)
}

// WithReasoning 模拟推理模型在正文前输出的 <think> 段
func WithReasoning(content string) string {
	return "<think>the user asks about agents, check the context first</think>\n" + content
}
