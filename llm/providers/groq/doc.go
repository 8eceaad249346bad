// Package groq 提供 Groq 推理服务的 Provider 适配。
// Groq 使用 OpenAI 兼容的 API 格式，基础路径为 /openai。
package groq
