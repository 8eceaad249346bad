// Package openai 提供 OpenAI Chat Completions 的 Provider 适配，
// 基于 openaicompat，额外支持 Organization header。
package openai
