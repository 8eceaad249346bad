// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
包 providers 是判定与生成服务的公共适配层。groq 与 openai 子包都走
OpenAI 兼容的 /v1/chat/completions 协议，共用本包的请求与响应结构体，
HTTP 往返由 openaicompat 子包完成。

  - OpenAICompat* 系列: 线上请求/响应结构体
  - MapHTTPError: HTTP 状态码到 llm.Error 的映射，529 视为过载
  - ReadErrorMessage: 解析 {"error":{"message":...}}，失败回退原始文本
  - ConvertMessagesToOpenAI / ToLLMChatResponse: 消息与响应格式转换
  - ChooseModel: 请求模型优先，其次默认模型，最后兜底模型
  - BearerTokenHeaders: 设置 Authorization 头
*/
package providers
