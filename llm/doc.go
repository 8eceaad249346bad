// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
包 llm 提供判定与生成服务的统一接入层。

# 概述

管线中的路由、相关性评分、幻觉评分、答案评分、问题改写与答案生成
都通过 [Provider] 接口调用远端模型服务。具体实现位于 providers 子包
（OpenAI、Groq，均为 OpenAI 兼容协议），embedding 子包提供向量化，
structured 子包提供结构化输出解析，tools 子包提供 web 搜索。

# 核心类型

  - [Provider]：Completion / Name
  - [ChatRequest] / [ChatResponse] / [Message]
  - [Error]：带错误码、HTTP 状态与可重试标记的上游错误
  - [RateLimitedProvider]：令牌桶限流 + 单次调用超时 + 调用指标

# 辅助函数

  - [StripReasoning]：去除推理模型输出中的 <think> 段
*/
package llm
