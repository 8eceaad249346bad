// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 AdaptiveRAG HTTP API 的请求处理器实现。

# 核心类型

  - QueryHandler: POST /agentic-query，运行图并返回最终状态
  - IngestHandler: POST /save-data-vectordb，重建证据索引
  - HealthHandler: /health、/ready（可注册 HealthCheck）与 /version
  - Response: 统一 JSON 响应结构（success + data + error + timestamp）

# 错误映射

WriteError 接受任意 error，经 types.AsError 归类后按错误码映射状态码，
例如 MAX_ITERATIONS_EXCEEDED → 508，RUN_CANCELED → 499。
失败响应从不携带运行的中间状态。
*/
package handlers
