// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
Package main 提供 AdaptiveRAG 服务端程序入口。

# 概述

cmd/adaptiverag 是自适应 RAG 服务的可执行入口（cobra），提供 HTTP 服务、
命令行入库与问答、健康检查和版本查询。配置按 默认值 → YAML → dotenv/环境变量
加载一次，之后显式传入各组件。

# 核心类型

  - App: 由配置构建的协作方：嵌入、证据库、入库器、管线、缓存
  - Server: 管理 HTTP、Metrics 双端口、索引文件监听及优雅关闭
  - Middleware: HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、ingest <url>...、query <question>、health、version
  - 路由（gorilla/mux）：/health、/ready、/version、POST /agentic-query、
    POST /save-data-vectordb、/ui/ 静态目录，/ 重定向到 /ui/
  - 中间件链：Recovery、RequestID、SecurityHeaders、Instrument（span、访问日志、
    HTTP 指标）、CORS、RateLimiter（基于 IP）、APIKeyAuth（X-API-Key，配置了才启用）
  - 索引监听：外部 ingest 写入新索引后自动 Reload
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
