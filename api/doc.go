// Package api 定义 AdaptiveRAG HTTP API 的请求与响应类型。
//
// # API Overview
//
//   - POST /agentic-query: 自适应 RAG 问答，run id 在 X-Run-ID 响应头
//   - POST /save-data-vectordb: 抓取 URL 并重建证据索引
//   - GET  /health, /ready, /version
//   - GET  /ui/: 静态前端
//
// 除入库成功响应外，所有响应都使用 handlers.Response 信封：
//
//	{"success": false, "error": {"code": "EVIDENCE_STORE_UNAVAILABLE", "message": "..."}}
//
// # Authentication
//
// 配置了 server.api_keys 时，除健康检查外的端点需要 X-API-Key 请求头：
//
//	X-API-Key: your-api-key
//
// # Base URL
//
//	http://localhost:8000
package api
