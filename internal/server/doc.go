// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP 服务器生命周期管理。

Manager 封装 net/http.Server：Start 非阻塞监听，Serve 的异步错误通过
Errors() 通道上报，Shutdown 在 ShutdownTimeout 内优雅关闭且可重复调用。
cmd/adaptiverag 用它分别运行 API 服务与 /metrics 服务。
*/
package server
