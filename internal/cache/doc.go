// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

// Package cache 是 web 搜索结果的 Redis 缓存。
//
// Manager 只存 JSON 值，键统一加前缀；未命中返回 ErrCacheMiss，
// Close 之后的调用返回 ErrClosed。Ping 参与 /ready 就绪检查。
package cache
