// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
包 database 封装证据索引文件（index.db）所用的 SQLite 连接。

Open 以 ReadWrite 或 ReadOnly 模式打开文件，驱动为纯 Go 的
glebarez/sqlite，连接数固定为 1 并设置 busy_timeout。DB 提供
Session / Tx / Ping / Close；gorm 的 SQL 日志经 GormLogger 写入 zap。
*/
package database
