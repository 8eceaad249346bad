// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
Package types 提供 AdaptiveRAG 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 workflow、rag、llm、
api 等上层模块提供统一的类型契约。

# 核心类型

  - Error / ErrorCode: 结构化错误体系，含 HTTP 状态码与 Retryable 标记
  - Document: 证据片段（page_content + metadata）
  - JSONSchema: 判定输出的 JSON Schema（Object / String / Enum 构造）

# 错误工具链

  - AsError / IsErrorCode / IsRetryable / GetErrorCode
  - 常用构造：NewGraphConfigurationError / NewClassificationParseError /
    NewEvidenceStoreUnavailableError / NewWebSearchUnavailableError /
    NewMaxIterationsExceededError 等
*/
package types
