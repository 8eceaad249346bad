// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
# 概述

包 structured 让判定服务按给定 JSON Schema 返回结构化结果，
并把原始回复解析为 Go 类型。

路由、相关性评分、幻觉评分与答案评分都通过 [StructuredOutput] 调用：
在消息前追加一条携带 Schema 的 system 指令，调用 [llm.Provider]，
再从回复中提取 JSON 对象并解码。

# 解析流程

  - 去除推理模型的 <think> 段（[llm.StripReasoning]）
  - 去除 markdown 代码块包裹
  - 截取第一个 { 到最后一个 } 之间的内容
  - json.Unmarshal 到目标类型
  - 目标类型实现 [Validator] 时调用 Validate()

解析失败返回 [*ParseError]，其中保留原始回复；Provider 调用失败的错误原样返回。
*/
package structured
