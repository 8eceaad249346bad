// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
Package workflow 提供带类型的状态图编排与执行引擎。

# 概述

状态图由动作节点、普通边、条件路由和终止标记 End 组成，允许环。
每个动作节点读取当前状态并返回一个部分更新，由 MergeFunc 合并为新状态；
每个条件路由声明完整的标签域以及标签到目标节点的映射。

# 核心类型

  - GraphBuilder: Fluent API 构建状态图，Build 时做完整校验
  - Graph: 构建完成后的不可变图
  - Route: 决策点：Decide + Labels + Targets
  - Executor: 执行器，支持步数上限、取消、OTel span 与指标回调
  - Execution: 一次运行的最终状态、运行 ID 与执行路径

# 校验规则

Build 在以下情况返回 GRAPH_CONFIGURATION 错误：缺少起点、无节点、
边或路由指向未知节点、声明的标签未映射或映射了未声明的标签、
节点没有出边或有多条出边、节点从起点不可达。

# 执行语义

  - 动作节点每执行一次计一步，超过上限返回 MAX_ITERATIONS_EXCEEDED
  - 每步开始前检查 ctx，超时返回 TIMEOUT，取消返回 RUN_CANCELED
  - 运行时决策返回未映射的标签同样视为 GRAPH_CONFIGURATION
*/
package workflow
