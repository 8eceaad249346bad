// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
# 概述

Package rag 实现自适应 RAG 管线：按问题路由到证据库或 web 搜索，
对检索结果逐篇评分，必要时改写问题重新检索，生成答案后再做
幻觉与答案两段式评分，直到得到可用答案或触达步数上限。

# 核心类型

  - State / Update / Merge: 单次运行的工作状态与节点增量
  - Nodes: 动作节点（retrieve、web_search、grade_documents、transform_query、generate）
    与决策函数（RouteQuestion、DecideToGenerate、GradeGeneration）
  - Pipeline: 基于 workflow 包构建并执行 [GraphName] 图
  - PromptSet: 版本化提示词，支持校验和锁定
  - EvidenceStore: 持久化索引之上的 top-k 检索，首次检索时惰性加载
  - Ingestor: 抓取 URL、分块、嵌入并原子替换索引

# 证据索引

索引以 SQLite 文件保存在 index 目录下（[IndexFileName]），
清单记录嵌入模型与维度。加载时身份不一致视为索引不可用，
必须重新入库；写入先落临时文件再 rename。

# 错误

所有失败都以 *types.Error 返回，错误码见 types 包：
判定结构不符为 CLASSIFICATION_PARSE，判定服务不可用为
JUDGMENT_SERVICE_UNAVAILABLE，索引问题为 EVIDENCE_STORE_UNAVAILABLE，
超出步数为 MAX_ITERATIONS_EXCEEDED。
*/
package rag
