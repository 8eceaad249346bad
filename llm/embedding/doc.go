/*
包 embedding 提供文本嵌入接口与 OpenAI 实现，用于构建与查询证据索引。

  - Provider：EmbedQuery、EmbedDocuments、Name、Model、Dimensions
  - OpenAIProvider：POST /v1/embeddings，按 BatchSize 分批，校验条数与维度

嵌入模型与维度是索引身份的一部分：索引记录构建时的 Model() 与
Dimensions()，加载时与当前配置比对。
*/
package embedding
