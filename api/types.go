package api

// =============================================================================
// 问答
// =============================================================================

// QueryRequest 是 POST /agentic-query 的请求体。
// @Description 自适应 RAG 问答请求
type QueryRequest struct {
	// 用户问题
	Question string `json:"question" example:"What are the types of agent memory?" binding:"required"`
}

// =============================================================================
// 入库
// =============================================================================

// IngestRequest 是 POST /save-data-vectordb 的请求体。
// @Description 证据库入库请求
type IngestRequest struct {
	// 待抓取的 URL
	URLs []string `json:"urls" binding:"required"`
	// 分块大小（字符），非正值使用服务端配置
	ChunkSize int `json:"chunk_size,omitempty" example:"500"`
	// 分块重叠（字符）
	ChunkOverlap int `json:"chunk_overlap,omitempty" example:"50"`
	// 兼容字段，服务端忽略
	DBPath string `json:"db_path,omitempty"`
}

// IngestResponse 是入库成功的响应体。
// @Description 证据库入库结果
type IngestResponse struct {
	Status    string   `json:"status" example:"success"`
	Message   string   `json:"message"`
	Sources   []string `json:"sources"`
	Chunks    int      `json:"chunks" example:"128"`
	IndexPath string   `json:"index_path" example:"./data/index"`
}

// =============================================================================
// 健康与版本
// =============================================================================

// VersionInfo 是 GET /version 的数据部分。
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}
