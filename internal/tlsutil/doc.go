// Package tlsutil 构造所有出站调用（判定/生成/嵌入服务、web 搜索、网页抓取）
// 共用的 HTTP 客户端。
package tlsutil
