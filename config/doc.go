// Package config 提供 AdaptiveRAG 的配置管理功能。
//
// 配置在启动时加载一次并显式传给各构造函数：默认值、YAML 文件、
// ADAPTIVERAG_ 前缀环境变量与可选的 .env 文件依次覆盖，
// GROQ_API_KEY / OPENAI_API_KEY / TAVILY_API_KEY 填充仍为空的密钥。
// Validate 检查结构，ValidateCredentials 检查密钥。
//
// FileWatcher 以轮询方式监听文件变更，指纹连续两轮不变才回调，
// 服务进程用它感知其他进程写入的证据索引。
package config
