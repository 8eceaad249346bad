// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑：OTLP gRPC 导出 span 与指标，
// 并为管线提供 tracer。关闭时使用 noop 实现，不连接任何外部服务。
package telemetry
