package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector 汇总服务的 Prometheus 指标。
// 它同时满足 workflow.StepRecorder、llm.CallRecorder、tools.CacheRecorder
// 与 rag.IngestRecorder，各层只依赖自己那一个接口。
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpBytes    *prometheus.HistogramVec

	nodeRuns    *prometheus.CounterVec
	nodeLatency *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	runLatency  *prometheus.HistogramVec
	runSteps    *prometheus.HistogramVec

	llmCalls   *prometheus.CounterVec
	llmLatency *prometheus.HistogramVec
	llmTokens  *prometheus.CounterVec

	ingestions     *prometheus.CounterVec
	ingestLatency  prometheus.Histogram
	ingestedChunks prometheus.Counter
	cacheLookups   *prometheus.CounterVec
}

// NewCollector 注册到默认 registry，进程内每个 namespace 只能调用一次
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace, logger)
}

// NewCollectorWith 注册到指定的 Registerer
func NewCollectorWith(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	f := promauto.With(reg)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}

	// 一次运行包含多轮判定与生成，耗时桶放到分钟级
	runBuckets := []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300}

	c := &Collector{
		httpRequests: counter("http_requests_total", "HTTP requests by route and status class.", "method", "path", "status"),
		httpLatency:  histogram("http_request_duration_seconds", "HTTP request latency.", []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, "method", "path"),
		httpBytes:    histogram("http_response_size_bytes", "HTTP response body size.", prometheus.ExponentialBuckets(100, 10, 8), "method", "path"),

		nodeRuns:    counter("workflow_node_executions_total", "Graph node executions by outcome.", "graph", "node", "status"),
		nodeLatency: histogram("workflow_node_duration_seconds", "Graph node latency.", []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60}, "graph", "node"),
		runs:        counter("workflow_runs_total", "Graph runs by outcome.", "graph", "outcome"),
		runLatency:  histogram("workflow_run_duration_seconds", "Graph run latency.", runBuckets, "graph"),
		runSteps:    histogram("workflow_run_steps", "Node executions per graph run.", []float64{1, 2, 3, 4, 6, 8, 12, 16, 25, 50}, "graph"),

		llmCalls:   counter("llm_requests_total", "Judge and generator calls by outcome.", "provider", "model", "status"),
		llmLatency: histogram("llm_request_duration_seconds", "Judge and generator call latency.", []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}, "provider", "model"),
		llmTokens:  counter("llm_tokens_used_total", "Tokens reported by the upstream service.", "provider", "model", "type"),

		ingestions: counter("ingestions_total", "Evidence store ingestions by outcome.", "status"),
		ingestLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ingestion_duration_seconds",
			Help: "Evidence store ingestion latency.", Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ingestedChunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingested_chunks_total",
			Help: "Chunks written to the evidence index.",
		}),
		cacheLookups: counter("cache_lookups_total", "Cache lookups by result (hit or miss).", "cache", "result"),
	}

	if logger != nil {
		logger.Debug("metrics registered", zap.String("namespace", namespace))
	}
	return c
}

func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	c.httpRequests.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpLatency.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpBytes.WithLabelValues(method, path).Observe(float64(responseSize))
}

func (c *Collector) RecordNodeExecution(graph, node, status string, duration time.Duration) {
	c.nodeRuns.WithLabelValues(graph, node, status).Inc()
	c.nodeLatency.WithLabelValues(graph, node).Observe(duration.Seconds())
}

// RecordRun outcome 取值见 workflow 包：success、error、max_steps、canceled
func (c *Collector) RecordRun(graph, outcome string, steps int, duration time.Duration) {
	c.runs.WithLabelValues(graph, outcome).Inc()
	c.runLatency.WithLabelValues(graph).Observe(duration.Seconds())
	c.runSteps.WithLabelValues(graph).Observe(float64(steps))
}

func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmCalls.WithLabelValues(provider, model, status).Inc()
	c.llmLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokens.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokens.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

func (c *Collector) RecordIngestion(status string, chunks int, duration time.Duration) {
	c.ingestions.WithLabelValues(status).Inc()
	c.ingestLatency.Observe(duration.Seconds())
	c.ingestedChunks.Add(float64(chunks))
}

func (c *Collector) RecordCacheLookup(cacheName string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(cacheName, result).Inc()
}

// statusClass 把状态码折叠为 2xx..5xx，避免标签基数随状态码增长
func statusClass(code int) string {
	switch code / 100 {
	case 2:
		return "2xx"
	case 3:
		return "3xx"
	case 4:
		return "4xx"
	case 5:
		return "5xx"
	}
	return "unknown"
}
