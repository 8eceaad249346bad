package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/adaptiverag/api/handlers"
	"github.com/BaSui01/adaptiverag/config"
	"github.com/BaSui01/adaptiverag/internal/metrics"
	"github.com/BaSui01/adaptiverag/internal/server"
	"github.com/BaSui01/adaptiverag/rag"
	"github.com/BaSui01/adaptiverag/types"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 AdaptiveRAG 的 HTTP 服务
type Server struct {
	cfg    *config.Config
	app    *App
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 索引文件变化时重新加载证据库（外部 ingest 命令写入的索引）
	indexWatcher *config.FileWatcher

	// Rate limiter 与 watcher 生命周期
	cancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, app *App, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		app:    app,
		logger: logger,
	}
}

// =============================================================================
// 🛣️ 路由
// =============================================================================

// routes 路由依赖
type routes struct {
	health    *handlers.HealthHandler
	query     *handlers.QueryHandler
	ingest    *handlers.IngestHandler
	staticDir string
}

// newRouter 注册全部 HTTP 端点
func newRouter(rt routes) *mux.Router {
	r := mux.NewRouter()

	// 健康检查
	r.HandleFunc("/health", rt.health.HandleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ready", rt.health.HandleReady).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", rt.health.HandleVersion(Version, BuildTime, GitCommit)).Methods(http.MethodGet)

	// 问答与入库
	r.HandleFunc("/agentic-query", rt.query.HandleQuery).Methods(http.MethodPost)
	r.HandleFunc("/save-data-vectordb", rt.ingest.HandleIngest).Methods(http.MethodPost)

	// 静态页面
	toUI := http.RedirectHandler("/ui/", http.StatusTemporaryRedirect)
	r.Handle("/", toUI).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/ui", toUI).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/ui/").
		Handler(http.StripPrefix("/ui/", http.FileServer(http.Dir(rt.staticDir)))).
		Methods(http.MethodGet, http.MethodHead)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		handlers.WriteErrorMessage(w, http.StatusNotFound, types.ErrInvalidRequest,
			fmt.Sprintf("no route for %s %s", req.Method, req.URL.Path), nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		handlers.WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), nil)
	})
	return r
}

// isPublicPath 健康检查与 UI 不需要 API Key
func isPublicPath(path string) bool {
	switch path {
	case "/", "/ui", "/health", "/ready", "/version":
		return true
	}
	return strings.HasPrefix(path, "/ui/")
}

// buildHandler 套上中间件链
func buildHandler(ctx context.Context, router http.Handler, cfg config.ServerConfig, collector *metrics.Collector, logger *zap.Logger) http.Handler {
	chain := []Middleware{
		Recovery(logger),
		RequestID(),
		SecurityHeaders(),
		Instrument(logger, collector),
		CORS(cfg.CORSAllowedOrigins),
	}
	if cfg.RateLimitRPS > 0 {
		chain = append(chain, RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
	}
	if len(cfg.APIKeys) > 0 {
		chain = append(chain, APIKeyAuth(cfg.APIKeys, isPublicPath, logger))
	}
	return Chain(router, chain...)
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动 HTTP 服务、Metrics 服务与索引监听
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	health := handlers.NewHealthHandler(s.logger)
	checks := s.app.readinessChecks()
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		health.RegisterCheck(handlers.NewFuncCheck(name, checks[name]))
	}

	router := newRouter(routes{
		health:    health,
		query:     handlers.NewQueryHandler(s.app.pipeline, s.cfg.Server.RequestTimeout, s.logger),
		ingest:    handlers.NewIngestHandler(s.app.ingestor, s.logger),
		staticDir: s.cfg.Server.StaticDir,
	})
	handler := buildHandler(ctx, router, s.cfg.Server, s.app.metrics, s.logger)

	s.httpManager = server.NewManager("http", handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	if err := s.startIndexWatcher(ctx); err != nil {
		// 监听失败不影响服务，只是外部入库后需要重启
		s.logger.Warn("index watcher disabled", zap.Error(err))
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("index_path", s.cfg.Index.Path),
		zap.Strings("ready_checks", names),
		zap.Bool("api_key_auth", len(s.cfg.Server.APIKeys) > 0),
	)
	return nil
}

// startMetricsServer 在独立端口暴露 /metrics，端口为 0 时不启动
func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort == 0 {
		return nil
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager("metrics", metricsMux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.ReadTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.metricsManager.Start()
}

// startIndexWatcher 轮询索引文件，变化后重新加载
func (s *Server) startIndexWatcher(ctx context.Context) error {
	if s.cfg.Index.WatchInterval <= 0 {
		return nil
	}
	watcher, err := config.NewFileWatcher(
		[]string{rag.IndexFile(s.cfg.Index.Path)},
		config.WithPollInterval(s.cfg.Index.WatchInterval),
		config.WithWatcherLogger(s.logger),
	)
	if err != nil {
		return err
	}

	watcher.OnChange(func(event config.FileEvent) {
		if event.Op == config.FileOpRemove {
			s.logger.Warn("evidence index removed", zap.String("path", event.Path))
			return
		}
		if err := s.app.store.Reload(ctx); err != nil {
			s.logger.Error("evidence index reload failed", zap.String("path", event.Path), zap.Error(err))
			return
		}
		s.logger.Info("evidence index reloaded", zap.String("path", event.Path), zap.Stringer("op", event.Op))
	})

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	s.indexWatcher = watcher
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Wait 阻塞直到 ctx 结束或任一服务器异常退出
func (s *Server) Wait(ctx context.Context) error {
	var httpErrs, metricsErrs <-chan error
	if s.httpManager != nil {
		httpErrs = s.httpManager.Errors()
	}
	if s.metricsManager != nil {
		metricsErrs = s.metricsManager.Errors()
	}

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
		return nil
	case err := <-httpErrs:
		return fmt.Errorf("http server: %w", err)
	case err := <-metricsErrs:
		return fmt.Errorf("metrics server: %w", err)
	}
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Starting graceful shutdown...")

	// 0. 停止 rate limiter 清理 goroutine 与索引监听
	if s.cancel != nil {
		s.cancel()
	}
	if s.indexWatcher != nil {
		_ = s.indexWatcher.Stop()
	}

	var errs []error

	// 1. 关闭 HTTP 服务器，等待进行中的运行结束
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
	return errors.Join(errs...)
}
