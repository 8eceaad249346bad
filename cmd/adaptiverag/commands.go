package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/adaptiverag/config"
	"github.com/BaSui01/adaptiverag/internal/metrics"
	"github.com/BaSui01/adaptiverag/internal/telemetry"
	"github.com/BaSui01/adaptiverag/rag"
)

// metricsNamespace Prometheus 指标前缀
const metricsNamespace = "adaptiverag"

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func newServeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *globalOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting AdaptiveRAG",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, Version, logger)
	if err != nil {
		// Tracer 与 Shutdown 在 nil 上安全
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		otelProviders = nil
	}

	app, err := newApp(cfg, metrics.NewCollector(metricsNamespace, logger), logger, true,
		withTracer(otelProviders.Tracer(telemetry.PipelineTracerName)))
	if err != nil {
		return err
	}
	defer app.Close()

	// 没有索引也能启动：web_search 路径可用，/ready 报告索引缺失
	if err := app.store.Check(parent); err != nil {
		logger.Warn("evidence index not loaded yet", zap.Error(err))
	}

	srv := NewServer(cfg, app, logger)
	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	waitErr := srv.Wait(ctx)

	shutdownCtx := context.Background()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if err := otelProviders.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown error", zap.Error(err))
	}

	logger.Info("AdaptiveRAG stopped")
	return waitErr
}

// =============================================================================
// 📥 ingest 命令
// =============================================================================

func newIngestCommand(opts *globalOptions) *cobra.Command {
	var chunkSize, chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest <url>...",
		Short: "Fetch URLs, chunk and embed them, and replace the evidence index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			app, err := newApp(cfg, metrics.NewCollector(metricsNamespace, logger), logger, false)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := app.ingestor.Ingest(ctx, rag.IngestRequest{
				URLs:         args,
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			})
			if err != nil {
				return err
			}
			return printIngestResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Chunk size in characters (default from index.chunk_size)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "Chunk overlap in characters (default from index.chunk_overlap)")
	return cmd
}

func printIngestResult(w io.Writer, result *rag.IngestResult) error {
	_, err := fmt.Fprintf(w, "indexed %d chunks from %d sources into %s (%s)\n",
		result.Chunks, len(result.Sources), result.IndexPath, result.Duration.Round(time.Millisecond))
	return err
}

// =============================================================================
// ❓ query 命令
// =============================================================================

func newQueryCommand(opts *globalOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Run the adaptive pipeline once and print the final state as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			app, err := newApp(cfg, metrics.NewCollector(metricsNamespace, logger), logger, true)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout <= 0 {
				timeout = cfg.Server.RequestTimeout
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			exec, err := app.pipeline.Execute(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			logger.Info("query finished",
				zap.String("run_id", exec.RunID),
				zap.Int("steps", len(exec.Steps)),
				zap.Duration("duration", exec.Duration))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(exec.State)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Run deadline (default from server.request_timeout)")
	return cmd
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func newHealthCommand() *cobra.Command {
	var (
		addr    string
		ready   bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/health"
			if ready {
				path = "/ready"
			}
			return checkHealth(cmd.Context(), &http.Client{Timeout: timeout}, strings.TrimRight(addr, "/")+path, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", fmt.Sprintf("http://localhost:%d", config.DefaultServerConfig().HTTPPort), "Server address")
	cmd.Flags().BoolVar(&ready, "ready", false, "Check readiness instead of liveness")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	return cmd
}

func checkHealth(ctx context.Context, client *http.Client, url string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("health check failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	_, err = fmt.Fprintln(out, "OK")
	return err
}
