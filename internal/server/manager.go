package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config 是单个监听端口的参数
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

type state int

const (
	stateIdle state = iota
	stateServing
	stateStopped
)

// Manager 运行一个 http.Server。
//
// 所有请求的 context 都派生自 Manager 持有的根 context：Shutdown 先等待
// 进行中的运行在 ShutdownTimeout 内结束，超时后取消根 context，让仍在
// 判定/生成的运行以取消结束，再强制关闭连接。
type Manager struct {
	name   string
	cfg    Config
	logger *zap.Logger

	srv        *http.Server
	rootCtx    context.Context
	cancelRoot context.CancelFunc
	failures   chan error

	mu    sync.Mutex
	state state
	ln    net.Listener
}

// NewManager name 只出现在日志里
func NewManager(name string, handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	rootCtx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		name:       name,
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "http_server"), zap.String("server", name)),
		rootCtx:    rootCtx,
		cancelRoot: cancel,
		failures:   make(chan error, 1),
	}
	m.srv = &http.Server{
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return m.rootCtx },
	}
	return m
}

// Start 绑定端口后立即返回，Serve 在后台运行
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateServing:
		return fmt.Errorf("server %s already started", m.name)
	case stateStopped:
		return fmt.Errorf("server %s is closed", m.name)
	}

	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", m.cfg.Addr, err)
	}
	m.ln = ln
	m.state = stateServing
	m.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	go func() {
		err := m.srv.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		m.logger.Error("serve failed", zap.Error(err))
		select {
		case m.failures <- err:
		default:
		}
	}()
	return nil
}

// Shutdown 可重复调用，未启动时只把状态置为关闭
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state
	m.state = stateStopped
	if prev != stateServing {
		m.cancelRoot()
		return nil
	}

	drainCtx := ctx
	if m.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		drainCtx, cancel = context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
		defer cancel()
	}

	err := m.srv.Shutdown(drainCtx)
	m.cancelRoot()
	m.ln = nil
	if err != nil {
		// 排空超时：运行已随根 context 取消，剩余连接直接断开
		m.logger.Warn("drain timed out, closing connections", zap.Error(err))
		if closeErr := m.srv.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return err
	}
	m.logger.Info("stopped")
	return nil
}

// Errors 上报 Serve 的异常退出，最多一个
func (m *Manager) Errors() <-chan error {
	return m.failures
}

// ListenAddr 实际监听地址，端口为 0 时可拿到系统分配的端口
func (m *Manager) ListenAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln == nil {
		return ""
	}
	return m.ln.Addr().String()
}
