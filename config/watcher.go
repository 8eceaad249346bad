package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileOp 文件变化类型
type FileOp int

const (
	FileOpCreate FileOp = iota
	FileOpWrite
	FileOpRemove
)

func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "CREATE"
	case FileOpWrite:
		return "WRITE"
	case FileOpRemove:
		return "REMOVE"
	}
	return "UNKNOWN"
}

// FileEvent 一次已稳定的文件变化
type FileEvent struct {
	Path string
	Op   FileOp
	At   time.Time
}

// fingerprint 用修改时间与大小识别文件内容变化
type fingerprint struct {
	exists bool
	mod    int64
	size   int64
}

func stat(path string) (fingerprint, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fingerprint{}, nil
	}
	if err != nil {
		return fingerprint{}, err
	}
	return fingerprint{exists: true, mod: info.ModTime().UnixNano(), size: info.Size()}, nil
}

// WatcherOption 配置 FileWatcher
type WatcherOption func(*FileWatcher)

// WithPollInterval 轮询间隔，非正值忽略
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *FileWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// FileWatcher 轮询一组文件。
//
// 一次变化要在连续两轮轮询中保持相同的指纹才会回调，
// 这样外部进程还在写入的索引文件不会被提前加载。
type FileWatcher struct {
	paths    []string
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	callbacks []func(FileEvent)
	reported  map[string]fingerprint
	pending   map[string]fingerprint
	stop      chan struct{}
	done      chan struct{}
}

// NewFileWatcher 允许路径暂不存在，出现后报告为 CREATE
func NewFileWatcher(paths []string, opts ...WatcherOption) (*FileWatcher, error) {
	w := &FileWatcher{
		paths:    append([]string(nil), paths...),
		interval: time.Second,
		logger:   zap.NewNop(),
		reported: make(map[string]fingerprint, len(paths)),
		pending:  make(map[string]fingerprint),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "file_watcher"))

	for _, p := range w.paths {
		fp, err := stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		w.reported[p] = fp
	}
	return w, nil
}

// OnChange 注册回调，回调在轮询 goroutine 中串行执行
func (w *FileWatcher) OnChange(cb func(FileEvent)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, cb)
	w.mu.Unlock()
}

// Start 启动后台轮询，直到 ctx 结束或 Stop
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return errors.New("watcher already running")
	}
	w.stop, w.done = make(chan struct{}), make(chan struct{})
	go w.run(ctx, w.stop, w.done)

	w.logger.Info("watching files", zap.Strings("paths", w.paths), zap.Duration("interval", w.interval))
	return nil
}

// Stop 等待轮询 goroutine 退出，可重复调用
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	stop, done := w.stop, w.done
	w.stop, w.done = nil, nil
	w.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

// Running 是否正在轮询
func (w *FileWatcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stop != nil
}

func (w *FileWatcher) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case now := <-ticker.C:
			for _, evt := range w.poll(now) {
				w.emit(evt)
			}
		}
	}
}

// poll 返回本轮已稳定的变化
func (w *FileWatcher) poll(now time.Time) []FileEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	var events []FileEvent
	for _, p := range w.paths {
		fp, err := stat(p)
		if err != nil {
			w.logger.Warn("stat failed", zap.String("path", p), zap.Error(err))
			continue
		}
		prev := w.reported[p]
		if fp == prev {
			delete(w.pending, p)
			continue
		}
		if candidate, ok := w.pending[p]; !ok || candidate != fp {
			// 第一次看到，或仍在变化
			w.pending[p] = fp
			continue
		}

		delete(w.pending, p)
		w.reported[p] = fp
		op := FileOpWrite
		switch {
		case !fp.exists:
			op = FileOpRemove
		case !prev.exists:
			op = FileOpCreate
		}
		events = append(events, FileEvent{Path: p, Op: op, At: now})
	}
	return events
}

func (w *FileWatcher) emit(evt FileEvent) {
	w.mu.Lock()
	callbacks := append(([]func(FileEvent))(nil), w.callbacks...)
	w.mu.Unlock()

	w.logger.Debug("file changed", zap.String("path", evt.Path), zap.Stringer("op", evt.Op))
	for _, cb := range callbacks {
		cb(evt)
	}
}
