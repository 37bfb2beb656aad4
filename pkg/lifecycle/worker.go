package lifecycle

import (
	"context"
	"fmt"
	"sync"
)

// RunFunc 协程主体，ctx 结束时应当返回
type RunFunc func(ctx context.Context) error

// StopFunc 关闭不感知 ctx 的资源，例如文件监听器
type StopFunc func(ctx context.Context) error

// Worker 受管理的协程
// Run 中的 panic 被转换为 ErrWorkerPanic，返回的错误统一包装为 *WorkerError
type Worker struct {
	name     string
	runFunc  RunFunc
	stopFunc StopFunc

	mu  sync.Mutex
	err error
}

// WorkerOption 协程配置选项
type WorkerOption func(*Worker)

// NewWorker 创建协程
func NewWorker(name string, runFunc RunFunc, opts ...WorkerOption) *Worker {
	w := &Worker{name: name, runFunc: runFunc}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WithStopFunc 设置停止函数，退出时按添加顺序的逆序调用
func WithStopFunc(stopFunc StopFunc) WorkerOption {
	return func(w *Worker) {
		w.stopFunc = stopFunc
	}
}

// Name 返回协程名称
func (w *Worker) Name() string { return w.name }

// Run 运行协程主体
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
		if err != nil {
			err = &WorkerError{Worker: w.name, Err: err}
		}
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
	}()
	return w.runFunc(ctx)
}

// Stop 调用停止函数
func (w *Worker) Stop(ctx context.Context) error {
	if w.stopFunc == nil {
		return nil
	}
	return w.stopFunc(ctx)
}

// Err 返回最近一次 Run 的结果
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
