package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Manager 生命周期管理器
// 所有协程运行在同一个 errgroup 中，任一协程返回错误即触发整体退出
type Manager struct {
	mu              sync.Mutex
	workers         []*Worker
	workerContexts  map[string]context.CancelFunc
	hooks           Hooks
	signals         []os.Signal
	shutdownTimeout time.Duration
	rootCtx         context.Context
	log             logger.Logger
	cancel          context.CancelFunc
	running         bool
	done            chan struct{}
}

// NewManager 创建生命周期管理器
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		workerContexts:  make(map[string]context.CancelFunc),
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		shutdownTimeout: 30 * time.Second,
		rootCtx:         context.Background(),
		log:             logger.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// AddWorker 添加协程，必须在 Run 之前调用
func (m *Manager) AddWorker(name string, runFunc RunFunc, opts ...WorkerOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}
	if m.find(name) != nil {
		return ErrWorkerExists
	}

	m.workers = append(m.workers, NewWorker(name, runFunc, opts...))
	return nil
}

// StopWorker 单独停止指定协程，其他协程继续运行
func (m *Manager) StopWorker(name string) error {
	m.mu.Lock()
	worker := m.find(name)
	cancel, hasCancel := m.workerContexts[name]
	m.mu.Unlock()

	if worker == nil {
		return ErrWorkerNotFound
	}

	if hasCancel {
		cancel()
	}

	ctx, cancelTimeout := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancelTimeout()
	return worker.Stop(ctx)
}

// OnStartup 注册启动钩子
func (m *Manager) OnStartup(fn HookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks.onStartup = append(m.hooks.onStartup, fn)
}

// OnWorkerStart 注册协程启动钩子
func (m *Manager) OnWorkerStart(fn WorkerHookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks.onWorkerStart = append(m.hooks.onWorkerStart, fn)
}

// OnWorkerExit 注册协程退出钩子
func (m *Manager) OnWorkerExit(fn WorkerHookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks.onWorkerExit = append(m.hooks.onWorkerExit, fn)
}

// OnShutdown 注册退出钩子
func (m *Manager) OnShutdown(fn HookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks.onShutdown = append(m.hooks.onShutdown, fn)
}

// OnTimeout 注册超时钩子
func (m *Manager) OnTimeout(fn HookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks.onTimeout = append(m.hooks.onTimeout, fn)
}

// Run 启动管理器并等待退出
// 退出条件：收到信号、调用 Shutdown、任一协程出错、全部协程自行结束
func (m *Manager) Run() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	ctx, cancel := context.WithCancel(m.rootCtx)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	hooks := m.hooks
	workers := append([]*Worker(nil), m.workers...)
	m.mu.Unlock()

	defer close(done)
	defer cancel()

	if len(m.signals) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, m.signals...)
		defer stop()
	}

	// 调用启动钩子
	if err := hooks.callStartup(ctx); err != nil {
		return err
	}

	// 启动所有协程
	g, gctx := errgroup.WithContext(ctx)
	m.mu.Lock()
	for _, w := range workers {
		wctx, wcancel := context.WithCancel(gctx)
		m.workerContexts[w.Name()] = wcancel
		g.Go(func() error {
			defer wcancel()
			return m.runWorker(wctx, w, &hooks)
		})
	}
	m.mu.Unlock()

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- g.Wait()
	}()

	var runErr error
	select {
	case <-gctx.Done():
		// 收到信号、手动退出或协程出错
	case runErr = <-waitCh:
		// 全部协程已经结束
		waitCh = nil
	}

	cancel()
	return m.shutdown(workers, &hooks, waitCh, runErr)
}

// Shutdown 手动触发退出并等待 Run 返回
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

/* ------------------------------ 内部方法 ------------------------------ */

func (m *Manager) find(name string) *Worker {
	for _, w := range m.workers {
		if w.Name() == name {
			return w
		}
	}
	return nil
}

// runWorker 运行单个协程，context.Canceled 视为正常退出
func (m *Manager) runWorker(ctx context.Context, w *Worker, hooks *Hooks) error {
	hooks.callWorker(hooks.onWorkerStart, w.Name(), nil)
	err := w.Run(ctx)
	hooks.callWorker(hooks.onWorkerExit, w.Name(), err)

	m.mu.Lock()
	delete(m.workerContexts, w.Name())
	m.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		m.log.Error("worker exited with error", logger.String("worker", w.Name()), logger.Err(err))
		return err
	}
	return nil
}

// shutdown 执行退出流程，waitCh 为 nil 表示协程已经全部结束
func (m *Manager) shutdown(workers []*Worker, hooks *Hooks, waitCh <-chan error, runErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	// 调用停止函数（LIFO顺序）
	var errs []error
	for i := len(workers) - 1; i >= 0; i-- {
		if err := workers[i].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", workers[i].Name(), err))
		}
	}

	// 等待所有协程退出
	if waitCh != nil {
		select {
		case runErr = <-waitCh:
		case <-ctx.Done():
			_ = callAll(ctx, hooks.onTimeout)
			return ErrShutdownTimeout
		}
	}

	// 调用退出钩子
	if err := callAll(ctx, hooks.onShutdown); err != nil {
		errs = append(errs, err)
	}

	if runErr != nil {
		if len(errs) > 0 {
			m.log.Warn("shutdown errors after worker failure", logger.Err(errors.Join(errs...)))
		}
		return runErr
	}
	return errors.Join(errs...)
}
