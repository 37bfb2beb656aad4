package lifecycle

import (
	"context"
	"errors"
)

// HookFunc 钩子函数
type HookFunc func(ctx context.Context) error

// WorkerHookFunc 协程钩子函数
type WorkerHookFunc func(name string, err error)

// Hooks 钩子集合
type Hooks struct {
	onStartup     []HookFunc
	onWorkerStart []WorkerHookFunc
	onWorkerExit  []WorkerHookFunc
	onShutdown    []HookFunc
	onTimeout     []HookFunc
}

// callStartup 调用启动钩子，遇到错误立即返回
func (h *Hooks) callStartup(ctx context.Context) error {
	for _, fn := range h.onStartup {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hooks) callWorker(fns []WorkerHookFunc, name string, err error) {
	for _, fn := range fns {
		fn(name, err)
	}
}

// callAll 调用全部钩子并合并错误
func callAll(ctx context.Context, fns []HookFunc) error {
	var errs []error
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
