package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkerExists 同名协程已注册
	ErrWorkerExists = fmt.Errorf("worker already exists")

	// ErrWorkerNotFound 协程未注册
	ErrWorkerNotFound = fmt.Errorf("worker not found")

	// ErrShutdownTimeout 停止函数或协程在超时前没有结束
	ErrShutdownTimeout = fmt.Errorf("shutdown timeout")

	// ErrAlreadyRunning 运行中不能再添加协程或重复 Run
	ErrAlreadyRunning = fmt.Errorf("manager already running")

	// ErrWorkerPanic 协程发生 panic
	ErrWorkerPanic = fmt.Errorf("worker panicked")
)

// WorkerError 带协程名称的运行错误
type WorkerError struct {
	Worker string
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %s: %v", e.Worker, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// WorkerOf 返回导致退出的协程名称
func WorkerOf(err error) (string, bool) {
	var e *WorkerError
	if errors.As(err, &e) {
		return e.Worker, true
	}
	return "", false
}
