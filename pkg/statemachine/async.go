package statemachine

import (
	"context"
	"sync"
)

// AsyncResult 异步发送的结果
type AsyncResult struct {
	State State
	OK    bool
}

// asyncItem 队列中的一条消息
type asyncItem struct {
	msg  Message
	done chan AsyncResult // 可为 nil
}

// AsyncMachine 通过单个 goroutine 串行处理消息的状态机
type AsyncMachine struct {
	*SyncMachine
	queue    chan asyncItem
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAsyncMachine 创建异步状态机
func NewAsyncMachine(m *Machine, queueSize int) *AsyncMachine {
	if queueSize < 0 {
		queueSize = 0
	}
	return &AsyncMachine{
		SyncMachine: NewSyncMachine(m),
		queue:       make(chan asyncItem, queueSize),
		stopCh:      make(chan struct{}),
	}
}

// Start 在后台启动消息处理
func (a *AsyncMachine) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.Run(context.Background())
	}()
}

// Run 在当前 goroutine 处理消息，直到 ctx 结束或 Stop 被调用
func (a *AsyncMachine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.stopCh:
			return nil
		case item := <-a.queue:
			state, ok := a.SyncMachine.GetNext(item.msg)
			if item.done != nil {
				item.done <- AsyncResult{State: state, OK: ok}
			}
		}
	}
}

// Stop 停止消息处理，队列中尚未处理的消息被丢弃
func (a *AsyncMachine) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
	a.wg.Wait()
}

// SendAsync 将消息放入队列
func (a *AsyncMachine) SendAsync(ctx context.Context, msg Message) error {
	return a.enqueue(ctx, asyncItem{msg: msg})
}

// SendWait 将消息放入队列并等待处理结果
func (a *AsyncMachine) SendWait(ctx context.Context, msg Message) (AsyncResult, error) {
	item := asyncItem{msg: msg, done: make(chan AsyncResult, 1)}
	if err := a.enqueue(ctx, item); err != nil {
		return AsyncResult{}, err
	}
	select {
	case res := <-item.done:
		return res, nil
	case <-a.stopCh:
		return AsyncResult{}, ErrMachineStopped
	case <-ctx.Done():
		return AsyncResult{}, ctx.Err()
	}
}

// QueueLength 返回队列长度
func (a *AsyncMachine) QueueLength() int {
	return len(a.queue)
}

func (a *AsyncMachine) enqueue(ctx context.Context, item asyncItem) error {
	select {
	case <-a.stopCh:
		return ErrMachineStopped
	default:
	}
	select {
	case a.queue <- item:
		return nil
	case <-a.stopCh:
		return ErrMachineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
