package statemachine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry 按名称管理多个状态机
type Registry struct {
	mu       sync.RWMutex
	machines map[string]*SyncMachine
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		machines: make(map[string]*SyncMachine),
	}
}

// Register 注册状态机
func (r *Registry) Register(name string, m *SyncMachine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.machines[name]; exists {
		return fmt.Errorf("%w: %s", ErrMachineExists, name)
	}
	r.machines[name] = m
	return nil
}

// Unregister 移除状态机
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.machines, name)
}

// Get 获取状态机
func (r *Registry) Get(name string) (*SyncMachine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, exists := r.machines[name]
	return m, exists
}

// Names 返回排序后的名称列表
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.machines))
	for name := range r.machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count 返回状态机数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.machines)
}

// Send 向指定状态机发送消息
func (r *Registry) Send(name string, msg Message) (State, bool, error) {
	m, exists := r.Get(name)
	if !exists {
		return nil, false, fmt.Errorf("%w: %s", ErrMachineNotFound, name)
	}
	state, ok := m.GetNext(msg)
	return state, ok, nil
}

// SendAll 并发向所有状态机发送同一消息，返回发生转换的状态机及其新状态
// ctx 取消后尚未开始的发送被跳过
func (r *Registry) SendAll(ctx context.Context, msg Message) (map[string]State, error) {
	machines := r.snapshot()

	var mu sync.Mutex
	results := make(map[string]State, len(machines))

	g, gctx := errgroup.WithContext(ctx)
	for name, m := range machines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if state, ok := m.GetNext(msg); ok {
				mu.Lock()
				results[name] = state
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

// States 返回所有已初始化状态机的当前状态名称
func (r *Registry) States() map[string]string {
	states := make(map[string]string)
	for name, m := range r.snapshot() {
		if cur, ok := m.Current(); ok {
			states[name] = cur.Name()
		}
	}
	return states
}

// ResetAll 重置所有状态机
func (r *Registry) ResetAll() map[string]error {
	results := make(map[string]error)
	for name, m := range r.snapshot() {
		results[name] = m.Reset()
	}
	return results
}

func (r *Registry) snapshot() map[string]*SyncMachine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	machines := make(map[string]*SyncMachine, len(r.machines))
	for name, m := range r.machines {
		machines[name] = m
	}
	return machines
}
