package statemachine

import "sync"

// SyncMachine 为 Machine 加锁，可在多个 goroutine 间共享
type SyncMachine struct {
	mu sync.Mutex
	m  *Machine
}

// NewSyncMachine 包装状态机
func NewSyncMachine(m *Machine) *SyncMachine {
	if m == nil {
		m = NewMachine()
	}
	return &SyncMachine{m: m}
}

// Current 返回当前状态
func (s *SyncMachine) Current() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Current()
}

// GetNext 发送消息并返回新的状态
func (s *SyncMachine) GetNext(msg Message) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.GetNext(msg)
}

// Send 发送消息
func (s *SyncMachine) Send(msg Message) Transitioner {
	s.GetNext(msg)
	return s
}

// Next 发送 Empty 消息
func (s *SyncMachine) Next() Transitioner {
	return s.Send(Empty)
}

// Can 检查是否存在对应的转换
func (s *SyncMachine) Can(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Can(msg)
}

// Reset 重置到图中第一个状态
func (s *SyncMachine) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Reset()
}

// SetCurrent 设置当前状态
func (s *SyncMachine) SetCurrent(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.SetCurrent(name)
}

// Add 添加转换
func (s *SyncMachine) Add(t Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Add(t)
}

// Remove 删除转换
func (s *SyncMachine) Remove(t Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Remove(t)
}

// RemoveState 删除状态
func (s *SyncMachine) RemoveState(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.RemoveState(name)
}

// Prune 清理孤立状态
func (s *SyncMachine) Prune() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Prune()
}

// Do 在持有锁的情况下访问底层状态机
func (s *SyncMachine) Do(fn func(m *Machine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.m)
}

