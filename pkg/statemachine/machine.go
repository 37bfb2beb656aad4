package statemachine

import (
	"fmt"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
)

// DefaultMaxRedirects 单次发送允许的最大重定向次数
const DefaultMaxRedirects = 32

// TransitionEvent 一次 GetNext 的结果通知
type TransitionEvent struct {
	From      State
	To        State // 未提交时为 nil
	Message   Message
	Redirects int
	Committed bool
}

// Observer 接收转换通知
type Observer func(ev TransitionEvent)

// Option 状态机配置选项
type Option func(*Machine)

// WithTransitionIndex 使用已有的转换索引
func WithTransitionIndex(idx *TransitionIndex) Option {
	return func(m *Machine) {
		if idx != nil {
			m.index = idx
		}
	}
}

// WithValidator 为新建的转换索引设置校验器
func WithValidator(v Validator) Option {
	return func(m *Machine) {
		m.indexOpts = append(m.indexOpts, WithIndexValidator(v))
	}
}

// WithChecker 设置转换检查器
func WithChecker(c TransitionChecker) Option {
	return func(m *Machine) {
		if c != nil {
			m.checker = c
		}
	}
}

// WithMaxRedirects 设置重定向上限，超过后按 Abort 处理
func WithMaxRedirects(n int) Option {
	return func(m *Machine) {
		if n >= 0 {
			m.maxRedirects = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = logger.Named(l, "machine")
			m.indexOpts = append(m.indexOpts, WithIndexLogger(logger.Named(l, "index")))
		}
	}
}

// WithObserver 注册转换观察者
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
}

// Machine 消息驱动的有限状态机
// 非并发安全，需要并发访问时使用 SyncMachine
type Machine struct {
	current      State
	index        *TransitionIndex
	checker      TransitionChecker
	maxRedirects int
	log          logger.Logger
	observers    []Observer

	indexOpts []IndexOption
}

// NewMachine 创建状态机
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		checker:      DefaultChecker{},
		maxRedirects: DefaultMaxRedirects,
		log:          logger.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.index == nil {
		m.index = NewTransitionIndex(m.indexOpts...)
	}
	m.indexOpts = nil
	return m
}

// Index 返回转换索引
func (m *Machine) Index() *TransitionIndex { return m.index }

// Add 添加转换，覆盖旧映射时当前状态不会被当作孤立顶点移除
func (m *Machine) Add(t Transition) error { return m.index.AddKeep(t, m.keep()...) }

// AddAll 批量添加转换，遇到第一个错误即返回
func (m *Machine) AddAll(ts ...Transition) error {
	for i, t := range ts {
		if err := m.Add(t); err != nil {
			return fmt.Errorf("add transition[%d]: %w", i, err)
		}
	}
	return nil
}

// AddState 添加顶点
func (m *Machine) AddState(s State) error { return m.index.AddState(s) }

// Remove 删除转换
func (m *Machine) Remove(t Transition) error { return m.index.Remove(t) }

// RemoveState 删除顶点；删除的是当前状态时状态机回到未初始化
func (m *Machine) RemoveState(name string) error {
	if err := m.index.RemoveState(name); err != nil {
		return err
	}
	if m.current != nil && m.current.Name() == name {
		m.current = nil
	}
	return nil
}

// Init 将当前状态设为图中第一个顶点
func (m *Machine) Init() error {
	first, ok := m.index.First()
	if !ok {
		return ErrEmptyGraph
	}
	m.current = first
	return nil
}

// Reset 等同于 Init
func (m *Machine) Reset() error { return m.Init() }

// SetCurrent 设置当前状态
func (m *Machine) SetCurrent(name string) error {
	s, ok := m.index.Find(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrStateNotFound, name)
	}
	m.current = s
	return nil
}

// Current 返回当前状态
func (m *Machine) Current() (State, bool) {
	if m.current == nil {
		return nil, false
	}
	// 顶点实例可能被 ReplaceState 替换，也可能已从图中移除
	s, ok := m.index.Find(m.current.Name())
	if !ok {
		m.current = nil
		return nil, false
	}
	m.current = s
	return s, true
}

// Can 检查当前状态是否存在该消息（或 Any）对应的转换，不执行过滤器
func (m *Machine) Can(msg Message) bool {
	cur, ok := m.Current()
	if !ok {
		return false
	}
	_, ok = m.resolve(cur, msg)
	return ok
}

// Send 发送消息
func (m *Machine) Send(msg Message) Transitioner {
	m.GetNext(msg)
	return m
}

// Next 发送 Empty 消息
func (m *Machine) Next() Transitioner {
	return m.Send(Empty)
}

// GetNext 解析并执行一次转换
// 返回新的当前状态；未发生转换时返回 false，当前状态保持调用前的值
func (m *Machine) GetNext(msg Message) (State, bool) {
	start, ok := m.Current()
	if !ok || !msg.IsValid() {
		return nil, false
	}

	origin := start
	departure := true
	redirects := 0

	for {
		target, found := m.resolve(origin, msg)
		if !found {
			return m.reject(start, msg, redirects)
		}

		env := Envelope{Origin: origin, Message: msg, Target: target, Index: m.index}

		status, phase := Proceed, EventDeparture
		if departure {
			status = m.checker.ValidateDeparture(env)
		}
		if status.Valid() && !status.IsRedirect() {
			phase = EventArrival
			status = m.checker.ValidateArrival(env)
		}

		if next, ok := status.Redirect(); ok {
			redirects++
			if redirects > m.maxRedirects {
				m.log.Warn("redirect limit exceeded, aborting",
					logger.String("from", start.Name()),
					logger.String("message", msg.String()),
					logger.Int("limit", m.maxRedirects),
				)
				return m.reject(start, msg, redirects)
			}
			if phase == EventArrival {
				// 到达阶段的重定向：先完成这一跳，再从新状态完整检查
				origin = target
				departure = true
			} else {
				// 离开阶段的重定向：不提交，跳过下一轮的离开检查
				departure = false
			}
			msg = next
			continue
		}

		if !status.Valid() {
			return m.reject(start, msg, redirects)
		}

		m.current = target
		m.log.Debug("transition committed",
			logger.String("from", start.Name()),
			logger.String("to", target.Name()),
			logger.String("message", msg.String()),
			logger.Int("redirects", redirects),
		)
		m.notify(TransitionEvent{From: start, To: target, Message: msg, Redirects: redirects, Committed: true})
		return target, true
	}
}

// Prune 清理孤立顶点，当前状态始终保留
func (m *Machine) Prune() []State {
	if cur, ok := m.Current(); ok {
		return m.index.Prune(cur.Name())
	}
	return m.index.Prune()
}

// keep 图修改时需要保留的顶点
func (m *Machine) keep() []string {
	if m.current == nil {
		return nil
	}
	return []string{m.current.Name()}
}

// resolve 精确匹配，失败后回退到 Any
func (m *Machine) resolve(origin State, msg Message) (State, bool) {
	if target, ok := m.index.Lookup(origin.Name(), msg); ok {
		return target, true
	}
	return m.index.Lookup(origin.Name(), Any)
}

func (m *Machine) reject(start State, msg Message, redirects int) (State, bool) {
	m.current = start
	m.notify(TransitionEvent{From: start, Message: msg, Redirects: redirects})
	return nil, false
}

func (m *Machine) notify(ev TransitionEvent) {
	for _, o := range m.observers {
		o(ev)
	}
}
