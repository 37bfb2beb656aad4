package statemachine

import (
	"fmt"

	"go.uber.org/multierr"
)

// Builder 以链式调用构建状态机
// 所有修改都经过转换索引的 Add/AddState，错误累积到 Err()
type Builder struct {
	machine     *Machine
	currentFrom State
	currentMsg  Message
	err         error
}

// NewBuilder 创建构建器
func NewBuilder(opts ...Option) *Builder {
	return &Builder{machine: NewMachine(opts...)}
}

// BuilderFor 在已有状态机上继续构建
func BuilderFor(m *Machine) *Builder {
	return &Builder{machine: m}
}

// State 声明状态，同名状态的声明会被合并
func (b *Builder) State(states ...State) *Builder {
	for _, s := range states {
		b.append(b.machine.AddState(s))
	}
	return b
}

// From 设置转换的源状态
func (b *Builder) From(s State) *Builder {
	b.reset()
	b.currentFrom = s
	return b
}

// On 设置触发消息
func (b *Builder) On(msg Message) *Builder {
	b.currentMsg = msg
	return b
}

// OnKey 等同于 On(NewMessage(key))
func (b *Builder) OnKey(key string) *Builder {
	return b.On(NewMessage(key))
}

// OnAny 以 Any 作为触发消息
func (b *Builder) OnAny() *Builder {
	return b.On(Any)
}

// OnEmpty 以 Empty 作为触发消息
func (b *Builder) OnEmpty() *Builder {
	return b.On(Empty)
}

// To 设置目标状态并添加转换
func (b *Builder) To(target State) *Builder {
	if b.currentFrom == nil && !b.currentMsg.IsValid() {
		b.append(fmt.Errorf("builder: To(%s) called without From/On", nodeName(target)))
		return b
	}
	b.append(b.machine.Add(NewTransition(b.currentFrom, b.currentMsg, target)))
	b.reset()
	return b
}

// SelfLoop 添加自环，未指定消息时使用 Empty
func (b *Builder) SelfLoop(s State, msgs ...Message) *Builder {
	if len(msgs) == 0 {
		msgs = []Message{Empty}
	}
	for _, msg := range msgs {
		b.append(b.machine.Add(NewTransition(s, msg, s)))
	}
	return b
}

// Transition 添加已构造的转换
func (b *Builder) Transition(t Transition) *Builder {
	b.append(b.machine.Add(t))
	return b
}

// Transitions 批量添加，单个失败不影响其余转换
func (b *Builder) Transitions(ts ...Transition) *Builder {
	for _, t := range ts {
		b.Transition(t)
	}
	return b
}

// Err 返回累积的错误
func (b *Builder) Err() error {
	return b.err
}

// Machine 返回正在构建的状态机
func (b *Builder) Machine() *Machine {
	return b.machine
}

// Build 返回状态机与累积的错误
// 图非空且尚未设置当前状态时，初始化到第一个状态
func (b *Builder) Build() (*Machine, error) {
	if _, ok := b.machine.Current(); !ok && b.machine.Index().Size() > 0 {
		_ = b.machine.Init()
	}
	return b.machine, b.err
}

// MustBuild 同 Build，出错时 panic
func (b *Builder) MustBuild() *Machine {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

func (b *Builder) append(err error) {
	b.err = multierr.Append(b.err, err)
}

func (b *Builder) reset() {
	b.currentFrom = nil
	b.currentMsg = Message{}
}
