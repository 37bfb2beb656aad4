package document

import (
	"fmt"

	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

// 哨兵消息在文档中的名称
const (
	SentinelEmpty = "empty"
	SentinelNull  = "null"
)

// Document 状态图的文档形式
type Document struct {
	Name        string
	States      []StateDoc
	Transitions []TransitionDoc
}

// StateDoc 状态声明
type StateDoc struct {
	Name       string
	Final      bool
	Current    bool
	Properties *statemachine.Properties
}

// TransitionDoc 转换声明
// Message、Any、Sentinel 三者只能设置一个，Message 为 nil 表示未设置（空字符串是合法的键）
type TransitionDoc struct {
	Source   string
	Target   string
	Message  *string
	Any      bool
	Sentinel string
}

// MessageOf 将文档中的消息描述转为 Message
func (t TransitionDoc) MessageOf() (statemachine.Message, error) {
	set := 0
	if t.Message != nil {
		set++
	}
	if t.Any {
		set++
	}
	if t.Sentinel != "" {
		set++
	}
	if set != 1 {
		return statemachine.Message{}, fmt.Errorf("transition %s -> %s: exactly one of message, any, sentinel is required", t.Source, t.Target)
	}

	switch {
	case t.Any:
		return statemachine.Any, nil
	case t.Sentinel == SentinelEmpty:
		return statemachine.Empty, nil
	case t.Sentinel == SentinelNull:
		return statemachine.Null, nil
	case t.Sentinel != "":
		return statemachine.Message{}, fmt.Errorf("transition %s -> %s: unknown sentinel %q", t.Source, t.Target, t.Sentinel)
	}
	return statemachine.NewMessage(*t.Message), nil
}

// Label 边上显示的文字
func (t TransitionDoc) Label() string {
	switch {
	case t.Any:
		return "*"
	case t.Sentinel == SentinelEmpty:
		return "ε"
	case t.Sentinel != "":
		return t.Sentinel
	case t.Message != nil:
		return *t.Message
	}
	return ""
}

func transitionDoc(source string, msg statemachine.Message, target string) TransitionDoc {
	doc := TransitionDoc{Source: source, Target: target}
	switch {
	case msg.IsAny():
		doc.Any = true
	case msg.IsEmpty():
		doc.Sentinel = SentinelEmpty
	case msg.IsNull():
		doc.Sentinel = SentinelNull
	default:
		key := msg.Key()
		doc.Message = &key
	}
	return doc
}

// FromMachine 导出状态机的图结构与当前状态
func FromMachine(m *statemachine.Machine) *Document {
	doc := &Document{Name: "fsm"}

	current := ""
	if cur, ok := m.Current(); ok {
		current = cur.Name()
	}

	for _, entry := range m.Index().Adjacency() {
		s := entry.State
		doc.States = append(doc.States, StateDoc{
			Name:       s.Name(),
			Final:      s.IsFinal(),
			Current:    s.Name() == current,
			Properties: s.Properties().Clone(),
		})
		for _, e := range entry.Edges {
			doc.Transitions = append(doc.Transitions, transitionDoc(s.Name(), e.Message, e.Target.Name()))
		}
	}
	return doc
}

// Apply 通过构建器导入文档，文档中标记为 current 的状态成为当前状态
func Apply(doc *Document, b *statemachine.Builder) error {
	if doc == nil {
		return fmt.Errorf("apply document: document is nil")
	}

	current := ""
	for _, sd := range doc.States {
		opts := []statemachine.StateOption{statemachine.WithProperties(sd.Properties)}
		if sd.Final {
			opts = append(opts, statemachine.AsFinal())
		}
		b.State(statemachine.NewState(sd.Name, opts...))

		if sd.Current {
			if current != "" {
				return fmt.Errorf("apply document: both %q and %q are marked current", current, sd.Name)
			}
			current = sd.Name
		}
	}

	for i, td := range doc.Transitions {
		msg, err := td.MessageOf()
		if err != nil {
			return fmt.Errorf("apply document: transitions[%d]: %w", i, err)
		}
		b.Transition(statemachine.NewTransition(
			statemachine.NewState(td.Source), msg, statemachine.NewState(td.Target),
		))
	}

	if err := b.Err(); err != nil {
		return err
	}
	if current != "" {
		return b.Machine().SetCurrent(current)
	}
	return nil
}
