package statemachine

import "github.com/google/uuid"

// Node 图中顶点的身份
// 相等性只看名称，ID 仅用于诊断
type Node interface {
	// ID 返回创建时生成的唯一标识
	ID() uuid.UUID

	// Name 返回节点名称（图中的唯一键）
	Name() string

	// IsFinal 是否为终止状态
	IsFinal() bool
}

// State 带属性的图节点
type State interface {
	Node

	// Properties 返回有序属性集合（可修改）
	Properties() *Properties

	// Merge 合并同名状态的声明：final 取或，属性覆盖写入
	Merge(other State)
}

// SameNode 按名称比较两个节点
func SameNode(a, b Node) bool {
	if isNilNode(a) || isNilNode(b) {
		return isNilNode(a) && isNilNode(b)
	}
	return a.Name() == b.Name()
}

// isNilNode 接口本身为 nil，或持有本包状态类型的 nil 指针
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *BasicState:
		return v == nil
	case *FilteredState:
		return v == nil || isNilNode(v.State)
	case *BoundFilteredState:
		return v == nil || v.FilteredState == nil || isNilNode(v.FilteredState.State)
	}
	return false
}

// Transitioner 消息驱动状态机的公共接口
type Transitioner interface {
	// Current 返回当前状态
	Current() (State, bool)

	// GetNext 发送消息并返回新的状态，未发生转换时返回 false
	GetNext(msg Message) (State, bool)

	// Send 发送消息
	Send(msg Message) Transitioner

	// Next 发送 Empty 消息
	Next() Transitioner

	// Can 检查当前状态是否存在该消息对应的转换（不执行过滤器）
	Can(msg Message) bool

	// Reset 重置到图中第一个状态
	Reset() error
}
