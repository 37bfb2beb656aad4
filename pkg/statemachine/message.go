package statemachine

import "fmt"

type messageKind uint8

const (
	kindInvalid messageKind = iota
	kindKeyed
	kindEmpty
	kindAny
	kindNull
)

// Message 触发转换的消息
// 分为按内容比较的普通消息和三个哨兵消息（Empty/Any/Null），零值表示缺失
type Message struct {
	kind    messageKind
	key     string
	payload func() any
}

var (
	// Empty 表示“无输入”，用于无条件自触发
	Empty = Message{kind: kindEmpty}

	// Any 通配消息，精确匹配失败时回退使用
	Any = Message{kind: kindAny}

	// Null 空消息标记
	Null = Message{kind: kindNull}
)

// NewMessage 创建按内容比较的消息
func NewMessage(key string) Message {
	return Message{kind: kindKeyed, key: key}
}

// NewMessageWithPayload 创建携带负载的消息，负载不参与相等比较
func NewMessageWithPayload(key string, payload func() any) Message {
	return Message{kind: kindKeyed, key: key, payload: payload}
}

// messageID 可比较的消息键
type messageID struct {
	kind messageKind
	key  string
}

func (m Message) id() messageID {
	return messageID{kind: m.kind, key: m.key}
}

// Key 返回消息内容，哨兵消息返回空字符串
func (m Message) Key() string { return m.key }

// Payload 返回负载
func (m Message) Payload() (any, bool) {
	if m.payload == nil {
		return nil, false
	}
	return m.payload(), true
}

// Equal 比较两个消息
func (m Message) Equal(other Message) bool {
	return m.id() == other.id()
}

// IsValid 零值消息无效
func (m Message) IsValid() bool { return m.kind != kindInvalid }

// IsSentinel 是否为哨兵消息
func (m Message) IsSentinel() bool {
	return m.kind == kindEmpty || m.kind == kindAny || m.kind == kindNull
}

// IsAny 是否为通配消息
func (m Message) IsAny() bool { return m.kind == kindAny }

// IsEmpty 是否为 Empty 消息
func (m Message) IsEmpty() bool { return m.kind == kindEmpty }

// IsNull 是否为 Null 消息
func (m Message) IsNull() bool { return m.kind == kindNull }

func (m Message) String() string {
	switch m.kind {
	case kindKeyed:
		return m.key
	case kindEmpty:
		return "EMPTY"
	case kindAny:
		return "ANY"
	case kindNull:
		return "NULL"
	default:
		return "<nil>"
	}
}

// GoString 便于调试输出区分普通消息与哨兵
func (m Message) GoString() string {
	if m.kind == kindKeyed {
		return fmt.Sprintf("Message(%q)", m.key)
	}
	return "Message(" + m.String() + ")"
}
