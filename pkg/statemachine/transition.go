package statemachine

import "fmt"

// Transition 定义状态转换规则 (origin, message, target)
type Transition struct {
	Origin  State   // 源状态
	Message Message // 触发消息
	Target  State   // 目标状态
}

// NewTransition 创建转换
func NewTransition(origin State, msg Message, target State) Transition {
	return Transition{Origin: origin, Message: msg, Target: target}
}

// Validate 结构校验，与图的内容无关
func (t Transition) Validate() error {
	switch {
	case isNilNode(t.Origin):
		return fmt.Errorf("%w: %s", ErrNilOrigin, t)
	case !t.Message.IsValid():
		return fmt.Errorf("%w: %s", ErrNilMessage, t)
	case isNilNode(t.Target):
		return fmt.Errorf("%w: %s", ErrNilTarget, t)
	case t.Origin.IsFinal():
		return fmt.Errorf("%w: %s", ErrFinalOrigin, t)
	}
	return nil
}

// Equal 按字段比较
func (t Transition) Equal(other Transition) bool {
	return SameNode(t.Origin, other.Origin) &&
		t.Message.Equal(other.Message) &&
		SameNode(t.Target, other.Target)
}

func (t Transition) String() string {
	return fmt.Sprintf("%s --%s--> %s", nodeName(t.Origin), t.Message, nodeName(t.Target))
}

func nodeName(n Node) string {
	if isNilNode(n) {
		return "<nil>"
	}
	return n.Name()
}
