package statemachine

// Envelope 单次解析尝试的上下文 (origin, message, target, index)
type Envelope struct {
	Origin  State
	Message Message
	Target  State
	Index   *TransitionIndex
}

func (e Envelope) context(event FilterEvent) FilterContext {
	return FilterContext{
		Event:   event,
		Source:  e.Origin,
		Target:  e.Target,
		Message: e.Message,
		Index:   e.Index,
	}
}

// TransitionChecker 调度源状态与目标状态上的过滤器
type TransitionChecker interface {
	ValidateDeparture(env Envelope) Status
	ValidateArrival(env Envelope) Status
}

// DefaultChecker 默认检查器
type DefaultChecker struct{}

// ValidateDeparture 源状态为空或为终止状态时拒绝，否则交给源状态的过滤器
func (DefaultChecker) ValidateDeparture(env Envelope) Status {
	if isNilNode(env.Origin) || env.Origin.IsFinal() {
		return Abort
	}
	if f, ok := FilterOf(env.Origin); ok {
		return f.OnDispatch(env.context(EventDeparture))
	}
	return Proceed
}

// ValidateArrival 交给目标状态的过滤器
func (DefaultChecker) ValidateArrival(env Envelope) Status {
	if isNilNode(env.Target) {
		return Abort
	}
	if f, ok := FilterOf(env.Target); ok {
		return f.OnReceive(env.context(EventArrival))
	}
	return Proceed
}
