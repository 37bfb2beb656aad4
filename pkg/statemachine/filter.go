package statemachine

// FilterEvent 过滤阶段
type FilterEvent int

const (
	// EventDeparture 离开源状态
	EventDeparture FilterEvent = iota
	// EventArrival 进入目标状态
	EventArrival
)

func (e FilterEvent) String() string {
	if e == EventArrival {
		return "ARRIVAL"
	}
	return "DEPARTURE"
}

// FilterContext 传给过滤器的上下文
type FilterContext struct {
	Event   FilterEvent
	Source  State
	Target  State
	Message Message
	Index   *TransitionIndex
}

// HandlerFunc 基于完整上下文的处理函数
type HandlerFunc func(ctx FilterContext) Status

// BoundHandlerFunc 只接收消息与节点的处理函数
// 派发阶段节点为源状态，接收阶段节点为目标状态
type BoundHandlerFunc func(msg Message, node State) Status

// MessageFilter 状态上的拦截器
type MessageFilter interface {
	// OnDispatch 决定是否允许离开
	OnDispatch(ctx FilterContext) Status

	// OnReceive 决定是否允许进入
	OnReceive(ctx FilterContext) Status
}

// Filter MessageFilter 的默认实现
// 查找顺序：精确消息 > Any > Proceed
type Filter struct {
	dispatch map[messageID]HandlerFunc
	receive  map[messageID]HandlerFunc
}

// NewFilter 创建空过滤器
func NewFilter() *Filter {
	return &Filter{
		dispatch: make(map[messageID]HandlerFunc),
		receive:  make(map[messageID]HandlerFunc),
	}
}

// HandleDispatch 注册派发处理函数，同一消息重复注册时覆盖
func (f *Filter) HandleDispatch(msg Message, fn HandlerFunc) {
	f.dispatch[msg.id()] = fn
}

// HandleReceive 注册接收处理函数
func (f *Filter) HandleReceive(msg Message, fn HandlerFunc) {
	f.receive[msg.id()] = fn
}

// RemoveDispatch 删除派发处理函数，删除 Any 只清除默认处理
func (f *Filter) RemoveDispatch(msg Message) {
	delete(f.dispatch, msg.id())
}

// RemoveReceive 删除接收处理函数
func (f *Filter) RemoveReceive(msg Message) {
	delete(f.receive, msg.id())
}

// OnDispatch 实现 MessageFilter
func (f *Filter) OnDispatch(ctx FilterContext) Status {
	return resolveHandler(f.dispatch, ctx)
}

// OnReceive 实现 MessageFilter
func (f *Filter) OnReceive(ctx FilterContext) Status {
	return resolveHandler(f.receive, ctx)
}

func resolveHandler(handlers map[messageID]HandlerFunc, ctx FilterContext) Status {
	if fn, ok := handlers[ctx.Message.id()]; ok && fn != nil {
		return fn(ctx)
	}
	if fn, ok := handlers[Any.id()]; ok && fn != nil {
		return fn(ctx)
	}
	return Proceed
}

func bindDispatch(fn BoundHandlerFunc) HandlerFunc {
	return func(ctx FilterContext) Status {
		return fn(ctx.Message, ctx.Source)
	}
}

func bindReceive(fn BoundHandlerFunc) HandlerFunc {
	return func(ctx FilterContext) Status {
		return fn(ctx.Message, ctx.Target)
	}
}

// filterCarrier 携带过滤器的状态
type filterCarrier interface {
	Filter() MessageFilter
}

type unwrapper interface {
	Unwrap() State
}

// FilterOf 沿装饰链查找状态上的过滤器
func FilterOf(s State) (MessageFilter, bool) {
	for s != nil {
		if c, ok := s.(filterCarrier); ok {
			if f := c.Filter(); f != nil {
				return f, true
			}
		}
		u, ok := s.(unwrapper)
		if !ok {
			break
		}
		s = u.Unwrap()
	}
	return nil, false
}
