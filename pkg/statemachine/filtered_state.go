package statemachine

// FilteredState 为状态附加消息过滤器的装饰器
// 身份（名称、终止标记、属性）全部转发给被包装的状态，图中按名称查找不受影响
type FilteredState struct {
	State
	filter *Filter
}

// NewFilteredState 包装状态
func NewFilteredState(inner State) *FilteredState {
	return &FilteredState{State: inner, filter: NewFilter()}
}

// OnDispatch 注册派发处理函数
func (s *FilteredState) OnDispatch(msg Message, fn HandlerFunc) *FilteredState {
	s.filter.HandleDispatch(msg, fn)
	return s
}

// OnReceive 注册接收处理函数
func (s *FilteredState) OnReceive(msg Message, fn HandlerFunc) *FilteredState {
	s.filter.HandleReceive(msg, fn)
	return s
}

// RemoveDispatch 删除派发处理函数
func (s *FilteredState) RemoveDispatch(msg Message) *FilteredState {
	s.filter.RemoveDispatch(msg)
	return s
}

// RemoveReceive 删除接收处理函数
func (s *FilteredState) RemoveReceive(msg Message) *FilteredState {
	s.filter.RemoveReceive(msg)
	return s
}

// Filter 返回过滤器
func (s *FilteredState) Filter() MessageFilter { return s.filter }

// Unwrap 返回被包装的状态
func (s *FilteredState) Unwrap() State { return s.State }

func (s *FilteredState) String() string {
	return s.Name() + "[filtered]"
}

// BoundFilteredState 额外支持 (message, node) 形式的处理函数
type BoundFilteredState struct {
	*FilteredState
}

// NewBoundFilteredState 包装状态
func NewBoundFilteredState(inner State) *BoundFilteredState {
	return &BoundFilteredState{FilteredState: NewFilteredState(inner)}
}

// OnDispatchFunc 注册派发处理函数，node 为源状态
func (s *BoundFilteredState) OnDispatchFunc(msg Message, fn BoundHandlerFunc) *BoundFilteredState {
	s.filter.HandleDispatch(msg, bindDispatch(fn))
	return s
}

// OnReceiveFunc 注册接收处理函数，node 为目标状态
func (s *BoundFilteredState) OnReceiveFunc(msg Message, fn BoundHandlerFunc) *BoundFilteredState {
	s.filter.HandleReceive(msg, bindReceive(fn))
	return s
}

// OnDispatch 注册派发处理函数
func (s *BoundFilteredState) OnDispatch(msg Message, fn HandlerFunc) *BoundFilteredState {
	s.FilteredState.OnDispatch(msg, fn)
	return s
}

// OnReceive 注册接收处理函数
func (s *BoundFilteredState) OnReceive(msg Message, fn HandlerFunc) *BoundFilteredState {
	s.FilteredState.OnReceive(msg, fn)
	return s
}
