package statemachine

// Status 过滤器的单次判定结果
type Status struct {
	valid    bool
	redirect Message
	label    string
}

var (
	// Proceed 允许转换
	Proceed = Status{valid: true, label: "PROCEED"}

	// Abort 拒绝转换
	Abort = Status{valid: false, label: "ABORT"}
)

// Forward 要求调用方改用 msg 重新解析
func Forward(msg Message) Status {
	return Status{valid: true, redirect: msg, label: "FORWARD"}
}

// Valid 是否有效
func (s Status) Valid() bool { return s.valid }

// Redirect 返回重定向消息
func (s Status) Redirect() (Message, bool) {
	return s.redirect, s.redirect.IsValid()
}

// IsRedirect 是否要求重定向
func (s Status) IsRedirect() bool { return s.redirect.IsValid() }

func (s Status) String() string {
	if s.IsRedirect() {
		return s.label + "(" + s.redirect.String() + ")"
	}
	if s.label == "" {
		if s.valid {
			return "PROCEED"
		}
		return "ABORT"
	}
	return s.label
}
