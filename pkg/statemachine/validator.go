package statemachine

import (
	"fmt"
	"strings"
)

// Operation 图修改操作
type Operation int

const (
	// OpAdd 添加转换
	OpAdd Operation = iota
	// OpRemove 删除转换
	OpRemove
)

func (o Operation) String() string {
	if o == OpRemove {
		return "REMOVE"
	}
	return "ADD"
}

// FailurePolicy 校验失败后的处理策略
type FailurePolicy int

const (
	// PolicyThrow 返回错误，不修改图
	PolicyThrow FailurePolicy = iota
	// PolicyProceed 忽略校验结果，照常修改
	PolicyProceed
	// PolicyIgnore 静默丢弃，不返回错误
	PolicyIgnore
)

func (p FailurePolicy) String() string {
	switch p {
	case PolicyProceed:
		return "PROCEED"
	case PolicyIgnore:
		return "IGNORE"
	default:
		return "THROW"
	}
}

// ParseFailurePolicy 解析策略名称（不区分大小写）
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "throw":
		return PolicyThrow, nil
	case "proceed":
		return PolicyProceed, nil
	case "ignore":
		return PolicyIgnore, nil
	}
	return PolicyThrow, fmt.Errorf("unknown failure policy %q", s)
}

// ValidationResult 校验结果
type ValidationResult struct {
	Valid       bool
	Description string
	Err         error
}

// Accept 通过
func Accept() ValidationResult {
	return ValidationResult{Valid: true}
}

// Reject 拒绝
func Reject(description string, err error) ValidationResult {
	return ValidationResult{Valid: false, Description: description, Err: err}
}

// Validator 决定一次图修改是否被允许
type Validator interface {
	Validate(t Transition, idx *TransitionIndex, op Operation) ValidationResult
	FailurePolicy() FailurePolicy
}

// DefaultValidator 默认校验器
type DefaultValidator struct {
	Policy FailurePolicy
}

// NewDefaultValidator 创建默认校验器
func NewDefaultValidator(policy FailurePolicy) *DefaultValidator {
	return &DefaultValidator{Policy: policy}
}

// FailurePolicy 实现 Validator
func (v *DefaultValidator) FailurePolicy() FailurePolicy { return v.Policy }

// Validate 实现 Validator
func (v *DefaultValidator) Validate(t Transition, idx *TransitionIndex, op Operation) ValidationResult {
	if isNilNode(t.Origin) {
		return Reject("origin is required", ErrNilOrigin)
	}
	if !t.Message.IsValid() {
		return Reject("message is required", ErrNilMessage)
	}
	if isNilNode(t.Target) {
		return Reject("target is required", ErrNilTarget)
	}

	switch op {
	case OpAdd:
		if t.Origin.IsFinal() {
			return Reject("final state cannot be an origin", ErrFinalOrigin)
		}
		// 图中同名顶点才是规范实例
		if idx != nil {
			if existing, ok := idx.Find(t.Origin.Name()); ok && existing.IsFinal() {
				return Reject("final state cannot be an origin", ErrFinalOrigin)
			}
		}
	case OpRemove:
		if idx == nil || !idx.Contains(t) {
			return Reject("no such mapping", ErrTransitionNotFound)
		}
	}
	return Accept()
}

// Rule 领域规则，返回 nil 表示通过
type Rule func(t Transition, idx *TransitionIndex, op Operation) error

// RuleValidator 先执行默认校验，再依次执行自定义规则
type RuleValidator struct {
	DefaultValidator
	rules []Rule
}

// NewRuleValidator 创建带自定义规则的校验器
func NewRuleValidator(policy FailurePolicy, rules ...Rule) *RuleValidator {
	return &RuleValidator{
		DefaultValidator: DefaultValidator{Policy: policy},
		rules:            rules,
	}
}

// Validate 实现 Validator
func (v *RuleValidator) Validate(t Transition, idx *TransitionIndex, op Operation) ValidationResult {
	if res := v.DefaultValidator.Validate(t, idx, op); !res.Valid {
		return res
	}
	for _, rule := range v.rules {
		if err := rule(t, idx, op); err != nil {
			return Reject(err.Error(), err)
		}
	}
	return Accept()
}

// DenyTarget 禁止以指定状态为目标的添加操作
func DenyTarget(name string) Rule {
	return func(t Transition, _ *TransitionIndex, op Operation) error {
		if op == OpAdd && t.Target != nil && t.Target.Name() == name {
			return fmt.Errorf("transitions into %q are not allowed", name)
		}
		return nil
	}
}
