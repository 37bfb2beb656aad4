package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrNilOrigin 转换缺少源状态
	ErrNilOrigin = fmt.Errorf("transition origin is nil")

	// ErrNilMessage 转换缺少消息
	ErrNilMessage = fmt.Errorf("transition message is nil")

	// ErrNilTarget 转换缺少目标状态
	ErrNilTarget = fmt.Errorf("transition target is nil")

	// ErrFinalOrigin 终止状态不能作为转换的源
	ErrFinalOrigin = fmt.Errorf("transition origin is final")

	// ErrNilState 传入的状态为空
	ErrNilState = fmt.Errorf("state is nil")

	// ErrStateNotFound 当状态不存在时返回
	ErrStateNotFound = fmt.Errorf("state not found")

	// ErrTransitionNotFound 当转换不存在时返回
	ErrTransitionNotFound = fmt.Errorf("transition not found")

	// ErrEmptyGraph 图中没有任何状态
	ErrEmptyGraph = fmt.Errorf("transition graph is empty")

	// ErrMachineNotFound 注册表中没有该状态机
	ErrMachineNotFound = fmt.Errorf("machine not found")

	// ErrMachineExists 注册表中已存在同名状态机
	ErrMachineExists = fmt.Errorf("machine already registered")

	// ErrMachineStopped 异步状态机已停止
	ErrMachineStopped = fmt.Errorf("machine stopped")
)

// ValidationError 校验器拒绝了一次图修改
type ValidationError struct {
	Transition  Transition
	Operation   Operation
	Description string
	Err         error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s %s rejected", e.Operation, e.Transition)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError 判断是否为校验器拒绝
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsStructuralError 判断是否为转换结构错误
func IsStructuralError(err error) bool {
	return errors.Is(err, ErrNilOrigin) ||
		errors.Is(err, ErrNilMessage) ||
		errors.Is(err, ErrNilTarget) ||
		errors.Is(err, ErrFinalOrigin)
}

// IsNotFoundError 判断是否为状态或转换不存在
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrStateNotFound) || errors.Is(err, ErrTransitionNotFound)
}
