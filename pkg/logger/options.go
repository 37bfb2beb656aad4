package logger

import "go.uber.org/zap"

type Option = zap.Option

// AddCaller 输出调用位置
func AddCaller() Option { return zap.AddCaller() }

// AddCallerSkip 调用位置向上跳过的层数
func AddCallerSkip(skip int) Option { return zap.AddCallerSkip(skip) }

// AddStacktrace 在 level 及以上级别输出堆栈
func AddStacktrace(level Level) Option { return zap.AddStacktrace(toZapLevel(level)) }
