package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encoding 日志输出格式
type Encoding string

const (
	EncodingConsole Encoding = "console" // [LEVEL] [time] [caller] msg k=v
	EncodingJSON    Encoding = "json"    // 每行一个 JSON 对象，便于采集
)

// ParseEncoding 解析输出格式，空字符串为 console
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingConsole:
		return EncodingConsole, nil
	case EncodingJSON:
		return EncodingJSON, nil
	}
	return EncodingConsole, fmt.Errorf("unknown log encoding %q", s)
}

// ZapLogger 基于 zap 的 Logger 实现
// f 系列方法走 SugaredLogger，调用位置与结构化方法一致
type ZapLogger struct {
	l  *zap.Logger
	s  *zap.SugaredLogger
	al *zap.AtomicLevel
}

var _ Logger = (*ZapLogger)(nil)

// New 创建 console 格式的日志，out 为 nil 时输出到 stderr
func New(out io.Writer, level Level, opts ...Option) *ZapLogger {
	return NewEncoded(out, level, EncodingConsole, opts...)
}

// NewEncoded 按指定格式创建日志
func NewEncoded(out io.Writer, level Level, enc Encoding, opts ...Option) *ZapLogger {
	if out == nil {
		out = os.Stderr
	}
	al := zap.NewAtomicLevelAt(toZapLevel(level))
	core := zapcore.NewCore(newEncoder(enc), zapcore.AddSync(out), al)
	return wrap(zap.New(core, opts...), &al)
}

// Nop 丢弃所有输出的日志
func Nop() *ZapLogger {
	return wrap(zap.NewNop(), nil)
}

// Named 返回带组件名的子日志，非 ZapLogger 实现以 component 字段代替
func Named(l Logger, component string) Logger {
	if zl, ok := l.(*ZapLogger); ok {
		return zl.Named(component)
	}
	return l.With(String("component", component))
}

func wrap(l *zap.Logger, al *zap.AtomicLevel) *ZapLogger {
	return &ZapLogger{l: l, s: l.Sugar(), al: al}
}

func newEncoder(enc Encoding) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller_line",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
	if enc == EncodingJSON {
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = bracketLevel
	cfg.EncodeTime = bracketTime
	cfg.EncodeCaller = bracketCaller
	cfg.EncodeName = bracketName
	return zapcore.NewConsoleEncoder(cfg)
}

const defaultTimeFormat = "2006-01-02 15:04:05"

func bracketLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

func bracketTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format(defaultTimeFormat) + "]")
}

func bracketCaller(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + caller.TrimmedPath() + "]")
}

func bracketName(name string, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + name + "]")
}

// Named 返回带组件名的子日志，多次调用以 . 连接
func (l *ZapLogger) Named(component string) *ZapLogger {
	return wrap(l.l.Named(component), l.al)
}

func (l *ZapLogger) SetLevel(level Level) {
	if l.al != nil {
		l.al.SetLevel(toZapLevel(level))
	}
}

// Enabled 判断级别是否会输出
func (l *ZapLogger) Enabled(level Level) bool {
	return l.l.Core().Enabled(toZapLevel(level))
}

func (l *ZapLogger) With(fields ...Field) Logger {
	return wrap(l.l.With(fields...), l.al)
}

// Zap 返回底层的 zap.Logger
func (l *ZapLogger) Zap() *zap.Logger { return l.l }

func (l *ZapLogger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *ZapLogger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *ZapLogger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *ZapLogger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }
func (l *ZapLogger) Panic(msg string, fields ...Field) { l.l.Panic(msg, fields...) }
func (l *ZapLogger) Fatal(msg string, fields ...Field) { l.l.Fatal(msg, fields...) }

func (l *ZapLogger) Debugf(format string, v ...interface{}) { l.s.Debugf(format, v...) }
func (l *ZapLogger) Infof(format string, v ...interface{})  { l.s.Infof(format, v...) }
func (l *ZapLogger) Warnf(format string, v ...interface{})  { l.s.Warnf(format, v...) }
func (l *ZapLogger) Errorf(format string, v ...interface{}) { l.s.Errorf(format, v...) }
func (l *ZapLogger) Panicf(format string, v ...interface{}) { l.s.Panicf(format, v...) }
func (l *ZapLogger) Fatalf(format string, v ...interface{}) { l.s.Fatalf(format, v...) }

// Sync 刷新缓冲
func (l *ZapLogger) Sync() error {
	return l.l.Sync()
}
