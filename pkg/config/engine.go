package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

// EngineConfig 状态机引擎配置
type EngineConfig struct {
	Log      LogConfig      `yaml:"log" json:"log" ini:"log" envPrefix:"LOG_"`
	Machine  MachineConfig  `yaml:"machine" json:"machine" ini:"machine" envPrefix:"MACHINE_"`
	Document DocumentConfig `yaml:"document" json:"document" ini:"document" envPrefix:"DOCUMENT_"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level         string `yaml:"level" json:"level" ini:"level" env:"LEVEL"`
	Encoding      string `yaml:"encoding" json:"encoding" ini:"encoding" env:"ENCODING"` // console 或 json
	File          string `yaml:"file" json:"file" ini:"file" env:"FILE"`       // 为空时输出到 stderr
	Rotate        string `yaml:"rotate" json:"rotate" ini:"rotate" env:"ROTATE"` // size 或 time
	MaxSizeMB     int    `yaml:"max_size_mb" json:"max_size_mb" ini:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups    int    `yaml:"max_backups" json:"max_backups" ini:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays    int    `yaml:"max_age_days" json:"max_age_days" ini:"max_age_days" env:"MAX_AGE_DAYS"`
	RotationHours int    `yaml:"rotation_hours" json:"rotation_hours" ini:"rotation_hours" env:"ROTATION_HOURS"`
	Compress      bool   `yaml:"compress" json:"compress" ini:"compress" env:"COMPRESS"`
}

// MachineConfig 状态机配置
type MachineConfig struct {
	MaxRedirects  int    `yaml:"max_redirects" json:"max_redirects" ini:"max_redirects" env:"MAX_REDIRECTS"`
	FailurePolicy string `yaml:"failure_policy" json:"failure_policy" ini:"failure_policy" env:"FAILURE_POLICY"`
	HistoryLimit  int    `yaml:"history_limit" json:"history_limit" ini:"history_limit" env:"HISTORY_LIMIT"`
}

// DocumentConfig 图文档配置
type DocumentConfig struct {
	Path           string `yaml:"path" json:"path" ini:"path" env:"PATH"`
	Format         string `yaml:"format" json:"format" ini:"format" env:"FORMAT"`
	Watch          bool   `yaml:"watch" json:"watch" ini:"watch" env:"WATCH"`
	DebounceMillis int    `yaml:"debounce_ms" json:"debounce_ms" ini:"debounce_ms" env:"DEBOUNCE_MS"`
}

// DefaultEngineConfig 返回默认配置
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Log: LogConfig{
			Level:         "info",
			Encoding:      string(logger.EncodingConsole),
			Rotate:        "size",
			MaxSizeMB:     100,
			MaxBackups:    10,
			MaxAgeDays:    30,
			RotationHours: 24,
		},
		Machine: MachineConfig{
			MaxRedirects:  statemachine.DefaultMaxRedirects,
			FailurePolicy: statemachine.PolicyThrow.String(),
			HistoryLimit:  statemachine.DefaultHistoryLimit,
		},
		Document: DocumentConfig{
			Format:         "yaml",
			DebounceMillis: int(DefaultDebounce / time.Millisecond),
		},
	}
}

// LoadEngineConfig 加载引擎配置，path 为空时按默认路径查找，找不到则使用默认值
func LoadEngineConfig(path string, options ...Option) (*EngineConfig, *ConfigManager, error) {
	cfg := DefaultEngineConfig()
	opts := append([]Option{
		WithAppName("fsmctl"),
		WithFactory(func() interface{} { return DefaultEngineConfig() }),
	}, options...)
	cm := NewConfigManager(cfg, opts...)

	if err := cm.LoadConfig(path); err != nil {
		if path != "" || cm.ConfigPath() != "" {
			return nil, nil, err
		}
		// 没有配置文件时仍然应用环境变量
		if err := applyEnvOverrides(cfg, cm.envPrefix); err != nil {
			return nil, nil, fmt.Errorf("apply env overrides failed: %w", err)
		}
		return cfg, nil, cfg.Validate()
	}
	return cfg, cm, cfg.Validate()
}

// Validate 校验配置，返回全部错误
func (c *EngineConfig) Validate() error {
	var errs []error
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logger.ParseEncoding(c.Log.Encoding); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Rotate) {
	case "", "size", "time":
	default:
		errs = append(errs, fmt.Errorf("unknown log rotate mode %q", c.Log.Rotate))
	}
	if c.Machine.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("max_redirects must not be negative: %d", c.Machine.MaxRedirects))
	}
	if _, err := c.FailurePolicy(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Document.Format) {
	case "", "yaml", "yml", "dot":
	default:
		errs = append(errs, fmt.Errorf("unknown document format %q", c.Document.Format))
	}
	return errors.Join(errs...)
}

// FailurePolicy 解析校验失败策略
func (c *EngineConfig) FailurePolicy() (statemachine.FailurePolicy, error) {
	return statemachine.ParseFailurePolicy(c.Machine.FailurePolicy)
}

// Debounce 文档监听的防抖间隔
func (c *EngineConfig) Debounce() time.Duration {
	if c.Document.DebounceMillis <= 0 {
		return DefaultDebounce
	}
	return time.Duration(c.Document.DebounceMillis) * time.Millisecond
}

// MachineOptions 生成状态机选项
func (c *EngineConfig) MachineOptions(l logger.Logger) ([]statemachine.Option, error) {
	policy, err := c.FailurePolicy()
	if err != nil {
		return nil, err
	}
	opts := []statemachine.Option{
		statemachine.WithValidator(statemachine.NewDefaultValidator(policy)),
		statemachine.WithMaxRedirects(c.Machine.MaxRedirects),
	}
	if l != nil {
		opts = append(opts, statemachine.WithLogger(l))
	}
	return opts, nil
}

// NewLogger 按配置创建日志，返回的 Closer 用于关闭日志文件
func (c *EngineConfig) NewLogger() (*logger.ZapLogger, io.Closer, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	enc, err := logger.ParseEncoding(c.Log.Encoding)
	if err != nil {
		return nil, nil, err
	}
	if c.Log.File == "" {
		return logger.NewEncoded(os.Stderr, level, enc, logger.AddCaller()), io.NopCloser(nil), nil
	}

	var out io.WriteCloser
	if strings.EqualFold(c.Log.Rotate, "time") {
		out, err = logger.NewRotateByTime(&logger.RotateConfig{
			Filename:     c.Log.File,
			MaxAge:       c.Log.MaxAgeDays,
			RotationTime: time.Duration(c.Log.RotationHours) * time.Hour,
			LocalTime:    true,
		})
		if err != nil {
			return nil, nil, err
		}
	} else {
		out = logger.NewRotateBySize(&logger.SizeRotateConfig{
			Filename:   c.Log.File,
			MaxSize:    c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAge:     c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
			LocalTime:  true,
		})
	}
	return logger.NewEncoded(out, level, enc, logger.AddCaller()), out, nil
}
