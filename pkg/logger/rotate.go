package logger

import (
	"fmt"
	"io"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SizeRotateConfig 按大小轮转的配置
type SizeRotateConfig struct {
	Filename   string // 日志文件路径
	MaxSize    int    // 单个文件最大尺寸（MB）
	MaxBackups int    // 保留的旧文件个数
	MaxAge     int    // 旧文件保留天数
	Compress   bool   // 是否 gzip 压缩旧文件
	LocalTime  bool   // 备份文件名使用本地时间
}

// NewRotateBySize 按大小轮转的输出
func NewRotateBySize(cfg *SizeRotateConfig) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	}
}

// NewProductionRotateBySize 生产环境默认配置：100MB，保留 30 个文件，30 天，压缩
func NewProductionRotateBySize(filename string) io.WriteCloser {
	return NewRotateBySize(&SizeRotateConfig{
		Filename:   filename,
		MaxSize:    100,
		MaxBackups: 30,
		MaxAge:     30,
		Compress:   true,
		LocalTime:  true,
	})
}

// RotateConfig 按时间轮转的配置
type RotateConfig struct {
	Filename     string        // 日志文件路径，同时作为最新文件的软链接
	MaxAge       int           // 旧文件保留天数
	RotationTime time.Duration // 轮转间隔
	LocalTime    bool          // 文件名使用本地时间
}

// NewRotateByTime 按时间轮转的输出，文件名后缀为 .YYYYmmddHH
func NewRotateByTime(cfg *RotateConfig) (io.WriteCloser, error) {
	var clock rotatelogs.Clock = rotatelogs.UTC
	if cfg.LocalTime {
		clock = rotatelogs.Local
	}
	rotation := cfg.RotationTime
	if rotation <= 0 {
		rotation = 24 * time.Hour
	}
	opts := []rotatelogs.Option{
		rotatelogs.WithLinkName(cfg.Filename),
		rotatelogs.WithRotationTime(rotation),
		rotatelogs.WithClock(clock),
	}
	if cfg.MaxAge > 0 {
		opts = append(opts, rotatelogs.WithMaxAge(time.Duration(cfg.MaxAge)*24*time.Hour))
	}

	w, err := rotatelogs.New(cfg.Filename+".%Y%m%d%H", opts...)
	if err != nil {
		return nil, fmt.Errorf("rotate by time: %w", err)
	}
	return w, nil
}
