package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/junbin-yang/go-fsmkit/pkg/config"
	"github.com/junbin-yang/go-fsmkit/pkg/document"
	"github.com/junbin-yang/go-fsmkit/pkg/logger"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

// envPrefix 环境变量前缀，例如 FSMCTL_LOG_LEVEL
const envPrefix = "FSMCTL_"

// commonFlags 各子命令共用的参数
type commonFlags struct {
	config string
	in     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "Engine config file (yaml/json/ini)")
	fs.StringVar(&c.in, "in", "", "Graph document (defaults to document.path in config)")
}

// app 一次命令执行所需的环境
type app struct {
	cfg    *config.EngineConfig
	log    logger.Logger
	closer io.Closer
}

func newApp(flags *commonFlags) (*app, error) {
	cfg, _, err := config.LoadEngineConfig(flags.config,
		config.WithEnvPrefix(envPrefix),
		config.WithDotEnv(),
	)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	l, closer, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.ReplaceDefault(l)

	if flags.in == "" {
		flags.in = cfg.Document.Path
	}
	if flags.in == "" {
		_ = closer.Close()
		return nil, fmt.Errorf("no graph document given (use -in or document.path)")
	}
	return &app{cfg: cfg, log: l, closer: closer}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	_ = a.closer.Close()
}

// machineOptions 由配置生成状态机选项，可追加额外选项
func (a *app) machineOptions(extra ...statemachine.Option) ([]statemachine.Option, error) {
	opts, err := a.cfg.MachineOptions(a.log)
	if err != nil {
		return nil, err
	}
	return append(opts, extra...), nil
}

// loadGraph 读取文档并构建状态机
func (a *app) loadGraph(path string, extra ...statemachine.Option) (*document.Document, *statemachine.Machine, error) {
	opts, err := a.machineOptions(extra...)
	if err != nil {
		return nil, nil, err
	}

	doc, err := document.LoadDocument(document.OSFileSystem{}, path)
	if err != nil {
		return nil, nil, err
	}
	b := statemachine.NewBuilder(opts...)
	if err := document.Apply(doc, b); err != nil {
		return nil, nil, &document.ImportError{Path: path, Err: err}
	}
	m, err := b.Build()
	if err != nil {
		return nil, nil, &document.ImportError{Path: path, Err: err}
	}
	return doc, m, nil
}

// formatOrDefault 命令行未指定格式时使用配置中的格式
func (a *app) formatOrDefault(flagValue string) (document.Format, error) {
	if flagValue == "" {
		flagValue = a.cfg.Document.Format
	}
	return document.ParseFormat(flagValue)
}

// writeDocument 写到文件，out 为空时写到 w
func writeDocument(w io.Writer, out string, doc *document.Document, format document.Format) error {
	if out == "" {
		return document.Encode(w, doc, format)
	}
	return document.SaveDocument(document.OSFileSystem{}, out, doc, format)
}

// parseMessage 命令行消息："-" 表示 Empty，"*" 表示 Any
func parseMessage(s string) statemachine.Message {
	switch s {
	case "-":
		return statemachine.Empty
	case "*":
		return statemachine.Any
	}
	return statemachine.NewMessage(s)
}

func newFlagSet(name string, usage func(fs *flag.FlagSet)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { usage(fs) }
	return fs
}
