package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/junbin-yang/go-fsmkit/pkg/config"
	"github.com/junbin-yang/go-fsmkit/pkg/document"
	"github.com/junbin-yang/go-fsmkit/pkg/lifecycle"
	"github.com/junbin-yang/go-fsmkit/pkg/logger"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

func runWatch(args []string, stdin io.Reader) error {
	var common commonFlags
	fs := newFlagSet("watch", func(fs *flag.FlagSet) {
		fmt.Fprintln(fs.Output(), "Usage: fsmctl watch [options]")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Re-export the graph whenever the document changes. With -stdin,")
		fmt.Fprintln(fs.Output(), "messages read line by line are sent to the machine and the export")
		fmt.Fprintln(fs.Output(), "is refreshed after every step. Stops on SIGINT/SIGTERM.")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Examples:")
		fmt.Fprintln(fs.Output(), "  fsmctl watch -in order.yml -format dot -out order.dot")
	})
	common.register(fs)
	format := fs.String("format", "", "Output format: yaml or dot (defaults to document.format)")
	out := fs.String("out", "", "Output file (required)")
	readStdin := fs.Bool("stdin", false, "Read messages from stdin")
	queue := fs.Int("queue", 64, "Message queue size")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		fs.Usage()
		return fmt.Errorf("watch: -out is required")
	}

	a, err := newApp(&common)
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := a.formatOrDefault(*format)
	if err != nil {
		return err
	}
	opts, err := a.machineOptions()
	if err != nil {
		return err
	}

	s := newWatchSession(common.in, *out, f, opts, *queue, a.log)
	if err := s.reload(); err != nil {
		return err
	}

	mgr := lifecycle.NewManager(lifecycle.WithLogger(a.log))
	watcher := config.NewFileWatcher(common.in, a.cfg.Debounce(), func(string) {
		if err := s.reload(); err != nil {
			a.log.Error("reload failed, keeping previous graph", logger.String("path", common.in), logger.Err(err))
		}
	}, a.log)

	if err := mgr.AddWorker("document-watcher", watcher.Run,
		lifecycle.WithStopFunc(func(context.Context) error { return watcher.Close() }),
	); err != nil {
		return err
	}
	if err := mgr.AddWorker("machine", s.machine.Run); err != nil {
		return err
	}
	if *readStdin {
		if err := mgr.AddWorker("stdin", func(ctx context.Context) error {
			return s.pump(ctx, stdin)
		}); err != nil {
			return err
		}
	}

	mgr.OnStartup(func(context.Context) error {
		a.log.Info("watching graph document", logger.String("path", common.in), logger.String("out", *out))
		return nil
	})
	mgr.OnShutdown(func(context.Context) error {
		s.machine.Stop()
		a.log.Info("watch stopped")
		return nil
	})

	err = mgr.Run()
	if name, ok := lifecycle.WorkerOf(err); ok {
		a.log.Error("watch aborted", logger.String("worker", name), logger.Err(err))
	}
	return err
}

// watchSession 文档监听期间共享的状态机与导出目标
type watchSession struct {
	in     string
	out    string
	format document.Format
	opts   []statemachine.Option
	log    logger.Logger

	machine *statemachine.AsyncMachine

	mu   sync.Mutex
	name string
}

func newWatchSession(in, out string, format document.Format, opts []statemachine.Option, queue int, l logger.Logger) *watchSession {
	return &watchSession{
		in:      in,
		out:     out,
		format:  format,
		opts:    opts,
		log:     l,
		machine: statemachine.NewAsyncMachine(statemachine.NewMachine(opts...), queue),
	}
}

// reload 重新读取文档并替换图，当前状态仍存在时保留
func (s *watchSession) reload() error {
	doc, err := document.LoadDocument(document.OSFileSystem{}, s.in)
	if err != nil {
		return err
	}

	err = s.machine.Do(func(m *statemachine.Machine) error {
		previous := ""
		if cur, ok := m.Current(); ok {
			previous = cur.Name()
		}

		// 先在临时状态机上校验，失败时不影响正在运行的图
		if err := document.Apply(doc, statemachine.NewBuilder(s.dryRunOptions()...)); err != nil {
			return err
		}

		for _, st := range m.Index().States() {
			_ = m.RemoveState(st.Name())
		}
		b := statemachine.BuilderFor(m)
		if err := document.Apply(doc, b); err != nil {
			return err
		}
		if _, err := b.Build(); err != nil {
			return err
		}
		if previous != "" {
			_ = m.SetCurrent(previous)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.name = doc.Name
	s.mu.Unlock()

	s.log.Info("graph loaded", logger.String("path", s.in), logger.Int("states", len(doc.States)))
	return s.export()
}

func (s *watchSession) dryRunOptions() []statemachine.Option {
	opts := append([]statemachine.Option(nil), s.opts...)
	return append(opts, statemachine.WithLogger(logger.Nop()))
}

// export 写出当前的图与当前状态
func (s *watchSession) export() error {
	s.mu.Lock()
	name := s.name
	s.mu.Unlock()

	return s.machine.Do(func(m *statemachine.Machine) error {
		doc := document.FromMachine(m)
		doc.Name = name
		return document.SaveDocument(document.OSFileSystem{}, s.out, doc, s.format)
	})
}

// pump 逐行读取消息并交给状态机处理
func (s *watchSession) pump(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := s.step(ctx, parseMessage(line)); err != nil {
				return err
			}
		}
	}
}

func (s *watchSession) step(ctx context.Context, msg statemachine.Message) error {
	res, err := s.machine.SendWait(ctx, msg)
	if err != nil {
		return err
	}
	if !res.OK {
		s.log.Warn("message rejected", logger.String("message", msg.String()))
		return nil
	}
	s.log.Info("transition", logger.String("message", msg.String()), logger.String("state", res.State.Name()))
	return s.export()
}
