package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/junbin-yang/go-fsmkit/pkg/logger"
)

// DefaultDebounce 默认防抖间隔
const DefaultDebounce = 500 * time.Millisecond

var errWatcherClosed = errors.New("watcher closed")

// FileWatcher 监听单个文件的变化，防抖后回调
// 监听的是所在目录，编辑器以重命名方式保存时也能感知
type FileWatcher struct {
	path     string
	debounce time.Duration
	onChange func(path string)
	log      logger.Logger

	startOnce sync.Once
	startErr  error
	closeOnce sync.Once
	watcher   *fsnotify.Watcher
	quit      chan struct{}
	done      chan struct{}
}

// NewFileWatcher 创建文件监听器
func NewFileWatcher(path string, debounce time.Duration, onChange func(path string), l logger.Logger) *FileWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if l == nil {
		l = logger.Default()
	}
	return &FileWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		log:      logger.Named(l, "watcher"),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Path 返回监听的文件
func (w *FileWatcher) Path() string { return w.path }

// Start 启动后台监听
func (w *FileWatcher) Start() error {
	w.startOnce.Do(func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			w.startErr = fmt.Errorf("create watcher failed: %w", err)
			close(w.done)
			return
		}
		if err := watcher.Add(filepath.Dir(w.path)); err != nil {
			_ = watcher.Close()
			w.startErr = fmt.Errorf("add watch path failed: %w", err)
			close(w.done)
			return
		}
		w.watcher = watcher
		go w.loop()
	})
	return w.startErr
}

// Run 启动监听并阻塞，直到 ctx 结束或 Close 被调用
func (w *FileWatcher) Run(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return w.Close()
	case <-w.done:
		return nil
	}
}

// Close 停止监听并等待监听协程退出
func (w *FileWatcher) Close() error {
	// 未启动时直接标记为结束
	w.startOnce.Do(func() {
		w.startErr = errWatcherClosed
		close(w.done)
	})

	var err error
	w.closeOnce.Do(func() {
		close(w.quit)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	<-w.done
	return err
}

/* ------------------------------ 内部方法 ------------------------------ */

// loop 监听文件变化循环
func (w *FileWatcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			// 处理文件修改/创建/重命名事件
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.onChange(w.path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", logger.String("path", w.path), logger.Err(err))

		case <-w.quit:
			return
		}
	}
}
