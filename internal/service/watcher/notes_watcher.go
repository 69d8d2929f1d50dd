// Package watcher 提供后台协程服务
// 包括：
// - 笔记目录变化监听，变化后重新加载笔记
// - 记录列表写入失败后的定时重试
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/weiwangfds/javanotes/internal/logger"
)

// Reloader 可以重新加载的对象
type Reloader interface {
	Reload() error
}

// NotesWatcher 笔记目录监听服务接口
type NotesWatcher interface {
	// Start 启动监听
	// 参数:
	//   ctx - 上下文，取消时监听协程退出
	// 返回:
	//   error - 已在运行或目录无法监听时返回错误
	Start(ctx context.Context) error

	// Stop 停止监听并等待协程退出
	Stop() error

	// TriggerReload 立即重新加载一次
	TriggerReload() error
}

// notesWatcher 笔记目录监听服务实现
type notesWatcher struct {
	dir      string
	target   Reloader
	debounce time.Duration // 连续事件合并为一次重新加载

	watcher   *fsnotify.Watcher
	stopChan  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// DefaultDebounce 默认的事件合并间隔
const DefaultDebounce = 200 * time.Millisecond

// NewNotesWatcher 创建笔记目录监听服务实例
// 参数:
//
//	dir - 笔记目录
//	target - 目录变化时需要重新加载的对象
//	debounce - 事件合并间隔，小于等于0时使用 DefaultDebounce
func NewNotesWatcher(dir string, target Reloader, debounce time.Duration) NotesWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger.Infof("[notes-watcher] initialized, dir: %s, debounce: %v", dir, debounce)
	return &notesWatcher{
		dir:      dir,
		target:   target,
		debounce: debounce,
	}
}

// Start 启动监听
func (w *notesWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("notes watcher is already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.watcher = fw
	w.stopChan = make(chan struct{})
	w.isRunning = true

	w.wg.Add(1)
	go w.loop(ctx)

	logger.Infof("[notes-watcher] watching %s", w.dir)
	return nil
}

// Stop 停止监听
func (w *notesWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isRunning {
		return nil
	}

	close(w.stopChan)
	w.wg.Wait()
	err := w.watcher.Close()

	w.isRunning = false
	logger.Infof("[notes-watcher] stopped")
	return err
}

// TriggerReload 立即重新加载
func (w *notesWatcher) TriggerReload() error {
	logger.Infof("[notes-watcher] reload triggered")
	if err := w.target.Reload(); err != nil {
		logger.Errorf("[notes-watcher] reload failed: %v", err)
		return err
	}
	return nil
}

func (w *notesWatcher) loop(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("[notes-watcher] context cancelled, stopping")
			return
		case <-w.stopChan:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			logger.Debugf("[notes-watcher] %s %s", ev.Op, ev.Name)
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Errorf("[notes-watcher] watch error: %v", err)
		case <-timer.C:
			_ = w.TriggerReload()
		}
	}
}

// relevant 只关心 .md 文件的内容和目录项变化
func relevant(ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".md" {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
