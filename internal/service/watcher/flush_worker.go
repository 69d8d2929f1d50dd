package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/weiwangfds/javanotes/internal/logger"
)

// Flusher 写入失败后可以重试持久化的对象
type Flusher interface {
	Dirty() bool
	Flush() error
}

// FlushWorker 持久化重试服务接口
type FlushWorker interface {
	Start(ctx context.Context) error
	Stop() error
}

// flushWorker 定时检查记录列表是否有未写入的修改，有则重试写入
// 连续失败时重试间隔按指数退避，直到 maxInterval
type flushWorker struct {
	target      Flusher
	interval    time.Duration
	maxInterval time.Duration

	stopChan  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// NewFlushWorker 创建持久化重试服务实例
// 参数:
//
//	target - 需要重试写入的对象
//	interval - 检查间隔
//	maxInterval - 退避后的最大间隔，小于 interval 时等于 interval
func NewFlushWorker(target Flusher, interval, maxInterval time.Duration) FlushWorker {
	if maxInterval < interval {
		maxInterval = interval
	}
	logger.Infof("[flush-worker] initialized, interval: %v, max interval: %v", interval, maxInterval)
	return &flushWorker{
		target:      target,
		interval:    interval,
		maxInterval: maxInterval,
	}
}

func (f *flushWorker) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isRunning {
		return fmt.Errorf("flush worker is already running")
	}
	if f.interval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %v", f.interval)
	}

	f.stopChan = make(chan struct{})
	f.isRunning = true
	f.wg.Add(1)
	go f.loop(ctx)
	return nil
}

func (f *flushWorker) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.isRunning {
		return nil
	}
	close(f.stopChan)
	f.wg.Wait()
	f.isRunning = false
	logger.Infof("[flush-worker] stopped")
	return nil
}

func (f *flushWorker) loop(ctx context.Context) {
	defer f.wg.Done()

	delay := f.interval
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopChan:
			return
		case <-timer.C:
			delay = f.tick(delay)
			timer.Reset(delay)
		}
	}
}

// tick 执行一次检查，返回下一次检查前的等待时间
func (f *flushWorker) tick(delay time.Duration) time.Duration {
	if !f.target.Dirty() {
		return f.interval
	}

	if err := f.target.Flush(); err != nil {
		next := delay * 2
		if next > f.maxInterval {
			next = f.maxInterval
		}
		logger.Warnf("[flush-worker] retry failed, next attempt in %v: %v", next, err)
		return next
	}

	logger.Infof("[flush-worker] pending changes saved")
	return f.interval
}
