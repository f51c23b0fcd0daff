package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Config 工作池配置。
type Config struct {
	// Capacity 最大并发任务数
	Capacity int
	// ExpiryDuration 空闲 worker 的回收时间
	ExpiryDuration time.Duration
	// Nonblocking 池满时立即拒绝提交，而不是排队等待
	Nonblocking bool
}

// ReindexPoolConfig 返回重建索引池配置。
// 每个任务占用一个到目录服务的并发请求，容量即最大并发请求数。
func ReindexPoolConfig(concurrency int) *Config {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Config{
		Capacity:       concurrency,
		ExpiryDuration: 30 * time.Second,
	}
}

// Stats 池的运行快照。
type Stats struct {
	Capacity  int
	Running   int
	Submitted int64 // 已接受的任务数
	Completed int64 // 正常结束的任务数
	Rejected  int64 // 池满被拒绝的任务数
	Panics    int64 // 发生 panic 的任务数
}

// Pool 基于 ants 的有界工作池。
type Pool struct {
	name string
	pool *ants.Pool

	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	panics    atomic.Int64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewPool 按配置创建工作池。
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil || config.Capacity <= 0 {
		return nil, ErrInvalidPoolConfig
	}

	pool, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithNonblocking(config.Nonblocking),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 ants 池失败: %w", err)
	}

	logger.Infow("Worker pool created",
		"name", name,
		"capacity", config.Capacity,
		"nonblocking", config.Nonblocking,
	)
	return &Pool{name: name, pool: pool}, nil
}

// Name 返回池名称
func (p *Pool) Name() string {
	return p.name
}

// Stats 返回统计快照
func (p *Pool) Stats() Stats {
	return Stats{
		Capacity:  p.pool.Cap(),
		Running:   p.pool.Running(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
		Panics:    p.panics.Load(),
	}
}

// Submit 提交任务。任务中的 panic 被恢复并记录，不会终止进程。
func (p *Pool) Submit(task func()) error {
	return p.submit(func() { _ = p.run(task) })
}

func (p *Pool) submit(fn func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := p.pool.Submit(fn); err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.rejected.Add(1)
			return ErrPoolOverload
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return err
	}
	p.submitted.Add(1)
	return nil
}

// run 执行任务，panic 转换为 ErrTaskPanicked。
func (p *Pool) run(task func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			logger.Errorw("Worker panic recovered",
				"pool", p.name,
				"panic", r,
			)
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	task()
	p.completed.Add(1)
	return nil
}

// Release 关闭池并释放资源，可重复调用。
func (p *Pool) Release() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.pool.Release()
		logger.Infow("Worker pool released", "name", p.name)
	})
}

// RunAll 在池中并发执行 tasks 并等待全部结束。
// 返回值与 tasks 一一对应：提交失败或上下文在开始前取消的任务不会执行，
// 其错误记录在对应下标；发生 panic 的任务记录 ErrTaskPanicked。
func (p *Pool) RunAll(ctx context.Context, tasks []func(ctx context.Context)) []error {
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		i, task := i, task
		err := p.submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = p.run(func() { task(ctx) })
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}

	wg.Wait()
	return errs
}
