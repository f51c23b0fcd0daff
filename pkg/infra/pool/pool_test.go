package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool("test", ReindexPoolConfig(3))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if p.Name() != "test" {
		t.Errorf("池名称不匹配: 期望 test, 实际 %s", p.Name())
	}
	if got := p.Stats().Capacity; got != 3 {
		t.Errorf("池容量不匹配: 期望 3, 实际 %d", got)
	}
}

func TestNewPoolInvalidConfig(t *testing.T) {
	for _, cfg := range []*Config{nil, {Capacity: 0}} {
		if _, err := NewPool("test", cfg); !errors.Is(err, ErrInvalidPoolConfig) {
			t.Errorf("期望 ErrInvalidPoolConfig, 实际: %v", err)
		}
	}
}

func TestReindexPoolConfig(t *testing.T) {
	if got := ReindexPoolConfig(0).Capacity; got != 4 {
		t.Errorf("默认并发数应为 4, 实际 %d", got)
	}
	if got := ReindexPoolConfig(8).Capacity; got != 8 {
		t.Errorf("并发数应为 8, 实际 %d", got)
	}
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", &Config{
		Capacity:       10,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		})
		if err != nil {
			t.Errorf("提交任务失败: %v", err)
			wg.Done()
		}
	}

	wg.Wait()

	if counter.Load() != 100 {
		t.Errorf("任务执行数不匹配: 期望 100, 实际 %d", counter.Load())
	}
	if s := p.Stats(); s.Submitted != 100 {
		t.Errorf("提交数不匹配: 期望 100, 实际 %d", s.Submitted)
	}
}

func TestPoolRunAll(t *testing.T) {
	p, err := NewPool("test", ReindexPoolConfig(2))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var running, maxRunning atomic.Int32
	results := make([]int, 5)
	tasks := make([]func(ctx context.Context), len(results))
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) {
			n := running.Add(1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			results[i] = i * 10
			running.Add(-1)
		}
	}

	errs := p.RunAll(context.Background(), tasks)
	for i, err := range errs {
		if err != nil {
			t.Errorf("任务 %d 失败: %v", i, err)
		}
		if results[i] != i*10 {
			t.Errorf("任务 %d 结果不匹配: %d", i, results[i])
		}
	}
	if maxRunning.Load() > 2 {
		t.Errorf("并发数超过池容量: %d", maxRunning.Load())
	}
	if s := p.Stats(); s.Completed != 5 {
		t.Errorf("完成数不匹配: 期望 5, 实际 %d", s.Completed)
	}
}

func TestPoolRunAllCanceled(t *testing.T) {
	p, err := NewPool("test", ReindexPoolConfig(1))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var executed atomic.Bool
	errs := p.RunAll(ctx, []func(ctx context.Context){
		func(context.Context) { executed.Store(true) },
	})
	if !errors.Is(errs[0], context.Canceled) {
		t.Errorf("期望 context.Canceled, 实际: %v", errs[0])
	}
	if executed.Load() {
		t.Error("上下文取消后不应执行任务")
	}
}

func TestPoolRunAllPanic(t *testing.T) {
	p, err := NewPool("test", ReindexPoolConfig(2))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var ran atomic.Bool
	errs := p.RunAll(context.Background(), []func(ctx context.Context){
		func(context.Context) { panic("测试 panic") },
		func(context.Context) { ran.Store(true) },
	})
	if !errors.Is(errs[0], ErrTaskPanicked) {
		t.Errorf("期望 ErrTaskPanicked, 实际: %v", errs[0])
	}
	if errs[1] != nil || !ran.Load() {
		t.Errorf("其他任务不应受影响: %v", errs[1])
	}
	if s := p.Stats(); s.Panics != 1 || s.Completed != 1 {
		t.Errorf("统计不匹配: panics=%d completed=%d", s.Panics, s.Completed)
	}
}

func TestPoolSubmitPanic(t *testing.T) {
	p, err := NewPool("test", ReindexPoolConfig(1))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if err := p.Submit(func() { panic("测试 panic") }); err != nil {
		t.Fatalf("提交任务失败: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for p.Stats().Panics == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := p.Stats().Panics; got != 1 {
		t.Errorf("panic 未被记录: %d", got)
	}
}

func TestPoolClosed(t *testing.T) {
	p, err := NewPool("test", ReindexPoolConfig(1))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}

	p.Release()
	p.Release()

	err = p.Submit(func() {
		t.Error("已关闭的池不应执行任务")
	})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("期望 ErrPoolClosed, 实际: %v", err)
	}
}

func TestPoolNonblocking(t *testing.T) {
	p, err := NewPool("test", &Config{
		Capacity:       1,
		ExpiryDuration: 5 * time.Second,
		Nonblocking:    true,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	// 占用唯一的 worker
	done := make(chan struct{})
	if err := p.Submit(func() { <-done }); err != nil {
		t.Errorf("提交任务失败: %v", err)
	}

	err = p.Submit(func() {
		t.Error("非阻塞模式下池满时不应执行任务")
	})
	if !errors.Is(err, ErrPoolOverload) {
		t.Errorf("期望 ErrPoolOverload, 实际: %v", err)
	}
	if got := p.Stats().Rejected; got != 1 {
		t.Errorf("拒绝数不匹配: 期望 1, 实际 %d", got)
	}

	close(done)
}

func BenchmarkPoolSubmit(b *testing.B) {
	p, _ := NewPool("bench", &Config{
		Capacity:       1000,
		ExpiryDuration: 5 * time.Second,
	})
	defer p.Release()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = p.Submit(func() {})
		}
	})
}
