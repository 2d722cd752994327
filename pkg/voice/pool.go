package voice

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool 进程级并发上限，所有连接的识别与回复任务共享
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64
	onChange func(int64)
}

// NewPool size<=0 时取8
func NewPool(size int, onChange func(inFlight int64)) *Pool {
	if size <= 0 {
		size = 8
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size, onChange: onChange}
}

// Do 占用一个槽位执行 fn，ctx 取消时放弃等待
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	p.report(p.inFlight.Add(1))
	defer func() { p.report(p.inFlight.Add(-1)) }()
	return fn(ctx)
}

// InFlight 正在执行的任务数
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

// Size 并发上限
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) report(n int64) {
	if p.onChange != nil {
		p.onChange(n)
	}
}
