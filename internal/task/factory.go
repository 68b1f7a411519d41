package task

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is the cancellation cause for work scheduled on a closed Factory.
var ErrClosed = errors.New("task factory closed")

type job struct {
	run    func(ctx context.Context)
	cancel func(err error)
}

// Factory executes Task bodies on a fixed set of worker goroutines.
//
// Scheduling never blocks: jobs wait in an unbounded FIFO until a worker is
// free, so the logical graph may be arbitrarily large while at most Workers()
// bodies run at once. Workers must not block on another Task's result; use
// ContinueWith, Then or a Collection instead.
type Factory struct {
	ctx     context.Context
	cond    *sync.Cond
	queue   []job
	wg      sync.WaitGroup
	running atomic.Int64
	peak    atomic.Int64
	workers int

	mu     sync.Mutex
	closed bool
}

// NewFactory starts workers goroutines bound to ctx. Once ctx is done, queued
// bodies complete as Canceled without running. workers <= 0 uses NumCPU.
func NewFactory(ctx context.Context, workers int) *Factory {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	f := &Factory{ctx: ctx, workers: workers}
	f.cond = sync.NewCond(&f.mu)

	f.wg.Add(workers)
	for range workers {
		go f.worker()
	}
	return f
}

// Workers returns the configured worker count.
func (f *Factory) Workers() int { return f.workers }

// Running returns the number of bodies executing right now.
func (f *Factory) Running() int { return int(f.running.Load()) }

// Peak returns the highest number of concurrently executing bodies observed.
func (f *Factory) Peak() int { return int(f.peak.Load()) }

// Context returns the cancellation context shared by every Task body.
func (f *Factory) Context() context.Context { return f.ctx }

// StartNew schedules fn and returns the Task representing it.
func (f *Factory) StartNew(fn Func) *Task {
	t := newTask(f)
	f.schedule(job{
		run:    func(ctx context.Context) { t.complete(invoke(ctx, fn)) },
		cancel: func(err error) { t.complete(nil, err) },
	})
	return t
}

// StartNested schedules fn and returns a Task that completes when the Task
// fn returns completes.
func (f *Factory) StartNested(fn NestedFunc) *Task {
	outer := newTask(f)
	f.schedule(job{
		run: func(ctx context.Context) {
			inner, err := invokeNested(ctx, fn)
			if err != nil {
				outer.complete(nil, err)
				return
			}
			outer.follow(inner)
		},
		cancel: func(err error) { outer.complete(nil, err) },
	})
	return outer
}

// FromResult returns an already completed Task carrying v.
func (f *Factory) FromResult(v any) *Task {
	t := newTask(f)
	t.complete(v, nil)
	return t
}

// NewCollection returns a Collection seeded with tasks.
func (f *Factory) NewCollection(tasks ...*Task) *Collection {
	c := &Collection{f: f}
	c.Add(tasks...)
	return c
}

// Close stops the workers once the queue has drained. Work scheduled after
// Close completes as Canceled with ErrClosed.
func (f *Factory) Close() {
	f.mu.Lock()
	f.closed = true
	f.cond.Broadcast()
	f.mu.Unlock()
	f.wg.Wait()
}

func (f *Factory) schedule(j job) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		j.cancel(ErrClosed)
		return
	}
	f.queue = append(f.queue, j)
	f.cond.Signal()
	f.mu.Unlock()
}

func (f *Factory) worker() {
	defer f.wg.Done()
	for {
		f.mu.Lock()
		for len(f.queue) == 0 && !f.closed {
			f.cond.Wait()
		}
		if len(f.queue) == 0 {
			f.mu.Unlock()
			return
		}
		j := f.queue[0]
		f.queue[0] = job{}
		f.queue = f.queue[1:]
		f.mu.Unlock()

		f.execute(j)
	}
}

func (f *Factory) execute(j job) {
	if err := f.ctx.Err(); err != nil {
		j.cancel(err)
		return
	}

	n := f.running.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer f.running.Add(-1)

	j.run(f.ctx)
}
