package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status classifies the outcome of a Task.
type Status int32

const (
	Pending Status = iota
	Completed
	Faulted
	Canceled
)

var statusNames = [...]string{
	Pending:   "Pending",
	Completed: "Completed",
	Faulted:   "Faulted",
	Canceled:  "Canceled",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Unknown"
}

// Func is a unit of work executed on a factory worker.
type Func func(ctx context.Context) (any, error)

// NestedFunc produces a Task whose completion becomes the completion of the
// enclosing Task. Returning nil completes the enclosing Task immediately.
type NestedFunc func(ctx context.Context) *Task

// Task is a node in a graph of asynchronous work. It completes exactly once.
type Task struct {
	f     *Factory
	done  chan struct{}
	value any
	err   error
	conts []func()

	mu     sync.Mutex
	status Status
}

func newTask(f *Factory) *Task {
	return &Task{f: f, done: make(chan struct{})}
}

func classify(err error) Status {
	switch {
	case err == nil:
		return Completed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrClosed):
		return Canceled
	default:
		return Faulted
	}
}

// complete transitions the task out of Pending and runs registered
// continuations. Later calls are no-ops.
func (t *Task) complete(v any, err error) {
	t.mu.Lock()
	if t.status != Pending {
		t.mu.Unlock()
		return
	}
	t.value, t.err = v, err
	t.status = classify(err)
	conts := t.conts
	t.conts = nil
	close(t.done)
	t.mu.Unlock()

	for _, fn := range conts {
		fn()
	}
}

// onComplete runs fn once the task has completed. If it already has, fn runs
// inline before onComplete returns.
func (t *Task) onComplete(fn func()) {
	t.mu.Lock()
	if t.status == Pending {
		t.conts = append(t.conts, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	fn()
}

// follow completes t with the outcome of inner.
func (t *Task) follow(inner *Task) {
	if inner == nil {
		t.complete(nil, nil)
		return
	}
	inner.onComplete(func() {
		t.complete(inner.Value(), inner.Err())
	})
}

// Done returns a channel closed when the task completes.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task completes or timeout elapses, and reports
// whether it completed. A negative timeout waits indefinitely.
func (t *Task) Wait(timeout time.Duration) bool {
	if timeout < 0 {
		<-t.done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.done:
		return true
	case <-timer.C:
		return false
	}
}

// Status returns the current outcome classification.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Value returns the result of a completed task.
func (t *Task) Value() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Err returns the fault or cancellation cause, or nil.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// ContinueWith schedules fn after t completes, whatever its outcome. fn
// receives t so it can inspect the predecessor's status.
func (t *Task) ContinueWith(fn func(ctx context.Context, prev *Task) (any, error)) *Task {
	next := newTask(t.f)
	t.onComplete(func() {
		t.f.schedule(job{
			run: func(ctx context.Context) {
				next.complete(invoke(ctx, func(ctx context.Context) (any, error) {
					return fn(ctx, t)
				}))
			},
			cancel: func(err error) { next.complete(nil, err) },
		})
	})
	return next
}

// Then schedules fn with t's value once t completes successfully. The
// returned Task completes when the Task produced by fn completes. A faulted
// or canceled predecessor propagates its outcome without running fn.
func (t *Task) Then(fn func(ctx context.Context, v any) *Task) *Task {
	outer := newTask(t.f)
	t.onComplete(func() {
		if t.Status() != Completed {
			outer.complete(nil, t.Err())
			return
		}
		t.f.schedule(job{
			run: func(ctx context.Context) {
				inner, err := invokeNested(ctx, func(ctx context.Context) *Task {
					return fn(ctx, t.Value())
				})
				if err != nil {
					outer.complete(nil, err)
					return
				}
				outer.follow(inner)
			},
			cancel: func(err error) { outer.complete(nil, err) },
		})
	})
	return outer
}

func invoke(ctx context.Context, fn Func) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func invokeNested(ctx context.Context, fn NestedFunc) (t *Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx), nil
}
