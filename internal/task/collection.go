package task

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
)

// Collection joins a set of Tasks. Add is not safe for concurrent use; a
// collection is built by one goroutine and then joined.
type Collection struct {
	f     *Factory
	tasks []*Task
}

// Add appends tasks to the collection, ignoring nils.
func (c *Collection) Add(tasks ...*Task) {
	for _, t := range tasks {
		if t != nil {
			c.tasks = append(c.tasks, t)
		}
	}
}

// Len returns the number of member tasks.
func (c *Collection) Len() int { return len(c.tasks) }

// WhenAll returns a Task that completes once every member has completed.
// It faults with the joined member faults, or is canceled if any member was
// canceled and none faulted.
func (c *Collection) WhenAll() *Task {
	join := newTask(c.f)
	members := slices.Clone(c.tasks)
	if len(members) == 0 {
		join.complete(nil, nil)
		return join
	}

	var remaining atomic.Int64
	remaining.Store(int64(len(members)))
	for _, m := range members {
		m.onComplete(func() {
			if remaining.Add(-1) == 0 {
				join.complete(nil, joinOutcome(members))
			}
		})
	}
	return join
}

// ContinueWith schedules fn after every member completes.
func (c *Collection) ContinueWith(fn func(ctx context.Context, prev *Task) (any, error)) *Task {
	return c.WhenAll().ContinueWith(fn)
}

// Then schedules fn after every member completes successfully.
func (c *Collection) Then(fn func(ctx context.Context, v any) *Task) *Task {
	return c.WhenAll().Then(fn)
}

func joinOutcome(members []*Task) error {
	var faults []error
	var canceled error
	for _, m := range members {
		switch m.Status() {
		case Faulted:
			faults = append(faults, m.Err())
		case Canceled:
			if canceled == nil {
				canceled = m.Err()
			}
		}
	}
	if len(faults) > 0 {
		return errors.Join(faults...)
	}
	return canceled
}
