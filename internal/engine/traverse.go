package engine

import (
	"context"

	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/fsys"
	"github.com/bamsammich/parfs/internal/task"
)

// Visitor customizes a traversal. A is the per-directory accumulator.
//
// For each directory the hooks run in order Enter, Entries, (children),
// Leave, Merge. Entries runs on the worker that enumerated the directory;
// Leave and Merge run only after every child directory has merged and every
// task returned by Entries has completed. Merge may be called concurrently
// for siblings sharing a parent and must be safe for that.
type Visitor[A any] interface {
	// Enter creates dir's accumulator. parent is the zero A at the root.
	// An error abandons the subtree.
	Enter(ctx context.Context, parent A, dir fsys.Entry) (A, error)

	// Entries observes dir's children. It may schedule leaf work and
	// return a task the directory waits on, or nil.
	Entries(ctx context.Context, acc A, dir fsys.Entry, entries []fsys.Entry) *task.Task

	// Descend reports whether to traverse the child directory.
	Descend(acc A, child fsys.Entry) bool

	// Leave finalizes dir. err is non-nil when enumeration failed or some
	// work beneath dir faulted.
	Leave(ctx context.Context, acc A, dir fsys.Entry, err error)

	// Merge folds a finished child's accumulator into its parent's.
	Merge(parent, child A)
}

// Traverse walks the tree under root, which must be a directory. The
// returned task completes with root's accumulator once the whole tree has
// been visited. Reparse points are leaves and never entered.
func Traverse[A any](e *Engine, root fsys.Entry, v Visitor[A]) *task.Task {
	var zero A
	return traverseDir(e, v, zero, root, true)
}

func traverseDir[A any](e *Engine, v Visitor[A], parent A, dir fsys.Entry, isRoot bool) *task.Task {
	return e.factory.StartNested(func(ctx context.Context) *task.Task {
		acc, err := v.Enter(ctx, parent, dir)
		if err != nil {
			e.fail("enter", dir.Path, err)
			return nil
		}
		e.emit(event.Event{Type: event.DirectoryTraversing, Path: dir.Path})

		entries, enumErr := e.fs.EnumerateEntries(dir.Path, "")
		if enumErr != nil {
			e.fail("enumerate", dir.Path, enumErr)
			entries = nil
		} else {
			e.countDiscovered(entries)
			e.emit(event.Event{Type: event.EntriesDiscovered, Path: dir.Path, Count: len(entries)})
		}

		join := e.factory.NewCollection(v.Entries(ctx, acc, dir, entries))
		for _, child := range entries {
			if ctx.Err() != nil {
				break
			}
			if child.IsDirectory() && v.Descend(acc, child) {
				join.Add(traverseDir(e, v, acc, child, false))
			}
		}

		return join.ContinueWith(func(ctx context.Context, prev *task.Task) (any, error) {
			err := enumErr
			if prev.Status() == task.Faulted {
				e.fail("traverse", dir.Path, prev.Err())
				err = prev.Err()
			}
			v.Leave(ctx, acc, dir, err)
			if !isRoot {
				v.Merge(parent, acc)
			}
			e.stats.AddDirsTraversed(1)
			e.emit(event.Event{Type: event.DirectoryTraversed, Path: dir.Path})
			return acc, nil
		})
	})
}
