package engine

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/filter"
	"github.com/bamsammich/parfs/internal/fsys"
	"github.com/bamsammich/parfs/internal/task"
)

// deleteDir is the accumulator for one directory being deleted. keep is set
// when anything beneath it survives, so the directory itself must stay.
type deleteDir struct {
	rel  string
	keep atomic.Bool
}

type deleteVisitor struct {
	e       *Engine
	include *filter.Chain
}

// DeleteEntry deletes root and everything beneath it, children before
// parents. include, when non-empty, selects which leaves are deleted;
// directories are never filtered themselves, and while a filter is active
// no directory is deleted, even one left empty.
func (e *Engine) DeleteEntry(root fsys.Entry, include *filter.Chain) *task.Task {
	if include.Empty() {
		include = nil
	}
	if !root.IsDirectory() {
		return e.factory.StartNew(func(ctx context.Context) (any, error) {
			if ctx.Err() != nil {
				return nil, nil
			}
			if !include.MatchEntry(root.Name, root) {
				e.skipDelete(root)
				return nil, nil
			}
			e.fail("delete", root.Path, e.remove(root))
			return nil, nil
		})
	}
	return Traverse[*deleteDir](e, root, &deleteVisitor{e: e, include: include})
}

func (*deleteVisitor) Enter(_ context.Context, parent *deleteDir, dir fsys.Entry) (*deleteDir, error) {
	if parent == nil {
		return &deleteDir{}, nil
	}
	return &deleteDir{rel: filepath.Join(parent.rel, dir.Name)}, nil
}

func (*deleteVisitor) Descend(*deleteDir, fsys.Entry) bool { return true }

func (v *deleteVisitor) Entries(ctx context.Context, acc *deleteDir, dir fsys.Entry, entries []fsys.Entry) *task.Task {
	work := v.e.factory.NewCollection()
	var doomed []fsys.Entry
	for _, en := range entries {
		if en.IsDirectory() {
			continue
		}
		if !v.include.MatchEntry(filepath.Join(acc.rel, en.Name), en) {
			acc.keep.Store(true)
			v.e.skipDelete(en)
			continue
		}
		doomed = append(doomed, en)
	}
	if len(doomed) == 0 {
		return nil
	}
	v.e.emit(event.Event{Type: event.EntriesToDeleteDiscovered, Path: dir.Path, Count: len(doomed)})

	for _, en := range doomed {
		if ctx.Err() != nil {
			break
		}
		work.Add(v.e.factory.StartNew(func(ctx context.Context) (any, error) {
			if ctx.Err() != nil {
				return nil, nil
			}
			if err := v.e.remove(en); err != nil {
				if !fsys.IsNotFound(err) {
					acc.keep.Store(true)
				}
				v.e.fail("delete", en.Path, err)
			}
			return nil, nil
		}))
	}
	return work.WhenAll()
}

func (v *deleteVisitor) Leave(ctx context.Context, acc *deleteDir, dir fsys.Entry, err error) {
	if ctx.Err() != nil {
		acc.keep.Store(true)
		return
	}
	if err != nil || v.include != nil {
		acc.keep.Store(true)
	}
	if acc.keep.Load() {
		v.e.skipDelete(dir)
		return
	}
	if err := v.e.remove(dir); err != nil {
		if !fsys.IsNotFound(err) {
			acc.keep.Store(true)
		}
		v.e.fail("delete", dir.Path, err)
	}
}

func (*deleteVisitor) Merge(parent, child *deleteDir) {
	if child.keep.Load() {
		parent.keep.Store(true)
	}
}

// remove deletes a single entry and accounts for it.
func (e *Engine) remove(en fsys.Entry) error {
	e.emit(event.Event{Type: event.EntryDeleting, Path: en.Path, Size: en.Size})
	if !e.dryRun {
		if err := e.fs.DeleteEntry(en); err != nil {
			return err
		}
	}
	switch {
	case en.IsDirectory():
		e.stats.AddDirsDeleted(1)
	case en.IsSymlink():
		e.stats.AddSymlinksDeleted(1)
	default:
		e.stats.AddFilesDeleted(1)
		e.stats.AddBytesDeleted(en.Size)
	}
	e.emit(event.Event{Type: event.EntryDeleted, Path: en.Path, Size: en.Size})
	return nil
}

func (e *Engine) skipDelete(en fsys.Entry) {
	e.stats.AddEntriesKept(1)
	e.emit(event.Event{Type: event.EntrySkipped, Path: en.Path})
}
