package engine

import (
	"context"
	"path/filepath"
	"slices"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bamsammich/parfs/internal/fsys"
	"github.com/bamsammich/parfs/internal/task"
	"github.com/bamsammich/parfs/internal/topk"
)

// PathInfo ranks a path by its length in characters.
type PathInfo struct {
	Path   string
	Length int
}

// DirSize ranks a directory by the bytes beneath it.
type DirSize struct {
	Path  string
	Bytes int64
}

// Inspection summarizes a tree.
type Inspection struct {
	Root         string
	LongestPaths []PathInfo // longest first
	LargestDirs  []DirSize  // largest first
	Dirs         int64
	Files        int64
	Symlinks     int64
	Bytes        int64
}

type inspectDir struct {
	rel      string
	dirs     atomic.Int64
	files    atomic.Int64
	symlinks atomic.Int64
	bytes    atomic.Int64
}

type inspectVisitor struct {
	e       *Engine
	longest *topk.Selector[PathInfo]
	largest *topk.Selector[DirSize]
}

// Inspect walks root and reports totals plus the k longest paths and the k
// largest directories. The task's value is an *Inspection.
func (e *Engine) Inspect(root fsys.Entry, k int) *task.Task {
	v := &inspectVisitor{
		e: e,
		longest: topk.NewSelector(k, func(a, b PathInfo) bool {
			return a.Length < b.Length || a.Length == b.Length && a.Path > b.Path
		}),
		largest: topk.NewSelector(k, func(a, b DirSize) bool {
			return a.Bytes < b.Bytes || a.Bytes == b.Bytes && a.Path > b.Path
		}),
	}

	if !root.IsDirectory() {
		return e.factory.StartNew(func(context.Context) (any, error) {
			acc := &inspectDir{}
			v.leaf(acc, root)
			return v.result(root, acc), nil
		})
	}

	return Traverse[*inspectDir](e, root, v).Then(func(_ context.Context, val any) *task.Task {
		acc, _ := val.(*inspectDir)
		if acc == nil {
			acc = &inspectDir{}
		}
		return e.factory.FromResult(v.result(root, acc))
	})
}

func (v *inspectVisitor) result(root fsys.Entry, acc *inspectDir) *Inspection {
	longest := v.longest.Drain()
	slices.Reverse(longest)
	largest := v.largest.Drain()
	slices.Reverse(largest)
	return &Inspection{
		Root:         root.Path,
		LongestPaths: longest,
		LargestDirs:  largest,
		Dirs:         acc.dirs.Load(),
		Files:        acc.files.Load(),
		Symlinks:     acc.symlinks.Load(),
		Bytes:        acc.bytes.Load(),
	}
}

func (v *inspectVisitor) leaf(acc *inspectDir, en fsys.Entry) {
	if en.IsSymlink() {
		acc.symlinks.Add(1)
	} else {
		acc.files.Add(1)
		acc.bytes.Add(en.Size)
	}
	v.longest.Add(PathInfo{Path: en.Path, Length: utf8.RuneCountInString(en.Path)})
}

func (*inspectVisitor) Enter(_ context.Context, parent *inspectDir, dir fsys.Entry) (*inspectDir, error) {
	if parent == nil {
		return &inspectDir{}, nil
	}
	return &inspectDir{rel: filepath.Join(parent.rel, dir.Name)}, nil
}

func (v *inspectVisitor) Descend(acc *inspectDir, child fsys.Entry) bool {
	return v.e.filter.MatchEntry(filepath.Join(acc.rel, child.Name), child)
}

func (v *inspectVisitor) Entries(_ context.Context, acc *inspectDir, _ fsys.Entry, entries []fsys.Entry) *task.Task {
	for _, en := range entries {
		if en.IsDirectory() || !v.e.filter.MatchEntry(filepath.Join(acc.rel, en.Name), en) {
			continue
		}
		v.leaf(acc, en)
	}
	return nil
}

func (v *inspectVisitor) Leave(_ context.Context, acc *inspectDir, dir fsys.Entry, _ error) {
	v.longest.Add(PathInfo{Path: dir.Path, Length: utf8.RuneCountInString(dir.Path)})
	v.largest.Add(DirSize{Path: dir.Path, Bytes: acc.bytes.Load()})
}

func (*inspectVisitor) Merge(parent, child *inspectDir) {
	parent.dirs.Add(child.dirs.Load() + 1)
	parent.files.Add(child.files.Load())
	parent.symlinks.Add(child.symlinks.Load())
	parent.bytes.Add(child.bytes.Load())
}
