package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bamsammich/parfs/internal/compare"
	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/fsys"
	"github.com/bamsammich/parfs/internal/task"
)

// CopyOptions is a bit-set of independent copy policies. The zero value
// copies everything and never deletes.
type CopyOptions uint8

const (
	// SkipIdenticalFiles skips files the comparer reports as identical.
	SkipIdenticalFiles CopyOptions = 1 << iota
	// DeleteMismatchedFiles deletes a destination of a different kind
	// (file vs directory vs symlink) before copying instead of failing.
	DeleteMismatchedFiles
	// DeleteExtraFiles removes destination entries absent from the source.
	DeleteExtraFiles
)

// Has reports whether every flag in o is set.
func (c CopyOptions) Has(o CopyOptions) bool { return c&o == o }

func (c CopyOptions) String() string {
	var parts []string
	if c.Has(SkipIdenticalFiles) {
		parts = append(parts, "skip-identical")
	}
	if c.Has(DeleteMismatchedFiles) {
		parts = append(parts, "delete-mismatched")
	}
	if c.Has(DeleteExtraFiles) {
		parts = append(parts, "delete-extra")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

var errDstIsDir = errors.New("destination is a directory")

// copyDir is the accumulator for one source directory.
type copyDir struct {
	exact  map[string]fsys.Entry // destination listing by name; nil when dst is new
	folded map[string]fsys.Entry // same listing by lower-cased name
	dst    string
	rel    string
	extras []fsys.Entry // destination listing, for mirror cleanup
}

func (d *copyDir) index(entries []fsys.Entry) {
	d.exact = make(map[string]fsys.Entry, len(entries))
	d.folded = make(map[string]fsys.Entry, len(entries))
	for _, en := range entries {
		d.exact[en.Name] = en
		if _, taken := d.folded[strings.ToLower(en.Name)]; !taken {
			d.folded[strings.ToLower(en.Name)] = en
		}
	}
}

// lookup finds the destination entry for a source name. An exact match wins;
// otherwise names are compared case-insensitively. Callers build the
// destination path from the returned entry's Name.
func (d *copyDir) lookup(name string) (fsys.Entry, bool) {
	if d.exact == nil {
		return fsys.Entry{}, false
	}
	if en, ok := d.exact[name]; ok {
		return en, true
	}
	en, ok := d.folded[strings.ToLower(name)]
	return en, ok
}

// target is the destination path for a source name.
func (d *copyDir) target(name string) (string, fsys.Entry, bool) {
	existing, ok := d.lookup(name)
	if ok {
		name = existing.Name
	}
	return filepath.Join(d.dst, name), existing, ok
}

type copyVisitor struct {
	e        *Engine
	cmp      compare.Comparer
	dstRoot  string
	opts     CopyOptions
	dstIsNew bool
}

// CopyDirectory copies the tree under src into dst. Each destination
// directory exists before any copy beneath it is scheduled. dstIsNew skips
// probing a destination known not to exist. A nil cmp uses compare.Default.
func (e *Engine) CopyDirectory(
	src fsys.Entry,
	dst string,
	opts CopyOptions,
	cmp compare.Comparer,
	dstIsNew bool,
) *task.Task {
	if cmp == nil {
		cmp = compare.Default
	}
	return Traverse[*copyDir](e, src, &copyVisitor{
		e:        e,
		cmp:      cmp,
		dstRoot:  dst,
		opts:     opts,
		dstIsNew: dstIsNew,
	})
}

// CopyEntry copies a single non-directory entry to dst, following the same
// skip and overwrite policy as CopyDirectory.
func (e *Engine) CopyEntry(src fsys.Entry, dst string, opts CopyOptions, cmp compare.Comparer) *task.Task {
	if cmp == nil {
		cmp = compare.Default
	}
	v := &copyVisitor{e: e, cmp: cmp, opts: opts}
	return e.factory.StartNested(func(ctx context.Context) *task.Task {
		acc := &copyDir{dst: filepath.Dir(dst)}
		if existing, err := e.fs.GetEntry(dst); err == nil {
			acc.index([]fsys.Entry{existing})
		}
		return v.copyLeaf(ctx, acc, src, filepath.Base(dst))
	})
}

func (v *copyVisitor) Enter(_ context.Context, parent *copyDir, dir fsys.Entry) (*copyDir, error) {
	acc := &copyDir{dst: v.dstRoot}
	isNew := v.dstIsNew
	var existing fsys.Entry
	var exists bool

	if parent != nil {
		acc.dst, existing, exists = parent.target(dir.Name)
		acc.rel = filepath.Join(parent.rel, dir.Name)
		isNew = !exists
	} else if !isNew {
		en, err := v.e.fs.GetEntry(acc.dst)
		switch {
		case err == nil:
			existing, exists = en, true
		case fsys.IsNotFound(err):
			isNew = true
		default:
			return nil, err
		}
	}

	if exists && !existing.IsDirectory() {
		if !v.opts.Has(DeleteMismatchedFiles) {
			return nil, fmt.Errorf("destination %s exists and is not a directory", acc.dst)
		}
		if err := v.e.remove(existing); err != nil {
			return nil, err
		}
		if parent != nil {
			acc.dst = filepath.Join(parent.dst, dir.Name)
		}
		isNew = true
	}

	if isNew {
		if err := v.e.createDirectory(acc.dst); err != nil {
			return nil, err
		}
		return acc, nil
	}

	entries, err := v.e.fs.EnumerateEntries(acc.dst, "")
	if err != nil {
		return nil, err
	}
	acc.index(entries)
	acc.extras = entries
	return acc, nil
}

func (v *copyVisitor) Descend(acc *copyDir, child fsys.Entry) bool {
	return v.e.filter.MatchEntry(filepath.Join(acc.rel, child.Name), child)
}

func (v *copyVisitor) Entries(ctx context.Context, acc *copyDir, _ fsys.Entry, entries []fsys.Entry) *task.Task {
	work := v.e.factory.NewCollection()

	for _, src := range entries {
		if ctx.Err() != nil {
			return work.WhenAll()
		}
		if src.IsDirectory() || !v.e.filter.MatchEntry(filepath.Join(acc.rel, src.Name), src) {
			continue
		}
		work.Add(v.e.factory.StartNested(func(ctx context.Context) *task.Task {
			return v.copyLeaf(ctx, acc, src, src.Name)
		}))
	}

	if !v.opts.Has(DeleteExtraFiles) || len(acc.extras) == 0 {
		return work.WhenAll()
	}
	// Extras go only after every copy in this directory has settled.
	return work.Then(func(context.Context, any) *task.Task {
		deletes := v.e.factory.NewCollection()
		for _, extra := range v.extraEntries(acc, entries) {
			deletes.Add(v.e.DeleteEntry(extra, nil))
		}
		return deletes.WhenAll()
	})
}

// extraEntries set-differences the destination listing against the source
// listing: a destination entry is extra unless lookup resolves some source
// name to it. Destination entries the filter excludes were never candidates
// for copying and are left alone.
func (v *copyVisitor) extraEntries(acc *copyDir, entries []fsys.Entry) []fsys.Entry {
	claimed := make(map[string]struct{}, len(entries))
	for _, src := range entries {
		if en, ok := acc.lookup(src.Name); ok {
			claimed[en.Name] = struct{}{}
		}
	}

	var extras []fsys.Entry
	for _, dst := range acc.extras {
		if _, ok := claimed[dst.Name]; ok {
			continue
		}
		if !v.e.filter.MatchEntry(filepath.Join(acc.rel, dst.Name), dst) {
			continue
		}
		extras = append(extras, dst)
	}
	if len(extras) > 0 {
		v.e.emit(event.Event{Type: event.EntriesToDeleteDiscovered, Path: acc.dst, Count: len(extras)})
	}
	return extras
}

// copyLeaf applies the per-file policy: missing → copy; identical under
// SkipIdenticalFiles → skip; different kind under DeleteMismatchedFiles →
// delete then copy; otherwise overwrite.
func (v *copyVisitor) copyLeaf(ctx context.Context, acc *copyDir, src fsys.Entry, name string) *task.Task {
	dstPath, existing, exists := acc.target(name)
	if !exists {
		v.e.copyFile(ctx, src, dstPath)
		return nil
	}

	if v.opts.Has(SkipIdenticalFiles) && v.cmp.AreEqual(src, existing) {
		v.e.stats.AddFilesSkipped(1)
		v.e.emit(event.Event{Type: event.FileSkipped, Path: src.Path, Dest: dstPath, Size: src.Size})
		return nil
	}

	if src.SameKind(existing) {
		v.e.copyFile(ctx, src, dstPath)
		return nil
	}

	if !v.opts.Has(DeleteMismatchedFiles) {
		if existing.IsDirectory() {
			v.e.fail("copy", dstPath, errDstIsDir)
			return nil
		}
		v.e.copyFile(ctx, src, dstPath)
		return nil
	}

	return v.e.DeleteEntry(existing, nil).ContinueWith(func(ctx context.Context, _ *task.Task) (any, error) {
		v.e.copyFile(ctx, src, filepath.Join(acc.dst, name))
		return nil, nil
	})
}

func (*copyVisitor) Leave(context.Context, *copyDir, fsys.Entry, error) {}

func (*copyVisitor) Merge(_, _ *copyDir) {}

// copyFile copies one leaf and accounts for it.
func (e *Engine) copyFile(ctx context.Context, src fsys.Entry, dstPath string) {
	if ctx.Err() != nil {
		return
	}
	e.emit(event.Event{Type: event.FileCopying, Path: src.Path, Dest: dstPath, Size: src.Size})

	if e.dryRun {
		e.countCopied(src, src.Size)
		e.emit(event.Event{Type: event.FileCopied, Path: src.Path, Dest: dstPath, Size: src.Size})
		return
	}

	var reported int64
	wantProgress := e.bus.Has(event.FileCopyProgress)
	progress := func(copied int64) {
		e.stats.AddBytesCopied(copied - reported)
		reported = copied
		if wantProgress {
			e.emit(event.Event{Type: event.FileCopyProgress, Path: src.Path, Dest: dstPath, Size: copied})
		}
	}

	n, err := e.fs.CopyFile(ctx, src, dstPath, fsys.CopyFileOptions{Overwrite: true}, progress)
	if n > reported {
		e.stats.AddBytesCopied(n - reported)
	}
	if err != nil {
		e.fail("copy", src.Path, err)
		return
	}
	e.countCopied(src, 0)
	e.emit(event.Event{Type: event.FileCopied, Path: src.Path, Dest: dstPath, Size: n})
}

func (e *Engine) countCopied(src fsys.Entry, bytes int64) {
	if src.IsSymlink() {
		e.stats.AddSymlinksCopied(1)
	} else {
		e.stats.AddFilesCopied(1)
	}
	e.stats.AddBytesCopied(bytes)
}

func (e *Engine) createDirectory(path string) error {
	if !e.dryRun {
		if err := e.fs.CreateDirectory(path); err != nil {
			return err
		}
	}
	e.stats.AddDirsCreated(1)
	e.emit(event.Event{Type: event.DirectoryCreated, Path: path})
	return nil
}
