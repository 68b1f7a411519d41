package engine_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/parfs/internal/engine"
	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/fsys"
	"github.com/bamsammich/parfs/internal/task"
)

// harness wires an Engine to a real filesystem rooted in a temp dir.
type harness struct {
	fs      fsys.FileSystem
	factory *task.Factory
	eng     *engine.Engine
	bus     *event.Bus
	rec     *recorder
}

type harnessOpt func(*engine.Options)

func newHarness(t *testing.T, workers int, fs fsys.FileSystem, opts ...harnessOpt) *harness {
	t.Helper()
	if fs == nil {
		fs = fsys.NewLocal(fsys.Options{})
	}
	factory := task.NewFactory(context.Background(), workers)
	t.Cleanup(factory.Close)

	bus := event.NewBus()
	rec := &recorder{}
	bus.Subscribe(rec.record)

	o := engine.Options{FS: fs, Factory: factory, Bus: bus}
	for _, opt := range opts {
		opt(&o)
	}
	return &harness{fs: fs, factory: factory, eng: engine.New(o), bus: bus, rec: rec}
}

func (h *harness) entry(t *testing.T, path string) fsys.Entry {
	t.Helper()
	e, err := h.fs.GetEntry(path)
	require.NoError(t, err)
	return e
}

func wait(t *testing.T, tk *task.Task) {
	t.Helper()
	require.True(t, tk.Wait(30*time.Second), "task did not complete")
	require.Equal(t, task.Completed, tk.Status(), "task error: %v", tk.Err())
}

// recorder keeps every event in emission order.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) record(e event.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func (r *recorder) paths(typ event.Type) []string {
	var out []string
	for _, e := range r.all() {
		if e.Type == typ {
			out = append(out, e.Path)
		}
	}
	slices.Sort(out)
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// createTestTree populates root with a standard test tree:
//
//	root.txt          (17 bytes)
//	big.bin           (320KB)
//	sub/mid.txt       (19 bytes)
//	sub/deep/leaf.txt (17 bytes)
//	link.txt          → root.txt (symlink)
func createTestTree(t *testing.T, root string) {
	t.Helper()

	writeFile(t, filepath.Join(root, "root.txt"), "root file content")
	writeFile(t, filepath.Join(root, "big.bin"), strings.Repeat("ABCDEFGHIJKLMNOP", 20000))
	writeFile(t, filepath.Join(root, "sub", "mid.txt"), "middle file content")
	writeFile(t, filepath.Join(root, "sub", "deep", "leaf.txt"), "leaf file content")
	require.NoError(t, os.Symlink("root.txt", filepath.Join(root, "link.txt")))
}

var testTreeFiles = []string{
	"root.txt",
	"big.bin",
	filepath.Join("sub", "mid.txt"),
	filepath.Join("sub", "deep", "leaf.txt"),
}

// verifyTreeCopy checks that dstRoot contains an exact copy of the test tree
// created by createTestTree under srcRoot.
func verifyTreeCopy(t *testing.T, srcRoot, dstRoot string) {
	t.Helper()

	for _, rel := range testTreeFiles {
		srcData, err := os.ReadFile(filepath.Join(srcRoot, rel))
		require.NoError(t, err, "read src %s", rel)
		dstData, err := os.ReadFile(filepath.Join(dstRoot, rel))
		require.NoError(t, err, "read dst %s", rel)
		assert.True(t, bytes.Equal(srcData, dstData), "content mismatch for %s", rel)

		srcInfo, err := os.Stat(filepath.Join(srcRoot, rel))
		require.NoError(t, err)
		dstInfo, err := os.Stat(filepath.Join(dstRoot, rel))
		require.NoError(t, err)
		assert.Equal(t, srcInfo.Size(), dstInfo.Size(), "size mismatch for %s", rel)
		assert.True(t, srcInfo.ModTime().Equal(dstInfo.ModTime()), "mtime mismatch for %s", rel)
	}

	target, err := os.Readlink(filepath.Join(dstRoot, "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, "root.txt", target)
}

// listTree returns every path under root, relative and sorted.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.WalkDir(root, func(p string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return err
		}
		out = append(out, rel)
		return nil
	}))
	slices.Sort(out)
	return out
}

// faultFS wraps a FileSystem to inject failures and measure concurrency.
type faultFS struct {
	fsys.FileSystem
	copyErrs   map[string]error // by source base name
	deleteErrs map[string]error // by base name
	delay      time.Duration
	inFlight   atomic.Int64
	peak       atomic.Int64
}

func (f *faultFS) track() func() {
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *faultFS) CopyFile(
	ctx context.Context,
	src fsys.Entry,
	dstPath string,
	opts fsys.CopyFileOptions,
	progress func(int64),
) (int64, error) {
	defer f.track()()
	if err, ok := f.copyErrs[src.Name]; ok {
		return 0, err
	}
	return f.FileSystem.CopyFile(ctx, src, dstPath, opts, progress)
}

func (f *faultFS) DeleteEntry(e fsys.Entry) error {
	defer f.track()()
	if err, ok := f.deleteErrs[e.Name]; ok {
		return err
	}
	return f.FileSystem.DeleteEntry(e)
}
