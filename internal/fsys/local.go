package fsys

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
	"golang.org/x/time/rate"

	"github.com/bamsammich/parfs/internal/pool"
)

const (
	// DefaultLargeFileThreshold is the size at which copies switch to
	// chunked kernel transfer with page-cache dropping.
	DefaultLargeFileThreshold = 16 << 20
	// DefaultProgressInterval throttles per-file progress callbacks.
	DefaultProgressInterval = 250 * time.Millisecond

	bufferSize = 1 << 20
)

// Compile-time interface checks.
var (
	_ FileSystem = (*FS)(nil)
	_ Hasher     = (*FS)(nil)
)

// Options tunes an FS. Zero values select defaults.
type Options struct {
	Buffers            *pool.Pool[[]byte] // nil uses 2x GOMAXPROCS slots; see NewBuffers

	Limiter            *rate.Limiter // shared across all copies; nil is unlimited
	LargeFileThreshold int64
	ProgressInterval   time.Duration
}

// FS implements FileSystem over an afero.Fs.
type FS struct {
	fs    afero.Fs
	opts  Options
	temps tempRegistry
}

// New wraps backing.
func New(backing afero.Fs, opts Options) *FS {
	if opts.Buffers == nil {
		opts.Buffers = pool.Buffers(0, bufferSize)
	}
	if opts.LargeFileThreshold <= 0 {
		opts.LargeFileThreshold = DefaultLargeFileThreshold
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &FS{fs: backing, opts: opts}
}

// NewBuffers returns a copy-buffer pool with two slots per worker.
func NewBuffers(workers int) *pool.Pool[[]byte] {
	return pool.Buffers(2*max(workers, 1), bufferSize)
}

// BufferSlots returns the slot count of the copy-buffer pool.
func (f *FS) BufferSlots() int { return f.opts.Buffers.Size() }

// NewLocal returns an FS over the operating system's filesystem.
func NewLocal(opts Options) *FS {
	return New(afero.NewOsFs(), opts)
}

// Backing returns the wrapped afero.Fs.
//
//nolint:ireturn // exposes the afero handle for tests and helpers
func (f *FS) Backing() afero.Fs { return f.fs }

func (f *FS) GetEntry(path string) (Entry, error) {
	info, err := f.lstat(path)
	if err != nil {
		return Entry{}, wrapPathErr("stat", path, err)
	}
	return NewEntry(path, info, f.readlink(path, info)), nil
}

func (f *FS) EnumerateEntries(path, pattern string) ([]Entry, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("enumerate %s: %w: %q", path, doublestar.ErrBadPattern, pattern)
	}

	infos, err := afero.ReadDir(f.fs, path)
	if err != nil {
		return nil, wrapPathErr("enumerate", path, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, info.Name()); !ok {
				continue
			}
		}
		child := filepath.Join(path, info.Name())
		entries = append(entries, NewEntry(child, info, f.readlink(child, info)))
	}
	return entries, nil
}

func (f *FS) CreateDirectory(path string) error {
	if err := f.fs.MkdirAll(path, 0o755); err != nil {
		return wrapPathErr("mkdir", path, err)
	}
	return nil
}

func (f *FS) DeleteEntry(entry Entry) error {
	if err := f.fs.Remove(entry.Path); err != nil {
		return wrapPathErr("remove", entry.Path, err)
	}
	return nil
}

// Hash returns the hex BLAKE3 digest of the file at path.
func (f *FS) Hash(path string) (string, error) {
	in, err := f.fs.Open(path)
	if err != nil {
		return "", wrapPathErr("open", path, err)
	}
	defer in.Close()

	bufp := f.opts.Buffers.Allocate()
	defer f.opts.Buffers.Recycle(bufp)

	h := blake3.New()
	if _, err := io.CopyBuffer(h, in, *bufp); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CleanupTemps removes temporary files left by copies that are still in
// flight, for use on abnormal shutdown.
func (f *FS) CleanupTemps() {
	for _, p := range f.temps.drain() {
		_ = f.fs.Remove(p)
	}
}

func (f *FS) lstat(path string) (fs.FileInfo, error) {
	if l, ok := f.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return f.fs.Stat(path)
}

func (f *FS) readlink(path string, info fs.FileInfo) string {
	if info.Mode()&fs.ModeSymlink == 0 {
		return ""
	}
	r, ok := f.fs.(afero.LinkReader)
	if !ok {
		return ""
	}
	target, err := r.ReadlinkIfPossible(path)
	if err != nil {
		return ""
	}
	return target
}

// tempRegistry tracks in-progress temporary files.
type tempRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (r *tempRegistry) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paths == nil {
		r.paths = make(map[string]struct{})
	}
	r.paths[path] = struct{}{}
}

func (r *tempRegistry) remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
}

func (r *tempRegistry) drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	r.paths = nil
	return paths
}

func (r *tempRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

// osFile unwraps an afero file backed by the operating system.
func osFile(f afero.File) (*os.File, bool) {
	of, ok := f.(*os.File)
	return of, ok
}
