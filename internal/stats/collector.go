package stats

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// EntryError is one recorded failure.
type EntryError struct {
	Err  error
	Op   string
	Path string
}

func (e EntryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e EntryError) Unwrap() error { return e.Err }

// Collector tracks one operation's statistics using lock-free atomic
// counters. Only the error list and the throughput ring take a lock.
type Collector struct {
	dirsDiscovered     atomic.Int64
	filesDiscovered    atomic.Int64
	symlinksDiscovered atomic.Int64
	bytesDiscovered    atomic.Int64
	dirsTraversed      atomic.Int64
	dirsCreated        atomic.Int64
	filesCopied        atomic.Int64
	symlinksCopied     atomic.Int64
	filesSkipped       atomic.Int64
	dirsDeleted        atomic.Int64
	filesDeleted       atomic.Int64
	symlinksDeleted    atomic.Int64
	entriesKept        atomic.Int64
	entriesVanished    atomic.Int64
	bytesCopied        atomic.Int64
	bytesDeleted       atomic.Int64
	errorCount         atomic.Int64

	// Guarded by mu: bracket times and CPU samples.
	mu        sync.Mutex
	startTime time.Time
	stopTime  time.Time
	cpuStart  time.Duration
	cpuTime   time.Duration

	errMu  sync.Mutex
	errors []EntryError

	// Ring buffer, written only by the presenter's Tick().
	ringMu        sync.Mutex
	throughput    [ringSize]int64 // bytes delta per second
	entriesPerSec [ringSize]int64 // processed-entries delta per second
	ringIdx       int
	ringCount     int // samples written, capped at ringSize
	lastBytes     int64
	lastEntries   int64
}

// NewCollector creates a Collector. Call Start before the operation begins.
func NewCollector() *Collector {
	return &Collector{}
}

// Start records the wall-clock and CPU start of the operation.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.stopTime = time.Time{}
	c.cpuStart = processCPUTime()
	c.cpuTime = 0
}

// Stop freezes elapsed and CPU time.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startTime.IsZero() || !c.stopTime.IsZero() {
		return
	}
	c.stopTime = time.Now()
	c.cpuTime = processCPUTime() - c.cpuStart
}

// Elapsed returns wall-clock time since Start, frozen at Stop.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.startTime.IsZero():
		return 0
	case c.stopTime.IsZero():
		return time.Since(c.startTime)
	default:
		return c.stopTime.Sub(c.startTime)
	}
}

// CPUTime returns process CPU time consumed since Start, frozen at Stop.
func (c *Collector) CPUTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.startTime.IsZero():
		return 0
	case c.stopTime.IsZero():
		return processCPUTime() - c.cpuStart
	default:
		return c.cpuTime
	}
}

func (c *Collector) AddDirsDiscovered(n int64)     { c.dirsDiscovered.Add(n) }
func (c *Collector) AddFilesDiscovered(n int64)    { c.filesDiscovered.Add(n) }
func (c *Collector) AddSymlinksDiscovered(n int64) { c.symlinksDiscovered.Add(n) }
func (c *Collector) AddBytesDiscovered(n int64)    { c.bytesDiscovered.Add(n) }
func (c *Collector) AddDirsTraversed(n int64)      { c.dirsTraversed.Add(n) }
func (c *Collector) AddDirsCreated(n int64)        { c.dirsCreated.Add(n) }
func (c *Collector) AddFilesCopied(n int64)        { c.filesCopied.Add(n) }
func (c *Collector) AddSymlinksCopied(n int64)     { c.symlinksCopied.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)       { c.filesSkipped.Add(n) }
func (c *Collector) AddDirsDeleted(n int64)        { c.dirsDeleted.Add(n) }
func (c *Collector) AddFilesDeleted(n int64)       { c.filesDeleted.Add(n) }
func (c *Collector) AddSymlinksDeleted(n int64)    { c.symlinksDeleted.Add(n) }
func (c *Collector) AddEntriesKept(n int64)        { c.entriesKept.Add(n) }
func (c *Collector) AddEntriesVanished(n int64)    { c.entriesVanished.Add(n) }
func (c *Collector) AddBytesCopied(n int64)        { c.bytesCopied.Add(n) }
func (c *Collector) AddBytesDeleted(n int64)       { c.bytesDeleted.Add(n) }

// RecordError appends a failure to the error list. It never blocks a
// producer beyond a short append.
func (c *Collector) RecordError(op, path string, err error) {
	c.errorCount.Add(1)
	c.errMu.Lock()
	c.errors = append(c.errors, EntryError{Op: op, Path: path, Err: err})
	c.errMu.Unlock()
}

// Errors returns a copy of the recorded failures in arrival order.
func (c *Collector) Errors() []EntryError {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return slices.Clone(c.errors)
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	DirsDiscovered     int64
	FilesDiscovered    int64
	SymlinksDiscovered int64
	BytesDiscovered    int64
	DirsTraversed      int64
	DirsCreated        int64
	FilesCopied        int64
	SymlinksCopied     int64
	FilesSkipped       int64
	DirsDeleted        int64
	FilesDeleted       int64
	SymlinksDeleted    int64
	EntriesKept        int64
	EntriesVanished    int64
	BytesCopied        int64
	BytesDeleted       int64
	Errors             int64
	Elapsed            time.Duration
	CPUTime            time.Duration
}

// Snapshot reads every counter without pausing producers. Counters are read
// individually, so a snapshot taken mid-operation may be slightly skewed.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		DirsDiscovered:     c.dirsDiscovered.Load(),
		FilesDiscovered:    c.filesDiscovered.Load(),
		SymlinksDiscovered: c.symlinksDiscovered.Load(),
		BytesDiscovered:    c.bytesDiscovered.Load(),
		DirsTraversed:      c.dirsTraversed.Load(),
		DirsCreated:        c.dirsCreated.Load(),
		FilesCopied:        c.filesCopied.Load(),
		SymlinksCopied:     c.symlinksCopied.Load(),
		FilesSkipped:       c.filesSkipped.Load(),
		DirsDeleted:        c.dirsDeleted.Load(),
		FilesDeleted:       c.filesDeleted.Load(),
		SymlinksDeleted:    c.symlinksDeleted.Load(),
		EntriesKept:        c.entriesKept.Load(),
		EntriesVanished:    c.entriesVanished.Load(),
		BytesCopied:        c.bytesCopied.Load(),
		BytesDeleted:       c.bytesDeleted.Load(),
		Errors:             c.errorCount.Load(),
		Elapsed:            c.Elapsed(),
		CPUTime:            c.CPUTime(),
	}
}

// Processed is the number of entries copied, skipped or deleted.
func (s Snapshot) Processed() int64 {
	return s.FilesCopied + s.SymlinksCopied + s.FilesSkipped +
		s.FilesDeleted + s.SymlinksDeleted + s.DirsDeleted
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"discovered=%d/%d/%d traversed=%d created=%d copied=%d skipped=%d deleted=%d/%d/%d bytes=%d errors=%d",
		s.DirsDiscovered, s.FilesDiscovered, s.SymlinksDiscovered,
		s.DirsTraversed, s.DirsCreated,
		s.FilesCopied+s.SymlinksCopied, s.FilesSkipped,
		s.DirsDeleted, s.FilesDeleted, s.SymlinksDeleted,
		s.BytesCopied, s.Errors,
	)
}

// Tick snapshots byte/entry deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesCopied.Load()
	currentEntries := c.Snapshot().Processed()

	c.ringMu.Lock()
	defer c.ringMu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.entriesPerSec[c.ringIdx] = currentEntries - c.lastEntries
	c.lastBytes = currentBytes
	c.lastEntries = currentEntries

	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.ringMu.Lock()
	defer c.ringMu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingEntriesPerSec returns average processed entries/sec over the last n seconds.
func (c *Collector) RollingEntriesPerSec(seconds int) float64 {
	c.ringMu.Lock()
	defer c.ringMu.Unlock()
	return c.rollingAvg(c.entriesPerSec[:], seconds)
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := min(n, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// ETA estimates remaining copy time from rolling speed and the bytes
// discovered so far. Discovery runs ahead of copying, so the estimate
// grows while traversal is still finding work.
func (c *Collector) ETA() time.Duration {
	speed := c.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesDiscovered.Load() - c.bytesCopied.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// History returns the per-second byte samples recorded by Tick, oldest
// first.
func (c *Collector) History() []float64 {
	c.ringMu.Lock()
	defer c.ringMu.Unlock()
	out := make([]float64, c.ringCount)
	for i := range c.ringCount {
		idx := (c.ringIdx - c.ringCount + i + ringSize) % ringSize
		out[i] = float64(c.throughput[idx])
	}
	return out
}
