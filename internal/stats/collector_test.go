package stats

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	const goroutines = 100
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range opsPerGoroutine {
				c.AddFilesDiscovered(1)
				c.AddFilesCopied(1)
				c.AddFilesSkipped(1)
				c.AddBytesCopied(256)
				c.AddDirsCreated(1)
				c.AddFilesDeleted(1)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	expected := int64(goroutines * opsPerGoroutine)
	assert.Equal(t, expected, s.FilesDiscovered)
	assert.Equal(t, expected, s.FilesCopied)
	assert.Equal(t, expected, s.FilesSkipped)
	assert.Equal(t, expected*256, s.BytesCopied)
	assert.Equal(t, expected, s.DirsCreated)
	assert.Equal(t, expected, s.FilesDeleted)
	assert.Equal(t, expected*3, s.Processed())
}

func TestRecordErrorConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for g := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				c.RecordError("copy", fmt.Sprintf("/g%d/f%d", g, i), fs.ErrPermission)
			}
		}()
	}
	wg.Wait()

	errs := c.Errors()
	assert.Len(t, errs, 500)
	assert.Equal(t, int64(500), c.Snapshot().Errors)
	assert.ErrorIs(t, errs[0], fs.ErrPermission)
}

func TestEntryError(t *testing.T) {
	e := EntryError{Op: "delete", Path: "/a/b", Err: errors.New("busy")}
	assert.Equal(t, "delete /a/b: busy", e.Error())
}

func TestErrorsReturnsCopy(t *testing.T) {
	c := NewCollector()
	c.RecordError("stat", "/x", fs.ErrNotExist)
	errs := c.Errors()
	errs[0].Path = "mutated"
	assert.Equal(t, "/x", c.Errors()[0].Path)
}

func TestStartStop(t *testing.T) {
	c := NewCollector()
	assert.Zero(t, c.Elapsed())
	assert.Zero(t, c.CPUTime())

	c.Start()
	time.Sleep(10 * time.Millisecond)
	assert.Greater(t, c.Elapsed(), time.Duration(0))

	c.Stop()
	frozen := c.Elapsed()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, frozen, c.Elapsed())
	assert.GreaterOrEqual(t, c.CPUTime(), time.Duration(0))

	// A second Stop keeps the first reading.
	c.Stop()
	assert.Equal(t, frozen, c.Elapsed())
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		DirsDiscovered:  2,
		FilesDiscovered: 10,
		DirsTraversed:   2,
		DirsCreated:     2,
		FilesCopied:     8,
		FilesSkipped:    2,
		BytesCopied:     4096,
		Errors:          1,
	}
	expected := "discovered=2/10/0 traversed=2 created=2 copied=8 skipped=2 deleted=0/0/0 bytes=4096 errors=1"
	assert.Equal(t, expected, s.String())
}

func TestTickAndRollingSpeed(t *testing.T) {
	c := NewCollector()

	// Simulate 5 seconds of 1000 bytes/sec.
	for range 5 {
		c.AddBytesCopied(1000)
		c.AddFilesCopied(10)
		c.Tick()
	}

	assert.InDelta(t, 1000.0, c.RollingSpeed(5), 0.01)
	assert.InDelta(t, 10.0, c.RollingEntriesPerSec(5), 0.01)
}

func TestRollingSpeedPartialWindow(t *testing.T) {
	c := NewCollector()

	c.AddBytesCopied(500)
	c.Tick()
	c.AddBytesCopied(500)
	c.Tick()

	// Ask for 10 but only have 2.
	assert.InDelta(t, 500.0, c.RollingSpeed(10), 0.01)
}

func TestRollingSpeedNoSamples(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 0.0, c.RollingSpeed(5))
}

func TestRingWraparound(t *testing.T) {
	c := NewCollector()
	for range ringSize + 10 {
		c.AddBytesCopied(7)
		c.Tick()
	}
	assert.InDelta(t, 7.0, c.RollingSpeed(ringSize*2), 0.01)
}

func TestHistory(t *testing.T) {
	c := NewCollector()
	assert.Empty(t, c.History())

	for i := range ringSize + 3 {
		c.AddBytesCopied(int64(i))
		c.Tick()
	}
	h := c.History()
	require.Len(t, h, ringSize)
	assert.Equal(t, 3.0, h[0])
	assert.Equal(t, float64(ringSize+2), h[len(h)-1])
}

func TestETA(t *testing.T) {
	c := NewCollector()
	c.AddBytesDiscovered(10000)

	for range 5 {
		c.AddBytesCopied(1000)
		c.Tick()
	}

	assert.InDelta(t, 5.0, c.ETA().Seconds(), 1.0)
}

func TestETANoSpeed(t *testing.T) {
	c := NewCollector()
	c.AddBytesDiscovered(10000)
	assert.Equal(t, time.Duration(0), c.ETA())
}

func TestETAComplete(t *testing.T) {
	c := NewCollector()
	c.AddBytesDiscovered(1000)
	c.AddBytesCopied(1000)
	c.Tick()
	assert.Equal(t, time.Duration(0), c.ETA())
}

func TestMonitorPulses(t *testing.T) {
	var pulses atomic.Int64
	m := StartMonitor(5*time.Millisecond, func() { pulses.Add(1) })

	require.Eventually(t, func() bool { return pulses.Load() >= 3 }, time.Second, time.Millisecond)
	m.Stop()

	after := pulses.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, pulses.Load(), "no pulse after Stop")

	m.Stop()
}

func TestMonitorDefaultPeriod(t *testing.T) {
	fired := make(chan struct{}, 1)
	m := StartMonitor(0, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	defer m.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("default pulse never fired")
	}
}
