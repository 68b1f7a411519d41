package stats

import (
	"sync"
	"time"
)

// DefaultPulse is the refresh period used when none is given.
const DefaultPulse = 100 * time.Millisecond

// Monitor fires a data-less pulse on a fixed period. Consumers re-read the
// live Collector on each pulse.
type Monitor struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartMonitor calls onPulse every period until Stop. A non-positive period
// uses DefaultPulse.
func StartMonitor(period time.Duration, onPulse func()) *Monitor {
	if period <= 0 {
		period = DefaultPulse
	}
	m := &Monitor{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				onPulse()
			}
		}
	}()
	return m
}

// Stop halts the pulse and waits for the pulse goroutine to exit. No pulse
// fires after Stop returns. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}
