package fsys

import (
	"context"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps aggregate throughput to
// bytesPerSec. The burst is 1 MiB so natural read-size chunks pass without
// needless blocking.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := 1 << 20
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// waitBandwidth blocks until n bytes may pass, in burst-sized slices since
// WaitN rejects requests larger than the burst.
func waitBandwidth(ctx context.Context, l *rate.Limiter, n int) error {
	if l == nil {
		return nil
	}
	burst := l.Burst()
	for n > 0 {
		take := min(n, burst)
		if err := l.WaitN(ctx, take); err != nil {
			return err
		}
		n -= take
	}
	return nil
}
