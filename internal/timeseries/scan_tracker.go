// Package timeseries provides windowed rate tracking for the background
// indexer's scan throughput.
//
// The indexer adds bytes as it fills its parse buffer (lock-free atomic);
// a periodic sampler snapshots the cumulative count into a small ring
// buffer, from which rolling averages over 1s/10s/60s windows are derived
// for the dashboard and metrics.
package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ringSize bounds sample history: two minutes at one sample per second.
	ringSize = 120

	window1s  = 1 * time.Second
	window10s = 10 * time.Second
	window60s = 60 * time.Second
)

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// sample is a point-in-time snapshot of the cumulative byte count.
type sample struct {
	at    time.Time
	bytes int64
}

// Rates holds the derived scan throughput at a point in time.
type Rates struct {
	// TotalBytes scanned since tracking started (or the last Reset).
	TotalBytes int64

	// Rolling averages in bytes per second.
	Avg1s  float64
	Avg10s float64
	Avg60s float64

	// Overall average since tracking started.
	AvgOverall float64
}

// ScanTracker tracks cumulative bytes scanned and computes rolling averages.
type ScanTracker struct {
	total atomic.Int64

	mu       sync.RWMutex
	samples  []sample
	writeIdx int
	start    time.Time

	clock Clock
}

// NewScanTracker returns a tracker using the real clock.
func NewScanTracker() *ScanTracker {
	return NewScanTrackerWithClock(realClock{})
}

// NewScanTrackerWithClock returns a tracker with an injected clock.
func NewScanTrackerWithClock(clock Clock) *ScanTracker {
	now := clock.Now()
	t := &ScanTracker{
		samples: make([]sample, 0, ringSize),
		start:   now,
		clock:   clock,
	}
	t.samples = append(t.samples, sample{at: now})
	return t
}

// AddBytes adds to the cumulative total. Lock-free; called from the
// indexer's buffer-fill loop.
func (t *ScanTracker) AddBytes(n int64) {
	if n > 0 {
		t.total.Add(n)
	}
}

// RecordSample snapshots the cumulative count. Call periodically (about
// once per second) from the sampling loop.
func (t *ScanTracker) RecordSample() {
	now := t.clock.Now()
	cur := t.total.Load()

	t.mu.Lock()
	defer t.mu.Unlock()

	s := sample{at: now, bytes: cur}
	if len(t.samples) < ringSize {
		t.samples = append(t.samples, s)
		return
	}
	t.samples[t.writeIdx] = s
	t.writeIdx = (t.writeIdx + 1) % ringSize
}

// Rates computes the current throughput figures. Always returns usable
// numbers from whatever history exists.
func (t *ScanTracker) Rates() Rates {
	now := t.clock.Now()
	cur := t.total.Load()

	t.mu.RLock()
	defer t.mu.RUnlock()

	r := Rates{TotalBytes: cur}
	if elapsed := now.Sub(t.start).Seconds(); elapsed > 0 {
		r.AvgOverall = float64(cur) / elapsed
	}
	r.Avg1s = t.avgOver(now, cur, window1s)
	r.Avg10s = t.avgOver(now, cur, window10s)
	r.Avg60s = t.avgOver(now, cur, window60s)
	return r
}

// avgOver computes bytes/sec against the sample closest to (but not after)
// now-window. Must be called with mu held.
func (t *ScanTracker) avgOver(now time.Time, cur int64, window time.Duration) float64 {
	if len(t.samples) == 0 {
		return 0
	}
	target := now.Add(-window)

	var best *sample
	var bestDiff time.Duration = -1
	for i := range t.samples {
		s := &t.samples[i]
		if s.at.After(target) {
			continue
		}
		diff := target.Sub(s.at)
		if bestDiff < 0 || diff < bestDiff {
			best = s
			bestDiff = diff
		}
	}
	if best == nil {
		best = t.oldest()
	}
	if best == nil {
		return 0
	}

	elapsed := now.Sub(best.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(cur-best.bytes) / elapsed
}

// oldest returns the oldest retained sample. Must be called with mu held.
func (t *ScanTracker) oldest() *sample {
	if len(t.samples) == 0 {
		return nil
	}
	if len(t.samples) < ringSize {
		return &t.samples[0]
	}
	return &t.samples[t.writeIdx]
}

// Reset clears history and restarts tracking. Used on file reload.
func (t *ScanTracker) Reset() {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.total.Store(0)
	t.samples = t.samples[:0]
	t.samples = append(t.samples, sample{at: now})
	t.writeIdx = 0
	t.start = now
}

// SampleCount returns the number of retained samples (for tests).
func (t *ScanTracker) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}
