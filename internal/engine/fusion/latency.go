package fusion

import (
	"time"

	"FloodSentry/internal/model"
)

// LatencyTracker folds detection latency samples into running min/max/mean
// and a fixed histogram. The first sample is the time from the first attack
// packet to the first alert; every later sample is the gap between
// consecutive alerts.
type LatencyTracker struct {
	count   uint64
	min     time.Duration
	max     time.Duration
	sum     time.Duration
	buckets [5]uint64
}

// Histogram slots are half-open intervals; exactly 20ms lands in 20-30ms.
func bucketFor(d time.Duration) int {
	switch {
	case d < 20*time.Millisecond:
		return 0
	case d < 30*time.Millisecond:
		return 1
	case d < 40*time.Millisecond:
		return 2
	case d < 50*time.Millisecond:
		return 3
	default:
		return 4
	}
}

// Observe folds one sample in.
func (t *LatencyTracker) Observe(d time.Duration) {
	if d < 0 {
		d = 0
	}
	if t.count == 0 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
	t.sum += d
	t.count++
	t.buckets[bucketFor(d)]++
}

// Stats returns the aggregate view.
func (t *LatencyTracker) Stats() model.LatencyStats {
	s := model.LatencyStats{
		Count:   t.count,
		Min:     t.min,
		Max:     t.max,
		Buckets: t.buckets,
	}
	if t.count > 0 {
		s.Mean = t.sum / time.Duration(t.count)
	}
	return s
}

// Reset clears all samples.
func (t *LatencyTracker) Reset() {
	*t = LatencyTracker{}
}
