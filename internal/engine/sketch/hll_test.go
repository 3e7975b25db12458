package sketch

import (
	"fmt"
	"math"
	"testing"
)

func TestHyperLogLogSmallCounts(t *testing.T) {
	h := NewHyperLogLog()
	if got := h.Estimate(); got != 0 {
		t.Errorf("Expected 0 from an empty estimator, but got %f", got)
	}

	h.AddUint32(0x0a0a0201)
	if got := h.Estimate(); got < 0.5 || got > 1.5 {
		t.Errorf("Expected an estimate near 1 for a single key, but got %f", got)
	}

	// Duplicates must not move the estimate.
	for i := 0; i < 1000; i++ {
		h.AddUint32(0x0a0a0201)
	}
	if got := h.Estimate(); got < 0.5 || got > 1.5 {
		t.Errorf("Expected an estimate near 1 after duplicates, but got %f", got)
	}
}

func TestHyperLogLogAccuracy(t *testing.T) {
	cases := []uint32{10000, 50000, 200000, 1000000}
	for _, n := range cases {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			h := NewHyperLogLog()
			for i := uint32(0); i < n; i++ {
				h.AddUint32(i)
			}
			got := h.Estimate()
			relErr := math.Abs(got-float64(n)) / float64(n)
			if relErr > 0.03 {
				t.Errorf("Estimate %f for %d distinct keys is off by %.2f%%, expected within 3%%", got, n, relErr*100)
			}
		})
	}

	// Duplicates must never move the estimate.
	h := NewHyperLogLog()
	for i := uint32(0); i < 10000; i++ {
		h.AddUint32(i)
	}
	before := h.Estimate()
	for i := uint32(0); i < 10000; i++ {
		h.AddUint32(i)
	}
	if after := h.Estimate(); after != before {
		t.Errorf("Re-inserting the same keys changed the estimate: %f -> %f", before, after)
	}
}

func TestHyperLogLogMergeEqualsUnion(t *testing.T) {
	// Registers are deterministic per key, so a merge must reproduce the
	// estimator of the union exactly.
	a := NewHyperLogLog()
	b := NewHyperLogLog()
	union := NewHyperLogLog()

	for i := uint32(0); i < 30000; i++ {
		a.AddUint32(i)
		union.AddUint32(i)
	}
	for i := uint32(20000); i < 60000; i++ {
		b.AddUint32(i)
		union.AddUint32(i)
	}

	a.Merge(b)
	if got, want := a.Estimate(), union.Estimate(); got != want {
		t.Errorf("Merged estimate %f differs from union estimate %f", got, want)
	}
}

func TestHyperLogLogStringKeys(t *testing.T) {
	h := NewHyperLogLog()
	for i := 0; i < 20000; i++ {
		h.Add([]byte(fmt.Sprintf("src-%d", i)))
	}
	got := h.Estimate()
	relErr := math.Abs(got-20000) / 20000
	if relErr > 0.03 {
		t.Errorf("Estimate %f for 20000 string keys is off by %.2f%%", got, relErr*100)
	}
}

func TestHyperLogLogReset(t *testing.T) {
	h := NewHyperLogLog()
	for i := uint32(0); i < 50000; i++ {
		h.AddUint32(i)
	}
	h.Reset()
	if got := h.Estimate(); got != 0 {
		t.Errorf("Expected 0 after Reset, but got %f", got)
	}
}

func BenchmarkHyperLogLogAdd(b *testing.B) {
	h := NewHyperLogLog()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.AddUint32(uint32(i))
	}
}
