package sketch

import (
	"math/rand"
	"testing"
)

func TestOctoSketchEstimateNeverUnderestimates(t *testing.T) {
	o := NewOctoSketch(2048, 4)
	rng := rand.New(rand.NewSource(9))

	exact := make(map[uint32]uint32)
	for i := 0; i < 100000; i++ {
		// Sources drawn from a /24 so collisions in the grid are exercised.
		src := 0x0a0a0200 | uint32(rng.Intn(256))
		o.Update(src, 64)
		exact[src]++
	}

	for src, want := range exact {
		if got := o.Estimate(src); got < want {
			t.Errorf("Estimate(%#x) = %d underestimates true count %d", src, got, want)
		}
	}

	pkts, size := o.Totals()
	if pkts != 100000 {
		t.Errorf("Expected 100000 total packets, but got %d", pkts)
	}
	if size != 100000*64 {
		t.Errorf("Expected %d total bytes, but got %d", 100000*64, size)
	}
}

func TestOctoSketchWeightedUpdate(t *testing.T) {
	// A sampled caller recording every 32nd packet with weight 32 must land
	// on the same totals as an unsampled one.
	o := NewOctoSketch(2048, 4)
	src := uint32(0x0a0a0205)
	for i := 0; i < 100; i++ {
		o.UpdateWeighted(src, 32, 32*1500)
	}

	if got := o.Estimate(src); got < 3200 {
		t.Errorf("Estimate = %d, expected at least 3200", got)
	}
	pkts, size := o.Totals()
	if pkts != 3200 {
		t.Errorf("Expected 3200 total packets, but got %d", pkts)
	}
	if size != 3200*1500 {
		t.Errorf("Expected %d total bytes, but got %d", 3200*1500, size)
	}

	// Zero weight is a no-op.
	o.UpdateWeighted(src, 0, 999)
	if pkts2, _ := o.Totals(); pkts2 != pkts {
		t.Errorf("UpdateWeighted with 0 packets changed totals: %d -> %d", pkts, pkts2)
	}
}

func TestOctoSketchMerge(t *testing.T) {
	// 1. Two workers see disjoint source sets.
	a := NewOctoSketch(1024, 4)
	b := NewOctoSketch(1024, 4)
	for i := 0; i < 1000; i++ {
		a.Update(0x0a0a0201, 100)
		b.Update(0x0a0a0202, 200)
	}

	// 2. Merge into a fresh sketch the way the coordinator collects a window.
	merged := NewOctoSketch(1024, 4)
	if err := merged.Merge(a); err != nil {
		t.Fatalf("Failed to merge first sketch: %v", err)
	}
	if err := merged.Merge(b); err != nil {
		t.Fatalf("Failed to merge second sketch: %v", err)
	}

	// 3. Exact table counts and totals add up.
	if got := merged.counts[FoldIP(0x0a0a0201)]; got != 1000 {
		t.Errorf("Expected 1000 for first source, but got %d", got)
	}
	if got := merged.counts[FoldIP(0x0a0a0202)]; got != 1000 {
		t.Errorf("Expected 1000 for second source, but got %d", got)
	}
	pkts, size := merged.Totals()
	if pkts != 2000 {
		t.Errorf("Expected 2000 merged packets, but got %d", pkts)
	}
	if size != 1000*100+1000*200 {
		t.Errorf("Expected %d merged bytes, but got %d", 1000*100+1000*200, size)
	}

	// 4. Sketch estimates still cover the true counts.
	if got := merged.Estimate(0x0a0a0201); got < 1000 {
		t.Errorf("Merged Estimate = %d underestimates 1000", got)
	}

	// 5. Dimension mismatch is rejected.
	if err := merged.Merge(NewOctoSketch(2048, 4)); err == nil {
		t.Fatal("Expected an error merging sketches of different widths, but got nil")
	}
}

func TestOctoSketchTopK(t *testing.T) {
	o := NewOctoSketch(2048, 4)

	// Three heavy sources and a crowd of light ones.
	for i := 0; i < 5000; i++ {
		o.Update(0x0a0a0201, 60)
	}
	for i := 0; i < 3000; i++ {
		o.Update(0x0a0a0202, 60)
	}
	for i := 0; i < 1500; i++ {
		o.Update(0x0a0a0203, 60)
	}
	for s := uint32(0); s < 100; s++ {
		o.Update(0x0a0a0300|s, 60)
	}

	if got := o.HeavyCount(1000); got != 3 {
		t.Errorf("Expected 3 heavy sources, but got %d", got)
	}

	top := o.TopK(2, 1000)
	if len(top) != 2 {
		t.Fatalf("Expected 2 entries from TopK, but got %d", len(top))
	}
	if top[0].Count != 5000 || top[0].Source != 0x0a0a0201 {
		t.Errorf("Expected top source %#x with 5000 packets, but got %#x with %d", 0x0a0a0201, top[0].Source, top[0].Count)
	}
	if top[1].Count != 3000 {
		t.Errorf("Expected second source with 3000 packets, but got %d", top[1].Count)
	}
	if top[0].Estimate < 5000 {
		t.Errorf("Top source estimate %d underestimates 5000", top[0].Estimate)
	}
}

func TestOctoSketchReset(t *testing.T) {
	o := NewOctoSketch(512, 4)
	for i := 0; i < 2000; i++ {
		o.Update(0x0a0a0210, 80)
	}
	o.Reset()

	if got := o.Estimate(0x0a0a0210); got != 0 {
		t.Errorf("Expected 0 after Reset, but got %d", got)
	}
	if got := o.HeavyCount(1); got != 0 {
		t.Errorf("Expected no heavy sources after Reset, but got %d", got)
	}
	pkts, size := o.Totals()
	if pkts != 0 || size != 0 {
		t.Errorf("Expected zero totals after Reset, but got %d pkts %d bytes", pkts, size)
	}
}

func BenchmarkOctoSketchUpdate(b *testing.B) {
	o := NewOctoSketch(2048, 4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o.Update(0x0a0a0200|uint32(i&0xFF), 64)
	}
}
