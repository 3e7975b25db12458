package sketch

import (
	"math/rand"
	"testing"
)

func TestCountMinNeverUnderestimates(t *testing.T) {
	cm := NewCountMin(2048, 4)
	rng := rand.New(rand.NewSource(42))

	// 1. Feed a skewed stream of 200 keys and track exact counts.
	exact := make(map[uint32]uint32)
	for i := 0; i < 100000; i++ {
		key := uint32(rng.Intn(200))
		w := uint32(rng.Intn(4) + 1)
		cm.UpdateUint32(key, w)
		exact[key] += w
	}

	// 2. Every estimate must be at least the true count.
	for key, want := range exact {
		got := cm.QueryUint32(key)
		if got < want {
			t.Errorf("Query(%d) = %d underestimates true count %d", key, got, want)
		}
	}
}

func TestCountMinEmptyAndZero(t *testing.T) {
	cm := NewCountMin(0, 0)
	if got := cm.QueryUint32(12345); got != 0 {
		t.Errorf("Expected 0 from an empty sketch, but got %d", got)
	}

	cm.UpdateUint32(7, 0)
	if got := cm.QueryUint32(7); got != 0 {
		t.Errorf("Update with count 0 must be a no-op, but Query returned %d", got)
	}

	cm.Update([]byte("10.10.2.5"), 3)
	if got := cm.Query([]byte("10.10.2.5")); got < 3 {
		t.Errorf("Expected at least 3, but got %d", got)
	}
}

func TestCountMinMergeEqualsCombinedStream(t *testing.T) {
	// The classic sketch is linear: cell-wise merge of two halves must equal
	// the sketch built from the full stream.
	a := NewCountMin(1024, 4)
	b := NewCountMin(1024, 4)
	full := NewCountMin(1024, 4)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50000; i++ {
		key := uint32(rng.Intn(500))
		if i%2 == 0 {
			a.UpdateUint32(key, 1)
		} else {
			b.UpdateUint32(key, 1)
		}
		full.UpdateUint32(key, 1)
	}

	if err := a.Merge(b); err != nil {
		t.Fatalf("Failed to merge sketches: %v", err)
	}

	for key := uint32(0); key < 500; key++ {
		if got, want := a.QueryUint32(key), full.QueryUint32(key); got != want {
			t.Errorf("Merged Query(%d) = %d, full-stream sketch has %d", key, got, want)
		}
	}
}

func TestCountMinMergeDimensionMismatch(t *testing.T) {
	a := NewCountMin(1024, 4)
	b := NewCountMin(2048, 4)
	if err := a.Merge(b); err == nil {
		t.Fatal("Expected an error merging sketches of different widths, but got nil")
	}
}

func TestCountMinReset(t *testing.T) {
	cm := NewCountMin(256, 3)
	for i := uint32(0); i < 1000; i++ {
		cm.UpdateUint32(i, 2)
	}
	cm.Reset()
	for i := uint32(0); i < 1000; i++ {
		if got := cm.QueryUint32(i); got != 0 {
			t.Fatalf("Expected 0 after Reset, but Query(%d) = %d", i, got)
		}
	}

	// Row seeds are fixed, so a reset sketch must behave exactly like a
	// fresh one.
	fresh := NewCountMin(256, 3)
	cm.UpdateUint32(42, 5)
	fresh.UpdateUint32(42, 5)
	if got, want := cm.QueryUint32(42), fresh.QueryUint32(42); got != want {
		t.Errorf("Reset sketch Query = %d, fresh sketch has %d", got, want)
	}
}

func BenchmarkCountMinUpdate(b *testing.B) {
	cm := NewCountMin(2048, 4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cm.UpdateUint32(uint32(i), 1)
	}
}
