package sketch

import (
	"encoding/binary"
	"math/rand"
	"testing"
)

func TestHashUint32MatchesByteHash(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	buf := make([]byte, 4)
	for i := 0; i < 10000; i++ {
		key := rng.Uint32()
		binary.LittleEndian.PutUint32(buf, key)
		for _, seed := range rowSeeds {
			want := MurmurHash3(buf, seed)
			got := hashUint32(key, seed)
			if got != want {
				t.Fatalf("hashUint32(%#x, %#x) = %#x, want %#x", key, seed, got, want)
			}
		}
	}
}

func TestHashDistribution(t *testing.T) {
	// Sequential keys should spread roughly evenly over a small bucket space.
	const buckets = 64
	const n = 64000
	counts := make([]int, buckets)
	for i := uint32(0); i < n; i++ {
		counts[hashUint32(i, rowSeeds[0])%buckets]++
	}
	mean := n / buckets
	for b, c := range counts {
		if c < mean/2 || c > mean*2 {
			t.Errorf("bucket %d has %d entries, expected around %d", b, c, mean)
		}
	}
}

func BenchmarkHashUint32(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		key := rand.Uint32()
		for pb.Next() {
			key = hashUint32(key, rowSeeds[0])
		}
	})
}
