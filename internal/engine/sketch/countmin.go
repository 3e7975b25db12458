package sketch

import (
	"fmt"
)

const (
	defaultWidth = 2048
	defaultDepth = 4
)

// CountMin is a classic count-min sketch: d rows of w counters, every update
// touches one counter per row, point queries take the row minimum. Estimates
// never underestimate the true count.
type CountMin struct {
	w, d  uint32
	seed  []uint32
	table [][]uint32
}

// NewCountMin creates a sketch with the given dimensions. Zero selects the
// default for either dimension. Depth is capped by the shared seed table.
func NewCountMin(width, depth uint32) *CountMin {
	if width == 0 {
		width = defaultWidth
	}
	if depth == 0 {
		depth = defaultDepth
	}
	if depth > uint32(len(rowSeeds)) {
		depth = uint32(len(rowSeeds))
	}

	seed := make([]uint32, depth)
	for i := range seed {
		seed[i] = rowSeeds[i]
	}

	table := make([][]uint32, depth)
	for i := range table {
		table[i] = make([]uint32, width)
	}

	return &CountMin{
		w:     width,
		d:     depth,
		seed:  seed,
		table: table,
	}
}

// Update adds count occurrences of key.
func (t *CountMin) Update(key []byte, count uint32) {
	if count == 0 {
		return
	}
	for i := 0; i < int(t.d); i++ {
		index := MurmurHash3(key, t.seed[i]) % t.w
		t.table[i][index] += count
	}
}

// UpdateUint32 adds count occurrences of a uint32 key.
func (t *CountMin) UpdateUint32(key uint32, count uint32) {
	if count == 0 {
		return
	}
	for i := 0; i < int(t.d); i++ {
		index := hashUint32(key, t.seed[i]) % t.w
		t.table[i][index] += count
	}
}

// Query returns the estimated count of key.
func (t *CountMin) Query(key []byte) uint32 {
	est := uint32(0)
	for i := 0; i < int(t.d); i++ {
		index := MurmurHash3(key, t.seed[i]) % t.w
		if c := t.table[i][index]; i == 0 || c < est {
			est = c
		}
	}
	return est
}

// QueryUint32 returns the estimated count of a uint32 key.
func (t *CountMin) QueryUint32(key uint32) uint32 {
	est := uint32(0)
	for i := 0; i < int(t.d); i++ {
		index := hashUint32(key, t.seed[i]) % t.w
		if c := t.table[i][index]; i == 0 || c < est {
			est = c
		}
	}
	return est
}

// Merge adds every cell of other into t. Both sketches must share dimensions,
// which holds for any two built with the same config since row seeds are
// fixed.
func (t *CountMin) Merge(other *CountMin) error {
	if t.w != other.w || t.d != other.d {
		return fmt.Errorf("countmin merge: dimension mismatch %dx%d vs %dx%d", t.d, t.w, other.d, other.w)
	}
	for i := range t.table {
		for j := range t.table[i] {
			t.table[i][j] += other.table[i][j]
		}
	}
	return nil
}

// Reset zeroes all counters.
func (t *CountMin) Reset() {
	for i := range t.table {
		clear(t.table[i])
	}
}
