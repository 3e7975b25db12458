package sketch

import (
	"fmt"
	"slices"
)

// Sources are folded to 16 bits for the exact per-source table.
const sourceTableSize = 1 << 16

// FoldIP folds an IPv4 address to its per-source table index.
func FoldIP(ip uint32) uint16 {
	return uint16((ip >> 16) ^ (ip & 0xFFFF))
}

// HeavySource is one qualifying entry of the per-source table.
type HeavySource struct {
	Index    uint16 // folded table index
	Source   uint32 // representative address, the last one seen in the bucket
	Count    uint64 // exact table count
	Estimate uint32 // sketch estimate for the representative address
}

// OctoSketch tracks attack sources. It combines a count-min grid updated
// conservatively (only cells below the new estimate are raised), an exact
// per-source packet table keyed by the 16-bit address fold, and running
// packet/byte totals. A worker owns its instance exclusively; the coordinator
// merges all worker instances into a fresh one when collecting a window.
type OctoSketch struct {
	w, d   uint32
	seed   []uint32
	table  [][]uint32
	counts []uint64
	reps   []uint32
	pkts   uint64
	bytes  uint64
}

// NewOctoSketch creates a sketch with the given grid dimensions. Zero selects
// the default for either dimension.
func NewOctoSketch(width, depth uint32) *OctoSketch {
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

	return &OctoSketch{
		w:      width,
		d:      depth,
		seed:   seed,
		table:  table,
		counts: make([]uint64, sourceTableSize),
		reps:   make([]uint32, sourceTableSize),
	}
}

// Update records one packet of size bytes from src.
func (o *OctoSketch) Update(src uint32, size uint32) {
	o.UpdateWeighted(src, 1, size)
}

// UpdateWeighted records pkts packets totalling size bytes from src. Sampled
// callers pass the sample weight here so estimates stay unbiased.
func (o *OctoSketch) UpdateWeighted(src uint32, pkts, size uint32) {
	if pkts == 0 {
		return
	}
	target := o.Estimate(src) + pkts
	for i := 0; i < int(o.d); i++ {
		index := hashUint32(src, o.seed[i]) % o.w
		if o.table[i][index] < target {
			o.table[i][index] = target
		}
	}
	fold := FoldIP(src)
	o.counts[fold] += uint64(pkts)
	o.reps[fold] = src
	o.pkts += uint64(pkts)
	o.bytes += uint64(size)
}

// Estimate returns the estimated packet count from src. Conservative updates
// keep the no-underestimate property for point queries.
func (o *OctoSketch) Estimate(src uint32) uint32 {
	est := uint32(0)
	for i := 0; i < int(o.d); i++ {
		index := hashUint32(src, o.seed[i]) % o.w
		if c := o.table[i][index]; i == 0 || c < est {
			est = c
		}
	}
	return est
}

// Totals returns the packet and byte totals recorded since the last reset.
func (o *OctoSketch) Totals() (pkts, size uint64) {
	return o.pkts, o.bytes
}

// Merge adds every cell, per-source count, and total of other into o.
func (o *OctoSketch) Merge(other *OctoSketch) error {
	if o.w != other.w || o.d != other.d {
		return fmt.Errorf("octosketch merge: dimension mismatch %dx%d vs %dx%d", o.d, o.w, other.d, other.w)
	}
	for i := range o.table {
		for j := range o.table[i] {
			o.table[i][j] += other.table[i][j]
		}
	}
	for i, c := range other.counts {
		if c > 0 {
			o.counts[i] += c
			o.reps[i] = other.reps[i]
		}
	}
	o.pkts += other.pkts
	o.bytes += other.bytes
	return nil
}

// HeavyCount returns the number of sources whose table count reaches
// threshold.
func (o *OctoSketch) HeavyCount(threshold uint64) int {
	n := 0
	for _, c := range o.counts {
		if c >= threshold {
			n++
		}
	}
	return n
}

// TopK returns up to k sources whose table count reaches threshold, ordered
// by count descending.
func (o *OctoSketch) TopK(k int, threshold uint64) []HeavySource {
	hh := make([]HeavySource, 0)
	for i, c := range o.counts {
		if c >= threshold {
			rep := o.reps[i]
			hh = append(hh, HeavySource{
				Index:    uint16(i),
				Source:   rep,
				Count:    c,
				Estimate: o.Estimate(rep),
			})
		}
	}
	// Sort by count in descending order, index ascending for stability.
	slices.SortFunc(hh, func(a, b HeavySource) int {
		if a.Count != b.Count {
			if b.Count > a.Count {
				return 1
			}
			return -1
		}
		return int(a.Index) - int(b.Index)
	})
	if k > 0 && len(hh) > k {
		hh = hh[:k]
	}
	return hh
}

// Reset zeroes the grid, the per-source table, and the totals.
func (o *OctoSketch) Reset() {
	for i := range o.table {
		clear(o.table[i])
	}
	clear(o.counts)
	clear(o.reps)
	o.pkts = 0
	o.bytes = 0
}
