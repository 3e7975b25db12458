package sketch

import (
	"math"
	"math/bits"
)

const (
	hllPrecision = 14
	hllM         = 1 << hllPrecision
	hllMaxRank   = 32 - hllPrecision + 1
)

// HyperLogLog estimates the number of distinct keys observed. Precision is
// fixed at 14 (16384 registers), a standard error of about 0.8%. All
// instances share the same hash, so register-wise max merges estimate the
// union of the inputs.
type HyperLogLog struct {
	reg []uint8
}

// NewHyperLogLog creates an empty estimator.
func NewHyperLogLog() *HyperLogLog {
	return &HyperLogLog{reg: make([]uint8, hllM)}
}

// Add observes a key.
func (h *HyperLogLog) Add(key []byte) {
	h.addHash(MurmurHash3(key, rowSeeds[0]))
}

// AddUint32 observes a uint32 key.
func (h *HyperLogLog) AddUint32(key uint32) {
	h.addHash(hashUint32(key, rowSeeds[0]))
}

func (h *HyperLogLog) addHash(x uint32) {
	idx := x >> (32 - hllPrecision)
	rank := uint8(bits.LeadingZeros32(x<<hllPrecision)) + 1
	if rank > hllMaxRank {
		rank = hllMaxRank
	}
	if rank > h.reg[idx] {
		h.reg[idx] = rank
	}
}

// Estimate returns the cardinality estimate, with linear counting in the
// small range.
func (h *HyperLogLog) Estimate() float64 {
	m := float64(hllM)
	alpha := 0.7213 / (1 + 1.079/m)

	sum := 0.0
	zeros := 0
	for _, r := range h.reg {
		sum += 1.0 / float64(uint64(1)<<r)
		if r == 0 {
			zeros++
		}
	}

	est := alpha * m * m / sum
	if est <= 2.5*m && zeros > 0 {
		est = m * math.Log(m/float64(zeros))
	}
	return est
}

// Merge takes the register-wise max of other into h.
func (h *HyperLogLog) Merge(other *HyperLogLog) {
	for i, r := range other.reg {
		if r > h.reg[i] {
			h.reg[i] = r
		}
	}
}

// Reset zeroes all registers.
func (h *HyperLogLog) Reset() {
	clear(h.reg)
}
