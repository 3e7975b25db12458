package sketch

import "math/bits"

const (
	c1_32 uint32 = 0xcc9e2d51
	c2_32 uint32 = 0x1b873593
)

// Fixed per-row seeds. Worker sketches are merged by the coordinator, so all
// instances must agree on the row hash functions; seeds are a shared table
// rather than drawn at construction.
var rowSeeds = [8]uint32{
	0xdeadbeef, 0xc0ffee00, 0xbaadf00d, 0xfeedface,
	0xcafebabe, 0x12345678, 0x9abcdef0, 0x11223344,
}

// MurmurHash3 computes the 32-bit MurmurHash3 of data with the given seed.
func MurmurHash3(data []byte, seed uint32) (h1 uint32) {
	h1 = seed
	clen := uint32(len(data))
	for len(data) >= 4 {
		k1 := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
		data = data[4:]

		k1 *= c1_32
		k1 = bits.RotateLeft32(k1, 15)
		k1 *= c2_32

		h1 ^= k1
		h1 = bits.RotateLeft32(h1, 13)
		h1 = h1*5 + 0xe6546b64
	}
	var k1 uint32
	switch len(data) {
	case 3:
		k1 ^= uint32(data[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(data[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(data[0])
		k1 *= c1_32
		k1 = bits.RotateLeft32(k1, 15)
		k1 *= c2_32
		h1 ^= k1
	}

	h1 ^= uint32(clen)

	h1 ^= h1 >> 16
	h1 *= 0x85ebca6b
	h1 ^= h1 >> 13
	h1 *= 0xc2b2ae35
	h1 ^= h1 >> 16
	return h1
}

// hashUint32 is MurmurHash3 of the little-endian encoding of key, specialized
// for the 4-byte case so the hot path does not allocate.
func hashUint32(key, seed uint32) uint32 {
	k1 := key
	k1 *= c1_32
	k1 = bits.RotateLeft32(k1, 15)
	k1 *= c2_32

	h1 := seed ^ k1
	h1 = bits.RotateLeft32(h1, 13)
	h1 = h1*5 + 0xe6546b64

	h1 ^= 4

	h1 ^= h1 >> 16
	h1 *= 0x85ebca6b
	h1 ^= h1 >> 13
	h1 *= 0xc2b2ae35
	h1 ^= h1 >> 16
	return h1
}
