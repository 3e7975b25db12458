package main

import (
	"encoding/binary"
	"hash/crc32"
	"math/bits"
	"math/rand"
	"testing"
	"time"
)

// Standalone copies of the row-hash candidates for the source sketches. The
// keys there are 4-byte IPv4 addresses, so what matters is per-key cost on
// tiny inputs, not bulk throughput.

//////////////////////
// 1. MurmurHash3 (32-bit)
//////////////////////

const (
	c1_32 uint32 = 0xcc9e2d51
	c2_32 uint32 = 0x1b873593
)

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

// murmurUint32 is MurmurHash3 of the little-endian encoding of key, with the
// single 4-byte block inlined.
func murmurUint32(key, seed uint32) uint32 {
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

//////////////////////
// 2. xxHash32
//////////////////////

const (
	prime1 uint32 = 2654435761
	prime2 uint32 = 2246822519
	prime3 uint32 = 3266489917
	prime4 uint32 = 668265263
	prime5 uint32 = 374761393
)

func xxHash32(data []byte, seed uint32) uint32 {
	n := len(data)
	h := seed + prime5 + uint32(n)

	i := 0
	for n >= 4 {
		k := binary.LittleEndian.Uint32(data[i:])
		k *= prime3
		k = (k << 17) | (k >> 15)
		k *= prime4

		h ^= k
		h = (h << 17) | (h >> 15)
		h = h*prime1 + prime4

		i += 4
		n -= 4
	}

	for n > 0 {
		h ^= uint32(data[i]) * prime5
		h = (h << 11) | (h >> 21)
		h *= prime1
		i++
		n--
	}

	h ^= h >> 15
	h *= prime2
	h ^= h >> 13
	h *= prime3
	h ^= h >> 16

	return h
}

// xxUint32 is xxHash32 of the little-endian encoding of key, with the single
// 4-byte block inlined.
func xxUint32(key, seed uint32) uint32 {
	h := seed + prime5 + 4

	k := key
	k *= prime3
	k = (k << 17) | (k >> 15)
	k *= prime4

	h ^= k
	h = (h << 17) | (h >> 15)
	h = h*prime1 + prime4

	h ^= h >> 15
	h *= prime2
	h ^= h >> 13
	h *= prime3
	h ^= h >> 16

	return h
}

//////////////////////
// 3. FNV-1a (32-bit)
//////////////////////

func fnvUint32(key uint32) uint32 {
	h := uint32(2166136261)
	for i := 0; i < 4; i++ {
		h ^= key & 0xff
		h *= 16777619
		key >>= 8
	}
	return h
}

//////////////////////
// Benchmark
//////////////////////

var (
	keys       [4096]uint32
	castagnoli = crc32.MakeTable(crc32.Castagnoli)
)

func init() {
	rand.Seed(time.Now().UnixNano())
	for i := range keys {
		keys[i] = rand.Uint32()
	}
}

func TestUint32VariantsMatchBytes(t *testing.T) {
	var buf [4]byte
	for i := 0; i < 1000; i++ {
		key := rand.Uint32()
		seed := rand.Uint32()
		binary.LittleEndian.PutUint32(buf[:], key)
		if got, want := murmurUint32(key, seed), MurmurHash3(buf[:], seed); got != want {
			t.Fatalf("murmurUint32(%#x, %#x) = %#x, but MurmurHash3 gives %#x", key, seed, got, want)
		}
		if got, want := xxUint32(key, seed), xxHash32(buf[:], seed); got != want {
			t.Fatalf("xxUint32(%#x, %#x) = %#x, but xxHash32 gives %#x", key, seed, got, want)
		}
	}
}

func BenchmarkMurmurHash3Key(b *testing.B) {
	var buf [4]byte
	for i := 0; i < b.N; i++ {
		binary.LittleEndian.PutUint32(buf[:], keys[i%len(keys)])
		_ = MurmurHash3(buf[:], 0xdeadbeef)
	}
}

func BenchmarkMurmurUint32Key(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = murmurUint32(keys[i%len(keys)], 0xdeadbeef)
	}
}

func BenchmarkXXHash32Key(b *testing.B) {
	var buf [4]byte
	for i := 0; i < b.N; i++ {
		binary.LittleEndian.PutUint32(buf[:], keys[i%len(keys)])
		_ = xxHash32(buf[:], 0xdeadbeef)
	}
}

func BenchmarkXXUint32Key(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = xxUint32(keys[i%len(keys)], 0xdeadbeef)
	}
}

func BenchmarkFNVUint32Key(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = fnvUint32(keys[i%len(keys)])
	}
}

func BenchmarkCRC32CKey(b *testing.B) {
	var buf [4]byte
	for i := 0; i < b.N; i++ {
		binary.LittleEndian.PutUint32(buf[:], keys[i%len(keys)])
		_ = crc32.Checksum(buf[:], castagnoli)
	}
}
