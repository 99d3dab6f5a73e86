package util

import "hash/fnv"

// Seed derives a stable 32-bit seed from a resource reference.
// The empty key yields 0, which callers treat as "no seed".
func Seed(key string) uint32 {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	s := h.Sum32()
	if s == 0 {
		s = 1
	}
	return s
}

// Noise returns a reproducible value in [0, 1) for (seed, i).
// It is a murmur3 finaliser over the mixed inputs, so it does not depend on
// any platform random source.
func Noise(seed uint32, i int) float64 {
	x := seed ^ (uint32(i) * 0x9e3779b9)
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16
	return float64(x) / 4294967296.0
}
