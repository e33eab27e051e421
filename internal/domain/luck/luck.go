// Package luck derives reproducible pseudo-random values from string keys.
//
// It is the only source of randomness in the world engine: spawn decisions and
// cache contents are a pure function of cell coordinates, so they can be
// recomputed identically after a restart without being stored.
package luck

import (
	"math/bits"

	"github.com/spaolacci/murmur3"
)

// Granularity is the number of distinct values Luck can return.
const Granularity = 1 << 30

// Luck maps key to a value in [0,1). The same key always yields the same value.
func Luck(key string) float64 {
	return float64(Digest(key)%Granularity) / Granularity
}

// Digest is the 32-bit murmur3 hash of key with its bytes read big-endian.
func Digest(key string) uint32 {
	return bits.ReverseBytes32(murmur3.Sum32([]byte(key)))
}
