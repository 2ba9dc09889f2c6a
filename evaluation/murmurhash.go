package evaluation

import "github.com/twmb/murmur3"

// All official client SDKs bucket with murmur3 x86 32-bit and seed 0 so
// that a given key lands in the same bucket in every language.
const hashSeed uint32 = 0

const (
	maxHashValue = float64(1) * (1 << 32)
	normalizer   = 100
)

func murmurhashV3(data string, seed uint32) uint32 {
	return murmur3.SeedStringSum32(seed, data)
}

// GetNormalizedValue maps an arbitrary key to an integer in [0,100).
func GetNormalizedValue(key string) int {
	return int(float64(murmurhashV3(key, hashSeed)) / maxHashValue * normalizer)
}
