package evaluation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMurmurhashV3(t *testing.T) {
	input := "test"
	hash := murmurhashV3(input, hashSeed)
	require.Equal(t, uint32(0xba6bd213), hash)
}

func TestGetNormalizedValue(t *testing.T) {
	// murmur3_32("test", 0) = 3127628307; 3127628307/2^32*100 = 72.8...
	require.Equal(t, 72, GetNormalizedValue("test"))
	// murmur3_32("", 0) = 0
	require.Equal(t, 0, GetNormalizedValue(""))
}

func TestGetNormalizedValueRange(t *testing.T) {
	keys := []string{"entity-1:flag-a", "entity-2:flag-a", "entity-1:flag-b", "a", "abcdefgh", "漢字"}
	for _, key := range keys {
		bucket := GetNormalizedValue(key)
		require.GreaterOrEqual(t, bucket, 0)
		require.Less(t, bucket, 100)
		require.Equal(t, bucket, GetNormalizedValue(key), "bucketing must be deterministic")
	}
}
