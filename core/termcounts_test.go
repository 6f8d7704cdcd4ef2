package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTermCounts(t *testing.T) {
	counts := map[string]uint64{
		"zebra": 1,
		"apple": 3,
		"mango": 2,
		"größe": 5,
	}

	tc, err := BuildTermCounts(counts)
	require.NoError(t, err)

	assert.Equal(t, 4, tc.Len())
	assert.Equal(t, uint64(3), tc.Get("apple"))
	assert.Equal(t, uint64(5), tc.Get("größe"))
	assert.Equal(t, uint64(0), tc.Get("banana"))
	assert.True(t, tc.Contains("zebra"))
	assert.False(t, tc.Contains("zeb"))
}

func TestTermCounts_EachIsOrdered(t *testing.T) {
	tc, err := BuildTermCounts(map[string]uint64{"b": 1, "c": 2, "a": 3})
	require.NoError(t, err)

	var terms []string
	err = tc.Each(func(term string, _ uint64) bool {
		terms = append(terms, term)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, terms)
}

func TestTermCounts_EachStopsEarly(t *testing.T) {
	tc, err := BuildTermCounts(map[string]uint64{"b": 1, "c": 2, "a": 3})
	require.NoError(t, err)

	visited := 0
	err = tc.Each(func(string, uint64) bool {
		visited++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, visited)
}

func TestTermCounts_RoundTrip(t *testing.T) {
	counts := map[string]uint64{"alpha": 1, "beta": 22, "gamma": 333}
	tc, err := BuildTermCounts(counts)
	require.NoError(t, err)

	loaded, err := LoadTermCounts(append([]byte(nil), tc.Bytes()...))
	require.NoError(t, err)

	m, err := loaded.Map()
	require.NoError(t, err)
	assert.Equal(t, counts, m)
}

func TestTermCounts_Empty(t *testing.T) {
	tc, err := BuildTermCounts(nil)
	require.NoError(t, err)

	assert.Equal(t, 0, tc.Len())
	assert.Equal(t, uint64(0), tc.Get("anything"))

	m, err := tc.Map()
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestTermCounts_Nil(t *testing.T) {
	var tc *TermCounts
	assert.Equal(t, 0, tc.Len())
	assert.Equal(t, uint64(0), tc.Get("x"))
	assert.False(t, tc.Contains("x"))
	assert.Nil(t, tc.Bytes())
}

func TestLoadTermCounts_Corrupt(t *testing.T) {
	_, err := LoadTermCounts([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrCorruptTermCounts)
}

func TestLoadTermCounts_ByteFlipsNeverPanic(t *testing.T) {
	tc, err := BuildTermCounts(map[string]uint64{
		"alpha": 1, "beta": 2, "gamma": 3, "delta": 40, "epsilon": 500, "zeta": 6000,
	})
	require.NoError(t, err)
	original := tc.Bytes()

	for i := range original {
		for _, mask := range []byte{0x01, 0x80, 0xff} {
			damaged := append([]byte(nil), original...)
			damaged[i] ^= mask

			assert.NotPanics(t, func() {
				loaded, err := LoadTermCounts(damaged)
				if err != nil {
					assert.ErrorIs(t, err, ErrCorruptTermCounts)
					return
				}
				// a flip can land on bytes the transducer never reads
				_, err = loaded.Map()
				assert.NoError(t, err)
				loaded.Get("gamma")
				loaded.Contains("zeta")
			}, "byte %d mask %#x", i, mask)
		}
	}
}
