package rle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	buf, err := Decode([]int{3, 2, 5}, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 0, 1, 1, 0, 0, 0, 0, 0}, buf)

	buf, err = Decode([]int{0, 4}, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1, 1, 1}, buf)

	// zero-length runs in the middle keep the parity
	buf, err = Decode([]int{1, 0, 2, 1}, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 0, 1}, buf)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]int{3, 2, 6}, 10)
	assert.ErrorIs(t, err, ErrRunOverflow)

	_, err = Decode([]int{3, 2}, 10)
	assert.ErrorIs(t, err, ErrRunUnderflow)

	_, err = Decode([]int{3, -1, 8}, 10)
	assert.ErrorIs(t, err, ErrNegativeRun)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		size := rng.Intn(200)
		buf := make([]uint8, size)
		for i := range buf {
			if rng.Intn(3) == 0 {
				buf[i] = 1
			}
		}
		runs := Encode(buf)
		got, err := Decode(runs, size)
		require.NoError(t, err)
		assert.Equal(t, buf, got)
	}
}

func TestEncodeStartsWithBackground(t *testing.T) {
	assert.Equal(t, []int{0, 2, 1}, Encode([]uint8{1, 1, 0}))
	assert.Equal(t, []int{0}, Encode(nil))
	assert.Equal(t, 2, Count([]int{0, 2, 1}))
}

func TestCounts(t *testing.T) {
	got, err := DecodeCounts("04")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, got)

	counts := []int{5, 12, 3, 40, 1, 1, 900, 2}
	s := EncodeCounts(counts)
	got, err = DecodeCounts(s)
	require.NoError(t, err)
	assert.Equal(t, counts, got)

	_, err = DecodeCounts("0\x01")
	assert.ErrorIs(t, err, ErrBadCounts)
}

func TestTranspose(t *testing.T) {
	// 2 rows x 3 columns:
	//   1 0 0
	//   1 1 0
	rowMajor, err := Transpose([]int{0, 2, 1, 1, 2}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 2, 1}, rowMajor)
}
