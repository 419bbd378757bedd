package ooze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactSetGet(t *testing.T) {
	arr := NewBitCompactIntArray(100, 1000)

	for i := 0; i < arr.Size(); i++ {
		arr.Set(i, i*10)
	}
	for i := 0; i < arr.Size(); i++ {
		assert.Equal(t, i*10, arr.Get(i))
	}
}

// Cells narrower than a byte straddle byte boundaries; writing one cell
// must not disturb its neighbors.
func TestCompactNeighborsUntouched(t *testing.T) {
	arr := NewBitCompactIntArray(16, 6) // 3 bits per cell

	for i := 0; i < arr.Size(); i++ {
		arr.Set(i, i%7)
	}
	arr.Set(7, 5)

	for i := 0; i < arr.Size(); i++ {
		want := i % 7
		if i == 7 {
			want = 5
		}
		assert.Equal(t, want, arr.Get(i), "index %d", i)
	}
}

func TestCompactPanics(t *testing.T) {
	arr := NewBitCompactIntArray(8, 3)

	assert.Panics(t, func() { arr.Get(-1) })
	assert.Panics(t, func() { arr.Get(8) })
	assert.Panics(t, func() { arr.Set(0, -1) })
	assert.Panics(t, func() { arr.Set(0, 4) })
}

func TestCompactResizeUp(t *testing.T) {
	arr := NewBitCompactIntArray(8, 3)
	for i := 0; i < arr.Size(); i++ {
		arr.Set(i, 3)
	}

	require.NoError(t, arr.SetMaxValue(1023))
	assert.Equal(t, 1023, arr.MaxValue())
	for i := 0; i < arr.Size(); i++ {
		assert.Equal(t, 3, arr.Get(i))
	}

	// The wider range must actually be usable.
	arr.Set(0, 1023)
	assert.Equal(t, 1023, arr.Get(0))
}

func TestCompactResizeDownLosesData(t *testing.T) {
	arr := NewBitCompactIntArray(8, 3)
	for i := 0; i < arr.Size(); i++ {
		arr.Set(i, 3)
	}

	err := arr.SetMaxValue(1)
	assert.ErrorIs(t, err, ErrShrinkLosesData)

	// Failed shrink leaves the array untouched.
	assert.Equal(t, 3, arr.MaxValue())
	assert.Equal(t, 3, arr.Get(5))
}

func TestCompactResizeDown(t *testing.T) {
	arr := NewBitCompactIntArray(8, 1023)
	for i := 0; i < arr.Size(); i++ {
		arr.Set(i, i)
	}

	require.NoError(t, arr.SetMaxValue(7))
	assert.Equal(t, 7, arr.MaxValue())
	assert.Len(t, arr.Bytes(), bitsToBytes(8*3))
	for i := 0; i < arr.Size(); i++ {
		assert.Equal(t, i, arr.Get(i))
	}
}

func TestCompactSameWidthShrinkChecksValues(t *testing.T) {
	arr := NewBitCompactIntArray(4, 7)
	arr.Set(0, 6)

	// 7 -> 5 keeps 3-bit cells but 6 no longer fits.
	assert.ErrorIs(t, arr.SetMaxValue(5), ErrShrinkLosesData)
	require.NoError(t, arr.SetMaxValue(6))
	assert.Equal(t, 6, arr.MaxValue())
}

func TestCompactFromIntArray(t *testing.T) {
	worded := NewWordedIntArray(64, 500)
	for i := 0; i < worded.Size(); i++ {
		worded.Set(i, i*7)
	}

	compact := CompactFromIntArray(worded)
	require.Equal(t, worded.Size(), compact.Size())
	require.Equal(t, worded.MaxValue(), compact.MaxValue())
	for i := 0; i < worded.Size(); i++ {
		assert.Equal(t, worded.Get(i), compact.Get(i))
	}

	// Already-compact sources pass through untouched.
	assert.Same(t, compact, CompactFromIntArray(compact))
}
