package ooze

import (
	"fmt"
	"math/bits"
)

// BitCompactIntArray packs values as tightly as possible: cells are
// bitsToStore(maxValue) bits wide with no padding, so a cell may run across
// byte boundaries. It is the in-memory and on-disk form of section block
// storage. Unlike WordedIntArray, the maximum value can be changed after
// construction; see SetMaxValue.
type BitCompactIntArray struct {
	data []byte

	size     int
	maxValue int

	bitsPerCell int
	cellMask    uint32
}

func NewBitCompactIntArray(size, maxValue int) *BitCompactIntArray {
	if size < 0 {
		panic(indexOutOfBounds)
	}
	if maxValue < 0 {
		panic(valueOutOfBounds)
	}
	a := &BitCompactIntArray{size: size, maxValue: maxValue}
	a.bitsPerCell = bitsToStore(maxValue)
	a.cellMask = 1<<a.bitsPerCell - 1
	a.data = make([]byte, bitsToBytes(size*a.bitsPerCell))
	return a
}

// CompactFromIntArray copies source into a compact array with the same size
// and maximum. If source is already compact it is returned as-is.
func CompactFromIntArray(source IntArray) *BitCompactIntArray {
	if c, ok := source.(*BitCompactIntArray); ok {
		return c
	}
	c := NewBitCompactIntArray(source.Size(), source.MaxValue())
	source.ForEach(func(i, v int) { c.Set(i, v) })
	return c
}

// bitCompactFromBytes adopts a raw cell buffer, as found in the serialized
// blob form.
func bitCompactFromBytes(data []byte, size, maxValue int) (*BitCompactIntArray, error) {
	a := &BitCompactIntArray{size: size, maxValue: maxValue}
	a.bitsPerCell = bitsToStore(maxValue)
	a.cellMask = 1<<a.bitsPerCell - 1
	if want := bitsToBytes(size * a.bitsPerCell); len(data) != want {
		return nil, fmt.Errorf("%w: compact array needs %d bytes, have %d", ErrLengthMismatch, want, len(data))
	}
	a.data = data
	return a, nil
}

func (a *BitCompactIntArray) Get(i int) int {
	if i < 0 || i >= a.size {
		panic(indexOutOfBounds)
	}
	return compactGet(a.data, a.bitsPerCell, a.cellMask, i)
}

func (a *BitCompactIntArray) Set(i, v int) int {
	if i < 0 || i >= a.size {
		panic(indexOutOfBounds)
	}
	if v < 0 || v > a.maxValue {
		panic(valueOutOfBounds)
	}
	return compactSet(a.data, a.bitsPerCell, a.cellMask, i, v)
}

func (a *BitCompactIntArray) Size() int { return a.size }

func (a *BitCompactIntArray) MaxValue() int { return a.maxValue }

func (a *BitCompactIntArray) ForEach(action func(index, value int)) {
	for i := 0; i < a.size; i++ {
		action(i, compactGet(a.data, a.bitsPerCell, a.cellMask, i))
	}
}

// Bytes returns the raw backing buffer. It aliases the array's storage and
// is invalidated by SetMaxValue.
func (a *BitCompactIntArray) Bytes() []byte { return a.data }

// SetMaxValue changes the maximum allowed value, repacking every cell when
// the cell width changes. Shrinking below a value the array already holds
// fails with ErrShrinkLosesData and leaves the array untouched.
func (a *BitCompactIntArray) SetMaxValue(newMax int) error {
	if newMax < 0 {
		panic(valueOutOfBounds)
	}
	newBits := bitsToStore(newMax)

	if newBits == a.bitsPerCell {
		if newMax < a.maxValue {
			for i := 0; i < a.size; i++ {
				if v := a.Get(i); v > newMax {
					return fmt.Errorf("%w: value %d at index %d > new maximum %d", ErrShrinkLosesData, v, i, newMax)
				}
			}
		}
		a.maxValue = newMax
		return nil
	}

	newMask := uint32(1)<<newBits - 1
	newData := make([]byte, bitsToBytes(a.size*newBits))
	for i := 0; i < a.size; i++ {
		v := a.Get(i)
		if v > newMax {
			return fmt.Errorf("%w: value %d at index %d > new maximum %d", ErrShrinkLosesData, v, i, newMax)
		}
		compactSet(newData, newBits, newMask, i, v)
	}

	a.data = newData
	a.bitsPerCell = newBits
	a.cellMask = newMask
	a.maxValue = newMax
	return nil
}

// compactGet reads cell index from a raw buffer, walking bytes with a
// rolling mask so cells can straddle byte boundaries.
func compactGet(data []byte, bitsPerCell int, cellMask uint32, index int) int {
	bitIndex := index * bitsPerCell
	bitOffset := bitIndex % 8
	byteIndex := bitIndex / 8
	totalRead := 0

	var value uint32
	valueMask := cellMask
	for valueMask != 0 {
		value |= ((uint32(data[byteIndex]) >> bitOffset) & valueMask) << totalRead

		read := bits.OnesCount32(valueMask)
		if avail := 8 - bitOffset; avail < read {
			read = avail
		}
		valueMask >>= read

		totalRead += read
		byteIndex++
		bitOffset = 0
	}
	return int(value)
}

func compactSet(data []byte, bitsPerCell int, cellMask uint32, index, value int) int {
	bitIndex := index * bitsPerCell
	bitOffset := bitIndex % 8
	byteIndex := bitIndex / 8
	totalWritten := 0

	var previous uint32
	v := uint32(value)
	valueMask := cellMask
	for valueMask != 0 {
		previous |= ((uint32(data[byteIndex]) >> bitOffset) & valueMask) << totalWritten

		data[byteIndex] &^= byte(valueMask << bitOffset)
		data[byteIndex] |= byte((v & valueMask) << bitOffset)

		written := bits.OnesCount32(valueMask)
		if avail := 8 - bitOffset; avail < written {
			written = avail
		}
		v >>= written
		valueMask >>= written

		totalWritten += written
		byteIndex++
		bitOffset = 0
	}
	return int(previous)
}
