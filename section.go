package ooze

import "fmt"

const (
	sectionWidth  = 16
	sectionHeight = 16
	sectionDepth  = 16

	// SectionVolume is the cell count of a section's storage array.
	SectionVolume = sectionWidth * sectionHeight * sectionDepth
)

// ChunkSection is a 16x16x16 volume of blocks, one vertical slice of a
// chunk. Block IDs in the storage array resolve through the palette, which
// after insertion into a chunk is the chunk-wide palette.
type ChunkSection struct {
	altitude int
	palette  *BlockPalette
	storage  *BitCompactIntArray

	// Cached result of IsEmpty, recomputed after any mutation.
	empty        bool
	emptyChecked bool
}

// NewChunkSection wraps palette and storage as a section based at altitude
// (in 16-block units). The storage must hold exactly 4096 cells and be wide
// enough for every palette ID.
func NewChunkSection(altitude int, palette *BlockPalette, storage IntArray) (*ChunkSection, error) {
	if storage == nil || palette == nil {
		return nil, fmt.Errorf("%w: section needs a palette and storage", ErrInvalidChunkData)
	}
	if storage.Size() != SectionVolume {
		return nil, fmt.Errorf("%w: section storage must have exactly %d cells, got %d",
			ErrLengthMismatch, SectionVolume, storage.Size())
	}
	if storage.MaxValue() < palette.Size()-1 {
		return nil, fmt.Errorf("%w: block storage is too small for its palette", ErrLengthMismatch)
	}
	return &ChunkSection{
		altitude: altitude,
		palette:  palette,
		storage:  CompactFromIntArray(storage),
	}, nil
}

func (s *ChunkSection) Altitude() int { return s.altitude }

func (s *ChunkSection) Palette() *BlockPalette { return s.palette }

func (s *ChunkSection) Storage() *BitCompactIntArray { return s.storage }

// BlockAt returns the block at local coordinates, each in [0, 16). IDs the
// palette cannot resolve yield the palette's default state.
func (s *ChunkSection) BlockAt(x, y, z int) (BlockState, error) {
	if !inSectionBounds(x, y, z) {
		return BlockState{}, fmt.Errorf("%w: (%d, %d, %d)", ErrCoordOutOfBounds, x, y, z)
	}
	return s.palette.StateOrDefault(s.storage.Get(blockIndex(x, y, z))), nil
}

// SetBlockAt stores state at local coordinates, adding it to the palette if
// needed, and returns the previous block.
func (s *ChunkSection) SetBlockAt(x, y, z int, state BlockState) (BlockState, error) {
	if !inSectionBounds(x, y, z) {
		return BlockState{}, fmt.Errorf("%w: (%d, %d, %d)", ErrCoordOutOfBounds, x, y, z)
	}

	id := s.palette.AddState(state)
	if id > s.storage.MaxValue() {
		if err := s.storage.SetMaxValue(id); err != nil {
			return BlockState{}, err
		}
	}
	previous := s.storage.Set(blockIndex(x, y, z), id)
	s.emptyChecked = false
	return s.palette.StateOrDefault(previous), nil
}

// IsEmpty reports whether every cell resolves to an air state. The scan is
// memoized until the next mutation.
func (s *ChunkSection) IsEmpty() bool {
	if s.emptyChecked {
		return s.empty
	}

	s.empty = true
	for i := 0; i < s.storage.Size(); i++ {
		if !s.palette.StateOrDefault(s.storage.Get(i)).IsAir() {
			s.empty = false
			break
		}
	}
	s.emptyChecked = true
	return s.empty
}

func inSectionBounds(x, y, z int) bool {
	return x >= 0 && x < sectionWidth &&
		y >= 0 && y < sectionHeight &&
		z >= 0 && z < sectionDepth
}

// blockIndex is the storage index for local block coordinates.
func blockIndex(x, y, z int) int {
	return y*sectionWidth*sectionDepth + z*sectionWidth + x
}
