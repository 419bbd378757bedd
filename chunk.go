package ooze

import (
	"fmt"
	"sort"
)

// Location2D is a position on the chunk grid.
type Location2D struct {
	X int
	Z int
}

func (l Location2D) String() string {
	return fmt.Sprintf("(%d, %d)", l.X, l.Z)
}

// Chunk is a 16-wide by 16-deep column of sections. All resident sections
// share the chunk-wide palette; inserting a section with its own palette
// merges it and rewrites the section's storage.
type Chunk struct {
	location    Location2D
	dataVersion int

	palette  *BlockPalette
	sections map[int]*ChunkSection

	minAltitude int
	maxAltitude int

	entities      []Compound
	blockEntities []Compound
}

func NewChunk(location Location2D, dataVersion int) *Chunk {
	return &Chunk{
		location:    location,
		dataVersion: dataVersion,
		palette:     NewBlockPalette(),
		sections:    make(map[int]*ChunkSection),
	}
}

func (c *Chunk) Location() Location2D { return c.location }

func (c *Chunk) DataVersion() int { return c.dataVersion }

func (c *Chunk) Palette() *BlockPalette { return c.palette }

// MinAltitude is the altitude of the lowest resident section; zero when the
// chunk has none. Check SectionCount first.
func (c *Chunk) MinAltitude() int { return c.minAltitude }

func (c *Chunk) MaxAltitude() int { return c.maxAltitude }

func (c *Chunk) SectionCount() int { return len(c.sections) }

// Height is the chunk's vertical extent in blocks, spanning from the lowest
// resident section to the highest.
func (c *Chunk) Height() int {
	if len(c.sections) == 0 {
		return 0
	}
	return sectionHeight * (c.maxAltitude - c.minAltitude + 1)
}

// Section returns the resident section at altitude, if any.
func (c *Chunk) Section(altitude int) (*ChunkSection, bool) {
	s, ok := c.sections[altitude]
	return s, ok
}

// Sections returns the resident sections sorted by ascending altitude.
func (c *Chunk) Sections() []*ChunkSection {
	out := make([]*ChunkSection, 0, len(c.sections))
	for _, s := range c.sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].altitude < out[j].altitude })
	return out
}

// SetSection inserts section at altitude. The altitude must be vacant. The
// section's palette is merged into the chunk palette and its storage
// rewritten to match, so the stored section always resolves through the
// chunk-wide palette.
func (c *Chunk) SetSection(altitude int, section *ChunkSection) error {
	if section == nil {
		return fmt.Errorf("%w: nil section", ErrInvalidChunkData)
	}
	if _, taken := c.sections[altitude]; taken {
		return fmt.Errorf("%w: altitude %d in chunk %v", ErrDuplicateAltitude, altitude, c.location)
	}

	storage := CompactFromIntArray(section.storage)
	if section.palette != c.palette {
		if err := c.palette.AddAll(section.palette).UpgradeArray(storage); err != nil {
			return err
		}
	}

	homed, err := NewChunkSection(altitude, c.palette, storage)
	if err != nil {
		return err
	}
	c.sections[altitude] = homed

	if len(c.sections) == 1 {
		c.minAltitude = altitude
		c.maxAltitude = altitude
	} else {
		if altitude < c.minAltitude {
			c.minAltitude = altitude
		}
		if altitude > c.maxAltitude {
			c.maxAltitude = altitude
		}
	}
	return nil
}

// BlockAt returns the block at chunk-local x and z (each in [0, 16)) and
// absolute y. Altitudes with no resident section read as the default state.
func (c *Chunk) BlockAt(x, y, z int) (BlockState, error) {
	if x < 0 || x >= sectionWidth || z < 0 || z >= sectionDepth {
		return BlockState{}, fmt.Errorf("%w: (%d, %d, %d)", ErrCoordOutOfBounds, x, y, z)
	}

	section, ok := c.sections[floorDiv(y, sectionHeight)]
	if !ok {
		return c.palette.DefaultState(), nil
	}
	return section.BlockAt(x, floorMod(y, sectionHeight), z)
}

// IsEmpty reports whether every resident section is all air.
func (c *Chunk) IsEmpty() bool {
	for _, s := range c.sections {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

// Entities returns the chunk's entity compounds. The slice is shared;
// callers that need to mutate should copy.
func (c *Chunk) Entities() []Compound { return c.entities }

func (c *Chunk) BlockEntities() []Compound { return c.blockEntities }

// AppendEntities adds serialized entities to the chunk. Non-compound
// elements are rejected.
func (c *Chunk) AppendEntities(list []any) error {
	if !compoundsOnly(list) {
		return ErrNotCompoundList
	}
	for _, e := range list {
		compound, _ := asCompound(e)
		c.entities = append(c.entities, compound)
	}
	return nil
}

func (c *Chunk) AppendBlockEntities(list []any) error {
	if !compoundsOnly(list) {
		return ErrNotCompoundList
	}
	for _, e := range list {
		compound, _ := asCompound(e)
		c.blockEntities = append(c.blockEntities, compound)
	}
	return nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
