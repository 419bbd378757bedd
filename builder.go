package ooze

import "fmt"

// Data versions at which the section block format changed: 1451 introduced
// palettes, 2527 stopped letting packed values straddle longs.
const (
	paletteAddedDataVersion  = 1451
	blocksPaddedDataVersion  = 2527
	preDataVersionDefault    = 99
	vanillaSectionsPerColumn = 16
)

// LevelBuilder assembles a Level from a set of requested chunk coordinates,
// pulling each chunk's NBT from a ChunkSource and decoding both the modern
// paletted and the legacy absolute-ID section formats.
type LevelBuilder struct {
	source ChunkSource
	wanted map[Location2D]struct{}
}

func NewLevelBuilder(source ChunkSource) *LevelBuilder {
	return &LevelBuilder{
		source: source,
		wanted: make(map[Location2D]struct{}),
	}
}

// AddChunk requests the chunk at the given chunk coordinates. Chunks absent
// from the source are skipped at build time.
func (b *LevelBuilder) AddChunk(chunkX, chunkZ int) *LevelBuilder {
	b.wanted[Location2D{X: chunkX, Z: chunkZ}] = struct{}{}
	return b
}

// AddRect requests every chunk in a width * depth area whose lowest corner
// is (minChunkX, minChunkZ).
func (b *LevelBuilder) AddRect(minChunkX, minChunkZ, width, depth int) *LevelBuilder {
	for x := minChunkX; x < minChunkX+width; x++ {
		for z := minChunkZ; z < minChunkZ+depth; z++ {
			b.AddChunk(x, z)
		}
	}
	return b
}

// Build loads and decodes every requested chunk into a fresh level.
func (b *LevelBuilder) Build() (*Level, error) {
	level := NewLevel()
	for loc := range b.wanted {
		data, ok, err := b.source.LoadChunk(loc.X, loc.Z)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		chunk, err := b.createChunk(data)
		if err != nil {
			return nil, fmt.Errorf("region: chunk %v: %w", loc, err)
		}
		if err := level.StoreChunk(chunk); err != nil {
			return nil, err
		}
	}
	return level, nil
}

// createChunk decodes one chunk's region NBT.
func (b *LevelBuilder) createChunk(data Compound) (*Chunk, error) {
	dataVersion := data.GetInt("DataVersion", preDataVersionDefault)

	levelData, ok := data.GetCompound("Level")
	if !ok {
		return nil, fmt.Errorf("%w: missing Level compound", ErrInvalidChunkData)
	}
	if !levelData.Contains("xPos") || !levelData.Contains("zPos") {
		return nil, fmt.Errorf("%w: missing location information", ErrInvalidChunkData)
	}

	chunk := NewChunk(Location2D{
		X: levelData.GetInt("xPos", 0),
		Z: levelData.GetInt("zPos", 0),
	}, dataVersion)

	if sections, ok := levelData.GetList("Sections"); ok {
		for _, element := range sections {
			sectionData, ok := asCompound(element)
			if !ok {
				continue
			}
			if !sectionData.Contains("Y") {
				return nil, fmt.Errorf("%w: section is missing its altitude", ErrInvalidChunkData)
			}

			// Vanilla region files only populate altitudes 0 through 15;
			// markers outside that (like Y=-1) carry no blocks.
			altitude := sectionData.GetInt("Y", -1)
			if altitude < 0 || altitude >= vanillaSectionsPerColumn {
				continue
			}

			section, err := b.createSection(altitude, sectionData, dataVersion)
			if err != nil {
				return nil, err
			}
			if section == nil {
				continue
			}
			if err := chunk.SetSection(altitude, section); err != nil {
				return nil, err
			}
		}
	}

	if entities, ok := levelData.GetList("Entities"); ok {
		if err := chunk.AppendEntities(entities); err != nil {
			return nil, err
		}
	}
	if blockEntities, ok := levelData.GetList("TileEntities"); ok {
		if err := chunk.AppendBlockEntities(blockEntities); err != nil {
			return nil, err
		}
	}
	return chunk, nil
}

// createSection decodes one section compound, choosing the block format by
// data version. A nil section (and nil error) means the section is empty.
func (b *LevelBuilder) createSection(altitude int, data Compound, dataVersion int) (*ChunkSection, error) {
	if dataVersion <= paletteAddedDataVersion {
		return b.createLegacySection(altitude, data)
	}

	paletteList, hasPalette := data.GetList("Palette")
	blockStates, hasBlocks := data.GetLongArray("BlockStates")
	if !hasPalette || !hasBlocks {
		return nil, nil
	}

	palette, err := createPaletteFromNBT(paletteList)
	if err != nil {
		return nil, err
	}

	words := make([]uint64, len(blockStates))
	for i, l := range blockStates {
		words[i] = uint64(l)
	}
	storage, err := WordedFromRaw(words, SectionVolume, palette.Size()-1, dataVersion < blocksPaddedDataVersion)
	if err != nil {
		return nil, err
	}
	return NewChunkSection(altitude, palette, storage)
}

// createLegacySection decodes the pre-1.13 format: absolute 8-bit block IDs
// in "Blocks", a 4-bit ID overflow in "Add", and 4-bit block data in
// "Data". Each (id, data) pair resolves through the legacy table into a
// fresh palette.
func (b *LevelBuilder) createLegacySection(altitude int, data Compound) (*ChunkSection, error) {
	rawBlocks, ok := data.GetByteArray("Blocks")
	if !ok {
		return nil, nil
	}
	rawOverflow, hasOverflow := data.GetByteArray("Add")
	rawData, hasData := data.GetByteArray("Data")

	if len(rawBlocks) != SectionVolume ||
		(hasOverflow && len(rawOverflow) != SectionVolume/2) ||
		(hasData && len(rawData) != SectionVolume/2) {
		return nil, ErrInvalidChunkData
	}

	var overflow, blockData *nibbleArray
	var err error
	if hasOverflow {
		if overflow, err = nibblesFromBytes(rawOverflow, SectionVolume); err != nil {
			return nil, err
		}
	}
	if hasData {
		if blockData, err = nibblesFromBytes(rawData, SectionVolume); err != nil {
			return nil, err
		}
	}

	palette := NewBlockPalette()
	upgrader := NewPaletteUpgrader(HighestLegacyState())
	registered := make(map[int]bool)

	// Record packed legacy keys first, then swap them all for palette IDs
	// in one pass. Packed keys are 12 bits of ID plus 4 of data, so the
	// scratch array is sized for the full 16-bit range; unknown pairs still
	// land in the table as the default state.
	scratch := NewBitCompactIntArray(SectionVolume, 1<<16-1)
	for i := 0; i < SectionVolume; i++ {
		id := int(rawBlocks[i])
		if overflow != nil {
			id |= overflow.Get(i) << 8
		}
		variant := 0
		if blockData != nil {
			variant = blockData.Get(i)
		}

		packed := id<<4 | variant
		scratch.Set(i, packed)
		if !registered[packed] {
			registered[packed] = true
			state := BlockStateFromLegacy(id, variant)
			if err := upgrader.RegisterChange(packed, palette.AddState(state)); err != nil {
				return nil, err
			}
		}
	}
	if err := upgrader.Lock(); err != nil {
		return nil, err
	}
	if err := upgrader.UpgradeArray(scratch); err != nil {
		return nil, err
	}
	// Every cell is a palette ID now; drop the scratch range.
	if err := scratch.SetMaxValue(palette.Size() - 1); err != nil {
		return nil, err
	}

	return NewChunkSection(altitude, palette, scratch)
}

// createPaletteFromNBT turns a section's "Palette" list into a palette
// whose default state is the list's first entry.
func createPaletteFromNBT(list []any) (*BlockPalette, error) {
	var palette *BlockPalette
	for _, element := range list {
		stateData, ok := asCompound(element)
		if !ok {
			return nil, fmt.Errorf("%w: palette entries must be compounds", ErrInvalidChunkData)
		}
		state, err := BlockStateFromNBT(stateData)
		if err != nil {
			return nil, err
		}

		if palette == nil {
			palette = NewBlockPaletteWithDefault(state)
		} else {
			palette.AddState(state)
		}
	}
	if palette == nil {
		return NewBlockPalette(), nil
	}
	return palette, nil
}
