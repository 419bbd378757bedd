package ooze

import (
	"fmt"
	"math"
)

// Format limits on level extents: chunk coordinates are serialized as
// signed 16-bit values, and a level spans at most 65,535 chunks per axis.
// WriteLevel further limits widths and depths to 255 chunks, since it
// serializes them as unsigned bytes.
const (
	maxLevelSpan = 0xFFFF
	minChunkPos  = math.MinInt16
	maxChunkPos  = math.MaxInt16
)

// Level is a sparse set of chunks plus world-wide NBT data. Entities and
// block entities are kept as bulk lists; per-chunk views are computed on
// demand from each element's coordinates.
type Level struct {
	chunks map[Location2D]*Chunk

	entities      []Compound
	blockEntities []Compound
	custom        Compound

	// Highest and lowest chunk coordinates seen, used to keep new chunks
	// inside the format limits. Only meaningful when len(chunks) > 0.
	lowX, highX int
	lowZ, highZ int
}

func NewLevel() *Level {
	return &Level{
		chunks: make(map[Location2D]*Chunk),
		custom: make(Compound),
	}
}

func (l *Level) ChunkAt(chunkX, chunkZ int) (*Chunk, bool) {
	c, ok := l.chunks[Location2D{X: chunkX, Z: chunkZ}]
	return c, ok
}

// Chunks returns every stored chunk in no particular order.
func (l *Level) Chunks() []*Chunk {
	out := make([]*Chunk, 0, len(l.chunks))
	for _, c := range l.chunks {
		out = append(out, c)
	}
	return out
}

func (l *Level) ChunkCount() int { return len(l.chunks) }

func (l *Level) LowestChunkX() int { return l.lowX }

func (l *Level) LowestChunkZ() int { return l.lowZ }

// Width is the level's extent along X in chunks, zero when empty.
func (l *Level) Width() int {
	if len(l.chunks) == 0 {
		return 0
	}
	return l.highX - l.lowX + 1
}

func (l *Level) Depth() int {
	if len(l.chunks) == 0 {
		return 0
	}
	return l.highZ - l.lowZ + 1
}

// StoreChunk inserts chunk, growing the level bounds. Locations that do not
// fit the format limits fail with ErrChunkOutOfBounds.
func (l *Level) StoreChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: nil chunk", ErrChunkOutOfBounds)
	}
	loc := chunk.Location()
	if !l.chunkInBounds(loc) {
		return fmt.Errorf("%w: %v", ErrChunkOutOfBounds, loc)
	}

	if len(l.chunks) == 0 {
		l.lowX, l.highX = loc.X, loc.X
		l.lowZ, l.highZ = loc.Z, loc.Z
	} else {
		if loc.X < l.lowX {
			l.lowX = loc.X
		}
		if loc.X > l.highX {
			l.highX = loc.X
		}
		if loc.Z < l.lowZ {
			l.lowZ = loc.Z
		}
		if loc.Z > l.highZ {
			l.highZ = loc.Z
		}
	}
	l.chunks[loc] = chunk
	return nil
}

// BlockAt resolves absolute block coordinates through the owning chunk.
// Locations with no stored chunk read as the default block state.
func (l *Level) BlockAt(x, y, z int) (BlockState, error) {
	chunk, ok := l.ChunkAt(x>>4, z>>4)
	if !ok {
		return BlockStateDefault, nil
	}
	return chunk.BlockAt(x&15, y, z&15)
}

func (l *Level) Entities() []Compound { return l.entities }

func (l *Level) BlockEntities() []Compound { return l.blockEntities }

// Custom is the level's free-form NBT storage.
func (l *Level) Custom() Compound { return l.custom }

// AppendEntities adds serialized entities to the level-wide list.
func (l *Level) AppendEntities(list []any) error {
	if !compoundsOnly(list) {
		return ErrNotCompoundList
	}
	for _, e := range list {
		compound, _ := asCompound(e)
		l.entities = append(l.entities, compound)
	}
	return nil
}

func (l *Level) AppendBlockEntities(list []any) error {
	if !compoundsOnly(list) {
		return ErrNotCompoundList
	}
	for _, e := range list {
		compound, _ := asCompound(e)
		l.blockEntities = append(l.blockEntities, compound)
	}
	return nil
}

// EntitiesIn returns a fresh list of the entities whose "Pos" places them in
// the given chunk.
func (l *Level) EntitiesIn(chunkLoc Location2D) []Compound {
	var out []Compound
	for _, entity := range l.entities {
		if hasPos(entity) && entityChunk(entity) == chunkLoc {
			out = append(out, entity)
		}
	}
	return out
}

// BlockEntitiesIn returns a fresh list of the block entities whose "x"/"z"
// fields place them in the given chunk.
func (l *Level) BlockEntitiesIn(chunkLoc Location2D) []Compound {
	var out []Compound
	for _, blockEntity := range l.blockEntities {
		if !blockEntity.Contains("x") || !blockEntity.Contains("z") {
			continue
		}
		if blockEntityChunk(blockEntity) == chunkLoc {
			out = append(out, blockEntity)
		}
	}
	return out
}

// SetEntities replaces the entities belonging to a chunk: current members
// (by the EntitiesIn filter) are removed and the replacement list appended.
func (l *Level) SetEntities(chunkLoc Location2D, replacement []any) error {
	if !compoundsOnly(replacement) {
		return ErrNotCompoundList
	}

	kept := l.entities[:0]
	for _, entity := range l.entities {
		if hasPos(entity) && entityChunk(entity) == chunkLoc {
			continue
		}
		kept = append(kept, entity)
	}
	l.entities = kept
	return l.AppendEntities(replacement)
}

// SetBlockEntities is SetEntities for block entities.
func (l *Level) SetBlockEntities(chunkLoc Location2D, replacement []any) error {
	if !compoundsOnly(replacement) {
		return ErrNotCompoundList
	}

	kept := l.blockEntities[:0]
	for _, blockEntity := range l.blockEntities {
		if blockEntity.Contains("x") && blockEntity.Contains("z") &&
			blockEntityChunk(blockEntity) == chunkLoc {
			continue
		}
		kept = append(kept, blockEntity)
	}
	l.blockEntities = kept
	return l.AppendBlockEntities(replacement)
}

func (l *Level) chunkInBounds(loc Location2D) bool {
	if loc.X < minChunkPos || loc.X > maxChunkPos || loc.Z < minChunkPos || loc.Z > maxChunkPos {
		return false
	}
	if len(l.chunks) == 0 {
		return true
	}

	switch {
	case loc.X < l.lowX && l.highX-loc.X+1 > maxLevelSpan:
		return false
	case loc.X > l.highX && loc.X-l.lowX+1 > maxLevelSpan:
		return false
	case loc.Z < l.lowZ && l.highZ-loc.Z+1 > maxLevelSpan:
		return false
	case loc.Z > l.highZ && loc.Z-l.lowZ+1 > maxLevelSpan:
		return false
	}
	return true
}

// hasPos reports whether an entity has the three-element "Pos" list used to
// assign it to a chunk.
func hasPos(entity Compound) bool {
	pos, ok := entity.GetList("Pos")
	if !ok || len(pos) != 3 {
		return false
	}
	_, ok = asFloat(pos[0])
	return ok
}

func entityChunk(entity Compound) Location2D {
	pos, ok := entity.GetList("Pos")
	if !ok || len(pos) != 3 {
		return Location2D{X: math.MinInt32, Z: math.MinInt32}
	}
	x, okX := asFloat(pos[0])
	z, okZ := asFloat(pos[2])
	if !okX || !okZ {
		return Location2D{X: math.MinInt32, Z: math.MinInt32}
	}
	return Location2D{
		X: int(math.Floor(x / 16)),
		Z: int(math.Floor(z / 16)),
	}
}

func blockEntityChunk(blockEntity Compound) Location2D {
	return Location2D{
		X: floorDiv(blockEntity.GetInt("x", 0), 16),
		Z: floorDiv(blockEntity.GetInt("z", 0), 16),
	}
}
