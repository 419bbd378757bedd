package ooze

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willf/bitset"
)

func TestVarIntRoundTrip(t *testing.T) {
	for _, value := range []int{0, 1, 127, 128, 255, 300, 16383, 16384, 1<<31 - 1, -1, -2586} {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.WriteVarInt(value))

		got, err := NewReader(&buf).ReadVarInt()
		require.NoError(t, err)
		assert.Equal(t, value, got, "value %d", value)
	}
}

func TestVarIntSingleByteShortcut(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteVarInt(127))
	assert.Equal(t, []byte{0x7F}, buf.Bytes())

	buf.Reset()
	require.NoError(t, NewWriter(&buf).WriteVarInt(128))
	assert.Equal(t, []byte{0x80, 0x01}, buf.Bytes())
}

func TestVarIntTooBig(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})).ReadVarInt()
	assert.ErrorIs(t, err, ErrVarIntTooBig)
}

func TestBitSetRoundTrip(t *testing.T) {
	set := bitset.New(19)
	set.Set(0)
	set.Set(8)
	set.Set(18)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteBitSet(set, 19))
	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, byte(0x01), buf.Bytes()[0])
	assert.Equal(t, byte(0x01), buf.Bytes()[1])
	assert.Equal(t, byte(0x04), buf.Bytes()[2])

	got, err := NewReader(&buf).ReadBitSet(19)
	require.NoError(t, err)
	for i := 0; i < 19; i++ {
		assert.Equal(t, set.Test(uint(i)), got.Test(uint(i)), "bit %d", i)
	}
}

func TestBitSetZeroBits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteBitSet(bitset.New(0), 0))
	assert.Equal(t, []byte{0x00}, buf.Bytes())

	r := NewReader(&buf)
	got, err := r.ReadBitSet(0)
	require.NoError(t, err)
	assert.False(t, got.Any())
	assert.Zero(t, buf.Len(), "the placeholder byte must be consumed")
}

func TestCompressionNesting(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	require.NoError(t, w.BeginCompression())
	assert.ErrorIs(t, w.BeginCompression(), ErrNestedCompression)
	require.NoError(t, w.EndCompression())
	assert.ErrorIs(t, w.EndCompression(), ErrNotCompressing)
}

func TestCompressedSectionRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("oozes and sludge "), 100)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.BeginCompression())
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.EndCompression())
	assert.Less(t, buf.Len(), len(payload), "repetitive payload should shrink")

	r := NewReader(&buf)
	require.NoError(t, r.BeginDecompression())
	got, err := r.readBytes(len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, r.EndDecompression())
}

func TestPaletteBlobRoundTrip(t *testing.T) {
	p := NewBlockPalette()
	p.AddState(testState(t, "minecraft:stone"))
	logName, _ := ParseResourceLocation("minecraft:oak_log")
	p.AddState(NewBlockState(logName, Compound{"axis": "y"}))

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WritePalette(p))

	got, err := NewReader(&buf).ReadPalette()
	require.NoError(t, err)
	require.Equal(t, p.Size(), got.Size())

	p.ForEach(func(id int, state BlockState) {
		decoded, ok := got.State(id)
		require.True(t, ok)
		assert.True(t, decoded.Equal(state), "id %d: %v != %v", id, decoded, state)
	})

	// Properties survive with their values intact.
	decoded, _ := got.State(2)
	require.True(t, decoded.HasProperties())
	assert.Equal(t, "y", decoded.Properties().GetString("axis", ""))
}

func TestPaletteBlobRejectsLongNames(t *testing.T) {
	longName, err := NewResourceLocation("minecraft", string(bytes.Repeat([]byte("a"), 140)))
	require.NoError(t, err)

	p := NewBlockPalette()
	p.AddState(NewBlockState(longName, nil))

	assert.ErrorIs(t, NewWriter(&bytes.Buffer{}).WritePalette(p), ErrLengthMismatch)
}

func TestCompactBlobRoundTrip(t *testing.T) {
	arr := NewBitCompactIntArray(SectionVolume, 12)
	for i := 0; i < arr.Size(); i++ {
		arr.Set(i, i%13)
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteCompactArray(arr))

	got, err := NewReader(&buf).ReadCompactArray(SectionVolume)
	require.NoError(t, err)
	require.Equal(t, arr.Size(), got.Size())
	require.Equal(t, arr.MaxValue(), got.MaxValue())
	for i := 0; i < arr.Size(); i++ {
		require.Equal(t, arr.Get(i), got.Get(i), "index %d", i)
	}
}

func TestCompactBlobSizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteCompactArray(NewBitCompactIntArray(16, 3)))

	_, err := NewReader(&buf).ReadCompactArray(SectionVolume)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

// An empty level's encoding is pinned down to the byte.
func TestEmptyLevelGoldenBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLevel(NewLevel(), &buf))
	raw := buf.Bytes()

	want := []byte{
		0x61, 0x0B, 0xB1, 0x0B, // magic
		0x00,       // format version
		0x00, 0x00, // width, depth
		0x00, 0x00, 0x00, 0x00, // min chunk X, min chunk Z
		0x00, // chunk mask (zero bits -> one byte)
		0x00, // frame: uncompressed length
	}
	require.GreaterOrEqual(t, len(raw), len(want))
	assert.Equal(t, want, raw[:len(want)])

	// Then the frame's compressed length and bytes, then two empty lists
	// and the has-custom flag.
	compressedLen := int(raw[len(want)])
	tail := raw[len(want)+1+compressedLen:]
	assert.Equal(t, []byte{0x00, 0x00, 0x00}, tail)

	level, err := ReadLevel(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Zero(t, level.ChunkCount())
	assert.Empty(t, level.Entities())
	assert.Empty(t, level.Custom())
}

// A chunk whose only section is all default-state blocks writes as the
// three-byte empty form and still reads back as all air.
func TestAllAirChunkRoundTrip(t *testing.T) {
	chunk := NewChunk(Location2D{X: 1, Z: 1}, 2586)
	require.NoError(t, chunk.SetSection(0, sectionFilledWith(t, 0, BlockStateDefault)))

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteChunk(chunk))
	assert.Equal(t, []byte{0x00, 0x00, 0x00}, buf.Bytes())

	got, err := NewReader(&buf).ReadChunk(1, 1)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	block, err := got.BlockAt(8, 8, 8)
	require.NoError(t, err)
	assert.True(t, block.IsAir())
}

func TestChunkRoundTrip(t *testing.T) {
	stone := testState(t, "minecraft:stone")
	dirt := testState(t, "minecraft:dirt")

	chunk := NewChunk(Location2D{X: 3, Z: -2}, 2586)
	require.NoError(t, chunk.SetSection(-2, sectionFilledWith(t, -2, stone)))
	require.NoError(t, chunk.SetSection(1, sectionFilledWith(t, 1, dirt)))

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteChunk(chunk))

	got, err := NewReader(&buf).ReadChunk(3, -2)
	require.NoError(t, err)

	assert.Equal(t, 2586, got.DataVersion())
	assert.Equal(t, -2, got.MinAltitude())
	assert.Equal(t, 1, got.MaxAltitude())
	assert.Equal(t, 2, got.SectionCount())

	for y := -32; y < 32; y++ {
		want := BlockStateDefault
		switch floorDiv(y, 16) {
		case -2:
			want = stone
		case 1:
			want = dirt
		}
		block, err := got.BlockAt(7, y, 9)
		require.NoError(t, err)
		require.True(t, block.Equal(want), "y=%d: got %v", y, block)
	}
}

func TestLevelRoundTrip(t *testing.T) {
	stone := testState(t, "minecraft:stone")
	logName, _ := ParseResourceLocation("minecraft:oak_log")
	log := NewBlockState(logName, Compound{"axis": "x"})

	level := NewLevel()

	first := NewChunk(Location2D{X: -1, Z: 2}, 2586)
	require.NoError(t, first.SetSection(0, sectionFilledWith(t, 0, stone)))
	require.NoError(t, level.StoreChunk(first))

	second := NewChunk(Location2D{X: 2, Z: 2}, 2586)
	require.NoError(t, second.SetSection(3, sectionFilledWith(t, 3, log)))
	require.NoError(t, level.StoreChunk(second))

	require.NoError(t, level.AppendEntities([]any{entityAt(-10, 40)}))
	require.NoError(t, level.AppendBlockEntities([]any{blockEntityAt(35, 37)}))
	level.Custom()["exported_by"] = "ooze"

	var buf bytes.Buffer
	require.NoError(t, WriteLevel(level, &buf))

	got, err := ReadLevel(&buf)
	require.NoError(t, err)

	assert.Equal(t, 2, got.ChunkCount())
	assert.Equal(t, level.Width(), got.Width())
	assert.Equal(t, level.Depth(), got.Depth())
	assert.Equal(t, level.LowestChunkX(), got.LowestChunkX())
	assert.Equal(t, level.LowestChunkZ(), got.LowestChunkZ())

	for _, loc := range []Location2D{{X: -1, Z: 2}, {X: 2, Z: 2}} {
		original, _ := level.ChunkAt(loc.X, loc.Z)
		decoded, ok := got.ChunkAt(loc.X, loc.Z)
		require.True(t, ok, "chunk %v missing", loc)
		require.Equal(t, original.SectionCount(), decoded.SectionCount())

		for _, section := range original.Sections() {
			y := section.Altitude() * 16
			for _, xz := range [][2]int{{0, 0}, {15, 15}, {7, 3}} {
				want, err := original.BlockAt(xz[0], y, xz[1])
				require.NoError(t, err)
				have, err := decoded.BlockAt(xz[0], y, xz[1])
				require.NoError(t, err)
				require.True(t, have.Equal(want), "chunk %v block (%d, %d, %d)", loc, xz[0], y, xz[1])
			}
		}
	}

	require.Len(t, got.Entities(), 1)
	assert.Equal(t, "minecraft:creeper", got.Entities()[0].GetString("id", ""))
	require.Len(t, got.BlockEntities(), 1)
	assert.Equal(t, 35, got.BlockEntities()[0].GetInt("x", -1))
	assert.Equal(t, "ooze", got.Custom().GetString("exported_by", ""))
}

func TestReaderRejectsBadHeader(t *testing.T) {
	_, err := ReadLevel(bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00}))
	assert.ErrorIs(t, err, ErrBadMagic)

	// Right magic, future version.
	_, err = ReadLevel(bytes.NewReader([]byte{0x61, 0x0B, 0xB1, 0x0B, 0x05}))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
