package ooze

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/willf/bitset"
)

// ReadLevel decodes one Ooze container from r.
func ReadLevel(r io.Reader) (*Level, error) {
	return NewReader(r).ReadLevel()
}

// Reader decodes the Ooze container format. Compressed sections are handled
// by BeginDecompression / EndDecompression, which swap the stream source to
// the inflated frame until the section ends.
type Reader struct {
	in io.Reader

	decoder *zstd.Decoder

	// When a compressed section is open, in reads the inflated buffer and
	// the real source is parked here.
	source io.Reader

	formatVersion int
}

func NewReader(r io.Reader) *Reader {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	return &Reader{in: r, decoder: decoder, formatVersion: -1}
}

// FormatVersion is the version read from the stream header, or -1 before
// ReadHeader succeeds.
func (r *Reader) FormatVersion() int { return r.formatVersion }

// ReadHeader validates the magic number and format version.
func (r *Reader) ReadHeader() error {
	var magic uint32
	if err := binary.Read(r.in, binary.BigEndian, &magic); err != nil {
		return err
	}
	if magic != MagicNumber {
		return fmt.Errorf("%w: 0x%08X", ErrBadMagic, magic)
	}

	version, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	if version < 0 || version > FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	r.formatVersion = version
	return nil
}

func (r *Reader) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.in, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) readBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.in, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadVarInt reads an LEB128-encoded unsigned 32-bit integer, interpreted
// as signed by its bit pattern.
func (r *Reader) ReadVarInt() (int, error) {
	var value uint32
	for read := 0; ; read++ {
		if read == 5 {
			return 0, ErrVarIntTooBig
		}
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		value |= uint32(b&0x7F) << (7 * read)
		if b&0x80 == 0 {
			return int(int32(value)), nil
		}
	}
}

// ReadBitSet reads the ceil(bitCount/8)-byte form written by WriteBitSet,
// including its single-placeholder-byte case for zero bits.
func (r *Reader) ReadBitSet(bitCount int) (*bitset.BitSet, error) {
	if bitCount == 0 {
		_, err := r.readByte()
		return bitset.New(0), err
	}

	packed, err := r.readBytes(bitsToBytes(bitCount))
	if err != nil {
		return nil, err
	}
	set := bitset.New(uint(bitCount))
	for i := 0; i < bitCount; i++ {
		if packed[i/8]&(1<<(i%8)) != 0 {
			set.Set(uint(i))
		}
	}
	return set, nil
}

// ReadPalette reads a palette blob. The first entry becomes the palette's
// default state.
func (r *Reader) ReadPalette() (*BlockPalette, error) {
	count, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: palette size %d", ErrNegativeLength, count)
	}
	if count == 0 {
		return NewBlockPalette(), nil
	}

	var palette *BlockPalette
	for i := 0; i < count; i++ {
		flags, err := r.readByte()
		if err != nil {
			return nil, err
		}
		hasProperties := flags&1 != 0

		rawName, err := r.readBytes(int(flags >> 1))
		if err != nil {
			return nil, err
		}
		name, err := ParseResourceLocation(string(rawName))
		if err != nil {
			return nil, fmt.Errorf("ooze: invalid state name in palette: %w", err)
		}

		var properties Compound
		if hasProperties {
			if properties, err = readCompound(r.in); err != nil {
				return nil, err
			}
		}

		state := NewBlockState(name, properties)
		if palette == nil {
			palette = NewBlockPaletteWithDefault(state)
		} else {
			palette.AddState(state)
		}
	}
	return palette, nil
}

// ReadCompactArray reads the blob written by WriteCompactArray. When
// expectedSize is non-negative, a differing cell count is a corruption
// error.
func (r *Reader) ReadCompactArray(expectedSize int) (*BitCompactIntArray, error) {
	size, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: array size %d", ErrNegativeLength, size)
	}
	if expectedSize >= 0 && size != expectedSize {
		return nil, fmt.Errorf("%w: expected %d cells, got %d", ErrLengthMismatch, expectedSize, size)
	}

	maxValue, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if maxValue < 0 {
		return nil, fmt.Errorf("%w: array maximum %d", ErrNegativeLength, maxValue)
	}

	data, err := r.readBytes(bitsToBytes(size * bitsToStore(maxValue)))
	if err != nil {
		return nil, err
	}
	return bitCompactFromBytes(data, size, maxValue)
}

// BeginDecompression reads one zstd frame and redirects the stream to its
// inflated contents until EndDecompression.
func (r *Reader) BeginDecompression() error {
	if r.source != nil {
		return ErrNestedCompression
	}

	uncompressedLen, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	compressedLen, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	if uncompressedLen < 0 || compressedLen < 0 {
		return fmt.Errorf("%w: frame lengths %d/%d", ErrNegativeLength, uncompressedLen, compressedLen)
	}

	compressed, err := r.readBytes(compressedLen)
	if err != nil {
		return err
	}
	decompressed, err := r.decoder.DecodeAll(compressed, make([]byte, 0, uncompressedLen))
	if err != nil {
		return fmt.Errorf("ooze: failed to decompress frame: %w", err)
	}
	if len(decompressed) != uncompressedLen {
		return fmt.Errorf("%w: frame inflated to %d bytes, expected %d",
			ErrLengthMismatch, len(decompressed), uncompressedLen)
	}

	r.source = r.in
	r.in = bytes.NewReader(decompressed)
	return nil
}

// EndDecompression returns the stream to the real source.
func (r *Reader) EndDecompression() error {
	if r.source == nil {
		return ErrNotCompressing
	}
	r.in = r.source
	r.source = nil
	return nil
}

// ReadList reads a count-prefixed compressed list of NBT compounds.
func (r *Reader) ReadList() ([]Compound, error) {
	count, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: list size %d", ErrNegativeLength, count)
	}
	if count == 0 {
		return nil, nil
	}

	if err := r.BeginDecompression(); err != nil {
		return nil, err
	}
	list := make([]Compound, 0, count)
	for i := 0; i < count; i++ {
		element, err := readCompound(r.in)
		if err != nil {
			return nil, err
		}
		list = append(list, element)
	}
	return list, r.EndDecompression()
}

// ReadChunk reads one chunk payload for the given location.
func (r *Reader) ReadChunk(chunkX, chunkZ int) (*Chunk, error) {
	dataVersion, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	chunkHeight, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	minAltitude, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}

	chunk := NewChunk(Location2D{X: chunkX, Z: chunkZ}, dataVersion)
	if chunkHeight == 0 {
		// The three-byte all-air form; no section mask follows.
		return chunk, nil
	}
	if chunkHeight < 0 {
		return nil, fmt.Errorf("%w: chunk height %d", ErrNegativeLength, chunkHeight)
	}

	nonEmpty, err := r.ReadBitSet(chunkHeight)
	if err != nil {
		return nil, err
	}
	if !nonEmpty.Any() {
		return chunk, nil
	}

	palette, err := r.ReadPalette()
	if err != nil {
		return nil, err
	}

	for i := 0; i < chunkHeight; i++ {
		if !nonEmpty.Test(uint(i)) {
			continue
		}
		storage, err := r.ReadCompactArray(SectionVolume)
		if err != nil {
			return nil, err
		}
		// Storage is serialized only as wide as its own highest ID, which
		// can be narrower than the chunk palette demands.
		if storage.MaxValue() < palette.Size()-1 {
			if err := storage.SetMaxValue(palette.Size() - 1); err != nil {
				return nil, err
			}
		}

		altitude := i + minAltitude
		section, err := NewChunkSection(altitude, palette, storage)
		if err != nil {
			return nil, err
		}
		if err := chunk.SetSection(altitude, section); err != nil {
			return nil, err
		}
	}
	return chunk, nil
}

// ReadLevel reads a whole container.
func (r *Reader) ReadLevel() (*Level, error) {
	if err := r.ReadHeader(); err != nil {
		return nil, err
	}

	level := NewLevel()

	width, err := r.readByte()
	if err != nil {
		return nil, err
	}
	depth, err := r.readByte()
	if err != nil {
		return nil, err
	}
	var minX, minZ int16
	if err := binary.Read(r.in, binary.LittleEndian, &minX); err != nil {
		return nil, err
	}
	if err := binary.Read(r.in, binary.LittleEndian, &minZ); err != nil {
		return nil, err
	}

	mask, err := r.ReadBitSet(int(width) * int(depth))
	if err != nil {
		return nil, err
	}

	if err := r.BeginDecompression(); err != nil {
		return nil, err
	}
	for dx := 0; dx < int(width); dx++ {
		for dz := 0; dz < int(depth); dz++ {
			if !mask.Test(uint(dx*int(depth) + dz)) {
				continue
			}
			chunk, err := r.ReadChunk(dx+int(minX), dz+int(minZ))
			if err != nil {
				return nil, err
			}
			if err := level.StoreChunk(chunk); err != nil {
				return nil, err
			}
		}
	}
	if err := r.EndDecompression(); err != nil {
		return nil, err
	}

	blockEntities, err := r.ReadList()
	if err != nil {
		return nil, err
	}
	for _, e := range blockEntities {
		level.blockEntities = append(level.blockEntities, e)
	}
	entities, err := r.ReadList()
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		level.entities = append(level.entities, e)
	}

	hasCustom, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if hasCustom != 0 {
		if err := r.BeginDecompression(); err != nil {
			return nil, err
		}
		custom, err := readCompound(r.in)
		if err != nil {
			return nil, err
		}
		if err := r.EndDecompression(); err != nil {
			return nil, err
		}
		level.custom = custom
	}
	return level, nil
}
