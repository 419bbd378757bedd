package ooze

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/willf/bitset"
)

const (
	// MagicNumber opens every .ooze stream, written big-endian.
	MagicNumber = 0x610BB10B

	// FormatVersion is the container revision this package implements.
	FormatVersion = 0

	// DefaultCompressionLevel is the zstd level used when none is given.
	DefaultCompressionLevel = 3
)

// WriteLevel encodes level to w in the Ooze container format.
func WriteLevel(level *Level, w io.Writer) error {
	return NewWriter(w).WriteLevel(level)
}

// Writer emits the Ooze container format onto a byte stream. Compressed
// sections are written through BeginCompression / EndCompression, which
// temporarily redirect the writer into an in-memory buffer and flush it as
// a single zstd frame.
type Writer struct {
	out io.Writer

	encoder *zstd.Encoder

	// When a compressed section is open, out points at buf and the real
	// destination is parked here.
	dest io.Writer
	buf  bytes.Buffer
}

func NewWriter(w io.Writer) *Writer {
	return NewWriterLevel(w, DefaultCompressionLevel)
}

// NewWriterLevel sets the Zstandard compression level used for every
// compressed section.
func NewWriterLevel(w io.Writer, level int) *Writer {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithZeroFrames(true))
	if err != nil {
		// Only reachable with invalid options; the level is clamped above.
		panic(err)
	}
	return &Writer{out: w, encoder: encoder}
}

// Write passes bytes through to the current destination, honoring any open
// compressed section.
func (w *Writer) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w *Writer) writeByte(b byte) error {
	_, err := w.out.Write([]byte{b})
	return err
}

// WriteHeader writes the four magic bytes followed by the format version.
func (w *Writer) WriteHeader() error {
	if err := binary.Write(w.out, binary.BigEndian, uint32(MagicNumber)); err != nil {
		return err
	}
	return w.WriteVarInt(FormatVersion)
}

// WriteVarInt writes value as an LEB128-encoded unsigned 32-bit integer.
// Negative values are encoded by their two's-complement bit pattern.
func (w *Writer) WriteVarInt(value int) error {
	v := uint32(int32(value))
	for {
		part := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			part |= 0x80
		}
		if err := w.writeByte(part); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// WriteBitSet writes ceil(bitCount/8) bytes holding the first bitCount bits
// of set; bit i lands in bit i%8 of byte i/8. A zero bitCount writes a
// single zero byte.
func (w *Writer) WriteBitSet(set *bitset.BitSet, bitCount int) error {
	if bitCount == 0 {
		return w.writeByte(0)
	}

	packed := make([]byte, bitsToBytes(bitCount))
	for i := 0; i < bitCount; i++ {
		if set.Test(uint(i)) {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	_, err := w.out.Write(packed)
	return err
}

// WritePalette writes every palette entry prefixed by the entry count. Each
// entry is a length/flags byte (name length in the high 7 bits, a
// has-properties flag in the low bit), the stringified name, and the
// properties as an unnamed NBT compound when present.
func (w *Writer) WritePalette(palette *BlockPalette) error {
	if err := w.WriteVarInt(palette.Size()); err != nil {
		return err
	}

	var outerErr error
	palette.ForEach(func(_ int, state BlockState) {
		if outerErr != nil {
			return
		}
		name := state.Name().String()
		if len(name) > 0x7F {
			outerErr = fmt.Errorf("%w: state name must be under 128 bytes: %s", ErrLengthMismatch, name)
			return
		}

		flags := byte(len(name) << 1)
		if state.HasProperties() {
			flags |= 1
		}
		if outerErr = w.writeByte(flags); outerErr != nil {
			return
		}
		if _, outerErr = io.WriteString(w.out, name); outerErr != nil {
			return
		}
		if state.HasProperties() {
			outerErr = writeCompound(w.out, state.Properties())
		}
	})
	return outerErr
}

// WriteCompactArray writes a bit-compact array as its size, maximum value,
// and raw cell bytes.
func (w *Writer) WriteCompactArray(array *BitCompactIntArray) error {
	if err := w.WriteVarInt(array.Size()); err != nil {
		return err
	}
	if err := w.WriteVarInt(array.MaxValue()); err != nil {
		return err
	}
	_, err := w.out.Write(array.Bytes())
	return err
}

// BeginCompression starts a compressed section: everything written before
// the matching EndCompression is buffered and emitted as one zstd frame.
// Sections do not nest.
func (w *Writer) BeginCompression() error {
	if w.dest != nil {
		return ErrNestedCompression
	}
	w.dest = w.out
	w.buf.Reset()
	w.out = &w.buf
	return nil
}

// EndCompression closes the open compressed section and writes the frame:
// uncompressed length, compressed length, then the compressed bytes.
func (w *Writer) EndCompression() error {
	if w.dest == nil {
		return ErrNotCompressing
	}

	uncompressed := w.buf.Bytes()
	compressed := w.encoder.EncodeAll(uncompressed, nil)

	w.out = w.dest
	w.dest = nil

	if err := w.WriteVarInt(len(uncompressed)); err != nil {
		return err
	}
	if err := w.WriteVarInt(len(compressed)); err != nil {
		return err
	}
	_, err := w.out.Write(compressed)
	return err
}

// WriteList writes a count-prefixed list of NBT compounds. Non-empty lists
// are wrapped in a single compressed section; empty lists are just the zero
// count.
func (w *Writer) WriteList(list []Compound) error {
	if err := w.WriteVarInt(len(list)); err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}

	if err := w.BeginCompression(); err != nil {
		return err
	}
	for _, element := range list {
		if err := writeCompound(w.out, element); err != nil {
			return err
		}
	}
	return w.EndCompression()
}

// WriteChunk writes one chunk payload: data version, height and minimum
// altitude in sections, the non-empty-section mask, and then the palette and
// per-section storage. An all-empty chunk collapses to three zero bytes.
func (w *Writer) WriteChunk(chunk *Chunk) error {
	if chunk.IsEmpty() {
		// Height 0 means no sections follow; version and altitude are
		// dropped with it.
		_, err := w.out.Write([]byte{0, 0, 0})
		return err
	}

	chunkHeight := chunk.Height() / sectionHeight
	minAltitude := chunk.MinAltitude()

	nonEmpty := bitset.New(uint(chunkHeight))
	var storages []*BitCompactIntArray
	for i := 0; i < chunkHeight; i++ {
		section, ok := chunk.Section(i + minAltitude)
		if !ok || section.IsEmpty() {
			continue
		}
		nonEmpty.Set(uint(i))

		storage := CompactFromIntArray(section.Storage())
		if section.Palette() != chunk.Palette() {
			if err := chunk.Palette().AddAll(section.Palette()).UpgradeArray(storage); err != nil {
				return err
			}
		}
		storages = append(storages, storage)
	}

	if err := w.WriteVarInt(chunk.DataVersion()); err != nil {
		return err
	}
	if err := w.WriteVarInt(chunkHeight); err != nil {
		return err
	}
	if err := w.WriteVarInt(minAltitude); err != nil {
		return err
	}
	if err := w.WriteBitSet(nonEmpty, chunkHeight); err != nil {
		return err
	}

	if nonEmpty.Any() {
		if err := w.WritePalette(chunk.Palette()); err != nil {
			return err
		}
		for _, storage := range storages {
			if err := w.WriteCompactArray(storage); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteLevel writes the whole container: header, extents, chunk mask, the
// compressed chunk stream, both NBT lists, and the optional custom storage.
func (w *Writer) WriteLevel(level *Level) error {
	width := level.Width()
	depth := level.Depth()
	if width > 0xFF || depth > 0xFF {
		return fmt.Errorf("%w: level is %dx%d chunks; limit is 255x255", ErrChunkOutOfBounds, width, depth)
	}

	minX := level.LowestChunkX()
	minZ := level.LowestChunkZ()

	// Chunk mask: bit (dx*depth + dz), X-major. Every stored chunk is
	// marked; all-air chunks still round-trip through the three-byte form.
	mask := bitset.New(uint(width * depth))
	for _, chunk := range level.Chunks() {
		loc := chunk.Location()
		mask.Set(uint((loc.X-minX)*depth + (loc.Z - minZ)))
	}

	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.writeByte(byte(width)); err != nil {
		return err
	}
	if err := w.writeByte(byte(depth)); err != nil {
		return err
	}
	if err := binary.Write(w.out, binary.LittleEndian, int16(minX)); err != nil {
		return err
	}
	if err := binary.Write(w.out, binary.LittleEndian, int16(minZ)); err != nil {
		return err
	}
	if err := w.WriteBitSet(mask, width*depth); err != nil {
		return err
	}

	if err := w.BeginCompression(); err != nil {
		return err
	}
	for dx := 0; dx < width; dx++ {
		for dz := 0; dz < depth; dz++ {
			if !mask.Test(uint(dx*depth + dz)) {
				continue
			}
			chunk, _ := level.ChunkAt(dx+minX, dz+minZ)
			if err := w.WriteChunk(chunk); err != nil {
				return err
			}
		}
	}
	if err := w.EndCompression(); err != nil {
		return err
	}

	if err := w.WriteList(level.BlockEntities()); err != nil {
		return err
	}
	if err := w.WriteList(level.Entities()); err != nil {
		return err
	}

	custom := level.Custom()
	if len(custom) == 0 {
		return w.writeByte(0)
	}
	if err := w.writeByte(1); err != nil {
		return err
	}
	if err := w.BeginCompression(); err != nil {
		return err
	}
	if err := writeCompound(w.out, custom); err != nil {
		return err
	}
	return w.EndCompression()
}
