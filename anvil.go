package ooze

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Region files are divided into 4KiB sectors; the first sector is a
// 1024-entry chunk location table.
const (
	regionSectorSize = 4096
	regionMaxChunks  = 1024
)

var ErrNoChunk = errors.New("region: chunk not found")

// Compression tags used in region chunk headers. Bit 7 marks an external
// (oversized) chunk stored in its own .mcc file.
const (
	regionCompressionGzip byte = 1
	regionCompressionZlib byte = 2
	regionCompressionNone byte = 3

	regionExternalBit byte = 0x80
)

// RegionFile reads chunk NBT out of a Minecraft region/anvil file. It is
// not safe for concurrent use; guard with a mutex if shared.
type RegionFile struct {
	source    io.ReadSeeker
	locations []uint32 // sectorOffset<<8 | sectorCount, indexed (x&31) | (z&31)<<5

	// Directory holding the region file, searched for external .mcc chunks.
	dir  string
	name string
}

// OpenRegionFile opens the region file at path and caches its location
// table. The caller owns the returned file and must Close it.
func OpenRegionFile(path string) (*RegionFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	region, err := NewRegionFile(file, filepath.Dir(path))
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return region, nil
}

// NewRegionFile wraps an open region stream. Ownership of source transfers
// to the returned file. dir is where external chunk files are looked up.
func NewRegionFile(source io.ReadSeeker, dir string) (*RegionFile, error) {
	region := &RegionFile{
		source:    source,
		locations: make([]uint32, regionMaxChunks),
		dir:       dir,
	}
	if file, ok := source.(*os.File); ok {
		region.name = file.Name()
	}

	size, err := source.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if size%regionSectorSize != 0 {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrInvalidRegion, region.name, size)
	}

	if err := region.readLocationTable(); err != nil {
		return nil, err
	}
	return region, nil
}

func (r *RegionFile) readLocationTable() error {
	if _, err := r.source.Seek(0, io.SeekStart); err != nil {
		return err
	}

	raw := make([]byte, regionSectorSize)
	if _, err := io.ReadFull(r.source, raw); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(raw), binary.BigEndian, r.locations)
}

// HasChunk reports whether the location table has data for the chunk.
// Coordinates may be absolute; only the low 5 bits select the slot.
func (r *RegionFile) HasChunk(chunkX, chunkZ int) bool {
	return r.locations[locationIndex(chunkX, chunkZ)]&0xFF != 0
}

// ReadChunkData returns the chunk's NBT. ok is false when the region holds
// no data for the chunk, or when its external file is missing.
func (r *RegionFile) ReadChunkData(chunkX, chunkZ int) (data Compound, ok bool, err error) {
	location := r.locations[locationIndex(chunkX, chunkZ)]
	sectorOffset := location >> 8
	sectorCount := location & 0xFF
	if sectorCount == 0 {
		return nil, false, nil
	}

	if _, err = r.source.Seek(int64(sectorOffset)*regionSectorSize, io.SeekStart); err != nil {
		return nil, false, err
	}
	sectors := make([]byte, int(sectorCount)*regionSectorSize)
	if _, err = io.ReadFull(r.source, sectors); err != nil {
		return nil, false, err
	}

	length := int(binary.BigEndian.Uint32(sectors))
	compression := sectors[4]
	if length < 1 || length > len(sectors)-4 {
		return nil, false, fmt.Errorf("%w: chunk (%d, %d) length %d in %s",
			ErrInvalidChunkData, chunkX, chunkZ, length, r.name)
	}

	if compression&regionExternalBit != 0 {
		return r.readExternalChunk(chunkX, chunkZ, compression&^regionExternalBit)
	}

	// Length counts the compression byte.
	payload := sectors[5 : 4+length]
	data, err = decodeChunkNBT(bytes.NewReader(payload), compression)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// readExternalChunk loads an oversized chunk from its c.<x>.<z>.mcc file
// beside the region file.
func (r *RegionFile) readExternalChunk(chunkX, chunkZ int, compression byte) (Compound, bool, error) {
	payload, err := os.ReadFile(filepath.Join(r.dir, externalChunkName(chunkX, chunkZ)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	data, err := decodeChunkNBT(bytes.NewReader(payload), compression)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *RegionFile) Close() error {
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// decodeChunkNBT inflates a chunk payload per its compression tag and
// decodes the root compound.
func decodeChunkNBT(payload io.Reader, compression byte) (Compound, error) {
	var err error
	switch compression {
	case regionCompressionGzip:
		if payload, err = gzip.NewReader(payload); err != nil {
			return nil, err
		}
	case regionCompressionZlib:
		if payload, err = zlib.NewReader(payload); err != nil {
			return nil, err
		}
	case regionCompressionNone:
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrInvalidCompression, compression)
	}

	var data Compound
	if _, err := nbt.NewDecoder(payload).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func locationIndex(chunkX, chunkZ int) int {
	return (chunkX & 31) | (chunkZ&31)<<5
}

func regionFileName(regionX, regionZ int, ext string) string {
	return fmt.Sprintf("r.%d.%d.%s", regionX, regionZ, ext)
}

func externalChunkName(chunkX, chunkZ int) string {
	return fmt.Sprintf("c.%d.%d.mcc", chunkX, chunkZ)
}
