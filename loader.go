package ooze

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ChunkSource supplies raw chunk NBT by chunk coordinates. ok is false when
// the source simply has no such chunk; errors are reserved for unreadable
// or corrupt data.
type ChunkSource interface {
	LoadChunk(chunkX, chunkZ int) (data Compound, ok bool, err error)
}

// RegionDirectoryLoader loads chunks out of a Minecraft world's region
// directory, keeping every region file it touches open until Close. Not
// safe to share across goroutines without external synchronization.
type RegionDirectoryLoader struct {
	dir     string
	regions map[Location2D]*RegionFile
}

func NewRegionDirectoryLoader(dir string) (*RegionDirectoryLoader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("region: %s is not a directory", dir)
	}
	return &RegionDirectoryLoader{
		dir:     dir,
		regions: make(map[Location2D]*RegionFile),
	}, nil
}

// LoadChunk reads the NBT for the chunk at the given coordinates, opening
// (and memoizing) its region file on first use. Chunks with no region file
// fall back to a free-standing external chunk file.
func (l *RegionDirectoryLoader) LoadChunk(chunkX, chunkZ int) (Compound, bool, error) {
	regionLoc := Location2D{
		X: floorDiv(chunkX, 32),
		Z: floorDiv(chunkZ, 32),
	}

	if region, ok := l.regions[regionLoc]; ok {
		return region.ReadChunkData(chunkX, chunkZ)
	}

	region, err := l.openRegion(regionLoc)
	if err != nil {
		return nil, false, err
	}
	if region != nil {
		return region.ReadChunkData(chunkX, chunkZ)
	}
	return l.loadOversized(chunkX, chunkZ)
}

// openRegion opens r.X.Z.mca, falling back to the pre-anvil .mcr name.
// A missing region is not an error; nil is returned instead.
func (l *RegionDirectoryLoader) openRegion(regionLoc Location2D) (*RegionFile, error) {
	for _, ext := range []string{"mca", "mcr"} {
		path := filepath.Join(l.dir, regionFileName(regionLoc.X, regionLoc.Z, ext))
		region, err := OpenRegionFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		l.regions[regionLoc] = region
		return region, nil
	}
	return nil, nil
}

// loadOversized reads a chunk whose data lives only in a c.<x>.<z>.mcc
// file, with no owning region file to name its compression. Gzip is
// detected by its magic bytes; anything else is taken as raw NBT.
func (l *RegionDirectoryLoader) loadOversized(chunkX, chunkZ int) (Compound, bool, error) {
	path := filepath.Join(l.dir, externalChunkName(chunkX, chunkZ))
	payload, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	compression := regionCompressionNone
	if len(payload) >= 2 && payload[0] == 0x1F && payload[1] == 0x8B {
		compression = regionCompressionGzip
	}
	data, err := decodeChunkNBT(bytes.NewReader(payload), compression)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Close releases every cached region handle. All handles are closed even
// when some fail; the first error is returned.
func (l *RegionDirectoryLoader) Close() error {
	var firstErr error
	for _, region := range l.regions {
		if err := region.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.regions = make(map[Location2D]*RegionFile)
	return firstErr
}
