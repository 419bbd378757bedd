// Package ooze reads and writes the Ooze world container format, a compact
// on-disk encoding for Minecraft-style voxel worlds, and converts between it
// and the region/anvil format used by Minecraft itself.
//
// The pipeline for an import looks like:
//
//	loader, err := ooze.NewRegionDirectoryLoader("world/region")
//	if err != nil { ... }
//	defer loader.Close()
//
//	level, err := ooze.NewLevelBuilder(loader).AddRect(0, 0, 16, 16).Build()
//	if err != nil { ... }
//
//	f, _ := os.Create("world.ooze")
//	err = ooze.WriteLevel(level, f)
//
// Export reverses it with ReadLevel. Block storage is palette-indexed: each
// chunk owns a BlockPalette of unique block states, and every 16x16x16
// section stores per-block palette IDs in a bit-packed BitCompactIntArray.
// Palette mutations (merges, removals, extraction) hand back a
// PaletteUpgrader that rewrites dependent storage so IDs stay consistent.
//
// None of the types in this package are safe for concurrent mutation; see
// the individual type docs for the sharing rules.
package ooze
