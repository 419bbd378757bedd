package ooze

import "errors"

// Format errors: the stream cannot be in a valid Ooze (or region) encoding.
var (
	ErrBadMagic           = errors.New("ooze: bad magic number")
	ErrUnsupportedVersion = errors.New("ooze: unsupported format version")
	ErrVarIntTooBig       = errors.New("ooze: VarInt exceeds 5 bytes")
	ErrInvalidCompression = errors.New("region: invalid compression format")
)

// Corruption errors: structurally valid framing around impossible contents.
var (
	ErrLengthMismatch   = errors.New("ooze: decoded length mismatch")
	ErrNegativeLength   = errors.New("ooze: negative length")
	ErrInvalidRegion    = errors.New("region: file size is not a multiple of 4096")
	ErrInvalidChunkData = errors.New("region: chunk contains corrupted block data")
)

// State errors: an operation that would violate an invariant of the type it
// was called on.
var (
	ErrUpgraderLocked     = errors.New("ooze: upgrader is locked")
	ErrUpgraderNotLocked  = errors.New("ooze: upgrader must be locked before upgrading")
	ErrShrinkLosesData    = errors.New("ooze: array contains values above the new maximum")
	ErrDuplicateAltitude  = errors.New("ooze: section altitude already occupied")
	ErrRemoveDefaultState = errors.New("ooze: cannot remove a palette's default state")
	ErrNestedCompression  = errors.New("ooze: compressed section already in progress")
	ErrNotCompressing     = errors.New("ooze: no compressed section in progress")
	ErrChunkOutOfBounds   = errors.New("ooze: chunk location is out of level bounds")
)

// Bounds errors surfaced by the voxel model (storage primitives panic
// instead; see IntArray).
var ErrCoordOutOfBounds = errors.New("ooze: block coordinates out of bounds")

// ErrNotCompoundList is returned when a list that must hold NBT compounds
// holds something else.
var ErrNotCompoundList = errors.New("ooze: list elements must be NBT compounds")
