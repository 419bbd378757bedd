package ooze

import "errors"

// PaletteUpgrader records block-state ID changes caused by a palette
// mutation (merge, removal, extraction) so that dependent storage arrays can
// be rewritten to match. It is a two-phase type: RegisterChange is only
// legal before Lock, Upgrade and UpgradeArray only after.
type PaletteUpgrader struct {
	oldIDs []int
	newIDs []int

	locked bool

	// Set at lock time when every registered pair maps an ID to itself;
	// lets Upgrade and UpgradeArray skip all work.
	noChanges bool
}

// noopUpgrader is shared by every palette operation that changed nothing.
var noopUpgrader = func() *PaletteUpgrader {
	u := NewPaletteUpgrader(0)
	_ = u.Lock()
	return u
}()

// NewPaletteUpgrader creates an unlocked upgrader with capacity for size
// changes.
func NewPaletteUpgrader(size int) *PaletteUpgrader {
	if size < 0 {
		panic(indexOutOfBounds)
	}
	return &PaletteUpgrader{
		oldIDs: make([]int, 0, size),
		newIDs: make([]int, 0, size),
	}
}

// RegisterChange maps oldID to newID. Negative IDs panic; registering on a
// locked upgrader fails.
func (u *PaletteUpgrader) RegisterChange(oldID, newID int) error {
	if u.locked {
		return ErrUpgraderLocked
	}
	if oldID < 0 || newID < 0 {
		panic(indexOutOfBounds)
	}
	u.oldIDs = append(u.oldIDs, oldID)
	u.newIDs = append(u.newIDs, newID)
	return nil
}

// Lock freezes the table. Locking twice is an error.
func (u *PaletteUpgrader) Lock() error {
	if u.locked {
		return ErrUpgraderLocked
	}
	u.noChanges = true
	for i := range u.oldIDs {
		if u.oldIDs[i] != u.newIDs[i] {
			u.noChanges = false
			break
		}
	}
	u.locked = true
	return nil
}

// Upgrade returns the new ID for oldID, or oldID itself when no change was
// registered for it. Panics if the upgrader has not been locked.
func (u *PaletteUpgrader) Upgrade(oldID int) int {
	if !u.locked {
		panic(ErrUpgraderNotLocked)
	}
	if u.noChanges {
		return oldID
	}
	for i, old := range u.oldIDs {
		if old == oldID {
			return u.newIDs[i]
		}
	}
	return oldID
}

// UpgradeArray rewrites every cell of array through Upgrade. The array is
// widened first when the mapping can produce IDs above its current maximum,
// and narrowed afterwards when the mapping lowered the ceiling.
func (u *PaletteUpgrader) UpgradeArray(array *BitCompactIntArray) error {
	if !u.locked {
		return ErrUpgraderNotLocked
	}
	if u.noChanges {
		return nil
	}

	highestID := -1
	for _, id := range u.newIDs {
		if id > highestID {
			highestID = id
		}
	}

	currentMax := array.MaxValue()
	if highestID > currentMax {
		if err := array.SetMaxValue(highestID); err != nil {
			return err
		}
	}

	array.ForEach(func(i, v int) { array.Set(i, u.Upgrade(v)) })

	// Downsize when the remapping lowered the ceiling, but only if no
	// remaining value needs the old range.
	if u.Upgrade(currentMax) < currentMax {
		if err := array.SetMaxValue(highestID); err != nil && !errors.Is(err, ErrShrinkLosesData) {
			return err
		}
	}
	return nil
}
