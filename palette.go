package ooze

import (
	"github.com/willf/bitset"
)

// BlockPalette is an ordered set of unique block states identified by dense
// integer IDs starting at 0. The entry at ID 0 is the palette's default
// state and can never be removed. Combined with an IntArray of IDs it gives
// a compact encoding for large block volumes.
type BlockPalette struct {
	states []BlockState
	ids    map[string]int // canonical state key -> ID

	defaultState BlockState
}

// NewBlockPalette creates a palette whose default state is
// BlockStateDefault.
func NewBlockPalette() *BlockPalette {
	return NewBlockPaletteWithDefault(BlockStateDefault)
}

// NewBlockPaletteWithDefault creates a palette seeded with defaultState at
// ID 0.
func NewBlockPaletteWithDefault(defaultState BlockState) *BlockPalette {
	p := &BlockPalette{
		ids:          make(map[string]int),
		defaultState: defaultState,
	}
	p.states = append(p.states, defaultState)
	p.ids[defaultState.key()] = 0
	return p
}

func (p *BlockPalette) DefaultState() BlockState { return p.defaultState }

func (p *BlockPalette) Size() int { return len(p.states) }

// State returns the state registered under id. ok is false when the ID is
// not in the palette; callers usually substitute the default state.
func (p *BlockPalette) State(id int) (state BlockState, ok bool) {
	if id < 0 || id >= len(p.states) {
		return BlockState{}, false
	}
	return p.states[id], true
}

// StateOrDefault resolves id, falling back to the palette's default state.
func (p *BlockPalette) StateOrDefault(id int) BlockState {
	if s, ok := p.State(id); ok {
		return s
	}
	return p.defaultState
}

// StateID returns the ID for state, or -1 if the palette does not contain
// it.
func (p *BlockPalette) StateID(state BlockState) int {
	if id, ok := p.ids[state.key()]; ok {
		return id
	}
	return -1
}

// AddState registers state if it is not already present, and returns its ID
// either way.
func (p *BlockPalette) AddState(state BlockState) int {
	key := state.key()
	if id, ok := p.ids[key]; ok {
		return id
	}
	id := len(p.states)
	p.states = append(p.states, state)
	p.ids[key] = id
	return id
}

// ForEach visits every state in ID order.
func (p *BlockPalette) ForEach(action func(id int, state BlockState)) {
	for id, state := range p.states {
		action(id, state)
	}
}

// RemoveState removes the entry at id, shifting every higher ID down by
// one. The returned upgrader records those shifts. Removing ID 0 fails; an
// out-of-range ID is a no-op.
func (p *BlockPalette) RemoveState(id int) (*PaletteUpgrader, error) {
	if id == 0 {
		return nil, ErrRemoveDefaultState
	}
	if id < 0 || id >= len(p.states) {
		return noopUpgrader, nil
	}

	delete(p.ids, p.states[id].key())
	p.states = append(p.states[:id], p.states[id+1:]...)

	upgrader := NewPaletteUpgrader(len(p.states) - id)
	for j := id; j < len(p.states); j++ {
		p.ids[p.states[j].key()] = j
		_ = upgrader.RegisterChange(j+1, j)
	}
	_ = upgrader.Lock()
	return upgrader, nil
}

// AddAll merges every state of other into this palette. The returned
// upgrader translates other's IDs into this palette's, for any storage tied
// to other.
func (p *BlockPalette) AddAll(other *BlockPalette) *PaletteUpgrader {
	upgrader := NewPaletteUpgrader(other.Size())
	other.ForEach(func(oldID int, state BlockState) {
		_ = upgrader.RegisterChange(oldID, p.AddState(state))
	})
	_ = upgrader.Lock()
	return upgrader
}

// Extract builds a new palette containing only the states that data
// actually references (plus this palette's default, always at ID 0), and
// rewrites data in place to use the new IDs.
func (p *BlockPalette) Extract(data *BitCompactIntArray) (*BlockPalette, error) {
	used := bitset.New(uint(len(p.states)))
	data.ForEach(func(_, id int) {
		if id < len(p.states) {
			used.Set(uint(id))
		}
	})

	extracted := NewBlockPaletteWithDefault(p.defaultState)
	upgrader := NewPaletteUpgrader(int(used.Count()))
	for id, ok := used.NextSet(0); ok; id, ok = used.NextSet(id + 1) {
		state, _ := p.State(int(id))
		_ = upgrader.RegisterChange(int(id), extracted.AddState(state))
	}
	_ = upgrader.Lock()

	if err := upgrader.UpgradeArray(data); err != nil {
		return nil, err
	}
	return extracted, nil
}
