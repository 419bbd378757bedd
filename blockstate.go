package ooze

import (
	"errors"
	"fmt"
)

// BlockStateDefault is the fallback state (minecraft:air, no properties)
// substituted whenever a lookup cannot resolve.
var BlockStateDefault = BlockState{
	name: ResourceLocation{Namespace: DefaultNamespace, Path: "air"},
}

var ErrInvalidBlockState = errors.New("ooze: invalid block state")

// BlockState is a block's type plus any additional properties (direction,
// power, etc). Treat it as immutable once constructed; states are shared
// between palettes.
type BlockState struct {
	name       ResourceLocation
	properties Compound // nil means no properties; an empty compound is distinct
}

func NewBlockState(name ResourceLocation, properties Compound) BlockState {
	return BlockState{name: name, properties: properties}
}

// BlockStateFromNBT builds a state from its serialized form:
//
//	{Name: String, Properties: {...}?}
func BlockStateFromNBT(data Compound) (BlockState, error) {
	raw := data.GetString("Name", "")
	if raw == "" {
		return BlockState{}, fmt.Errorf("%w: missing Name", ErrInvalidBlockState)
	}
	name, err := ParseResourceLocation(raw)
	if err != nil {
		return BlockState{}, err
	}
	props, _ := data.GetCompound("Properties")
	return BlockState{name: name, properties: props}, nil
}

func (s BlockState) Name() ResourceLocation { return s.name }

func (s BlockState) Properties() Compound { return s.properties }

func (s BlockState) HasProperties() bool { return s.properties != nil }

// IsAir reports whether the state is one of the vanilla air blocks.
func (s BlockState) IsAir() bool {
	if s.name.Namespace != DefaultNamespace {
		return false
	}
	switch s.name.Path {
	case "air", "cave_air", "void_air":
		return true
	}
	return false
}

// Equal compares both parts structurally. A state with no properties is not
// equal to one with an empty property compound.
func (s BlockState) Equal(other BlockState) bool {
	return s.key() == other.key()
}

// ToNBT returns the serialized form accepted by BlockStateFromNBT.
func (s BlockState) ToNBT() Compound {
	data := Compound{"Name": s.name.String()}
	if s.properties != nil {
		data["Properties"] = map[string]any(s.properties)
	}
	return data
}

func (s BlockState) String() string {
	return s.key()
}

// key is a deterministic identity string; palettes use it to deduplicate
// states in map lookups.
func (s BlockState) key() string {
	if s.properties == nil {
		return s.name.String()
	}
	return s.name.String() + canonicalKey(s.properties)
}
