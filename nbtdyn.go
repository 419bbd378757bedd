package ooze

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Tnze/go-mc/nbt"
)

// Compound is a dynamic NBT compound as decoded by go-mc: values are Go
// primitives, []any for lists, []byte / []int32 / []int64 for the array
// tags, and nested map[string]any for inner compounds.
type Compound map[string]any

func (c Compound) Contains(name string) bool {
	_, ok := c[name]
	return ok
}

func (c Compound) Size() int {
	return len(c)
}

// GetInt returns the named value as an int if it holds any integer tag,
// otherwise def.
func (c Compound) GetInt(name string, def int) int {
	if v, ok := asInt(c[name]); ok {
		return int(v)
	}
	return def
}

func (c Compound) GetString(name, def string) string {
	if s, ok := c[name].(string); ok {
		return s
	}
	return def
}

func (c Compound) GetCompound(name string) (Compound, bool) {
	return asCompound(c[name])
}

func (c Compound) GetList(name string) ([]any, bool) {
	return asList(c[name])
}

func (c Compound) GetByteArray(name string) ([]byte, bool) {
	switch v := c[name].(type) {
	case []byte:
		return v, true
	case []int8:
		out := make([]byte, len(v))
		for i, b := range v {
			out[i] = byte(b)
		}
		return out, true
	}
	return nil, false
}

func (c Compound) GetLongArray(name string) ([]int64, bool) {
	switch v := c[name].(type) {
	case []int64:
		return v, true
	case []uint64:
		out := make([]int64, len(v))
		for i, l := range v {
			out[i] = int64(l)
		}
		return out, true
	}
	return nil, false
}

func asCompound(v any) (Compound, bool) {
	switch m := v.(type) {
	case Compound:
		return m, true
	case map[string]any:
		return Compound(m), true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []Compound:
		return generalize(l), true
	case []map[string]any:
		return generalize(l), true
	case []float64:
		return generalize(l), true
	case []float32:
		return generalize(l), true
	case []string:
		return generalize(l), true
	}
	return nil, false
}

func generalize[T any](l []T) []any {
	out := make([]any, len(l))
	for i, e := range l {
		out[i] = e
	}
	return out
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case uint8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

// compoundsOnly reports whether every element of a list is a compound. Empty
// lists pass.
func compoundsOnly(list []any) bool {
	for _, e := range list {
		if _, ok := asCompound(e); !ok {
			return false
		}
	}
	return true
}

// writeCompound serializes a compound as an unnamed (empty-name) tag, the
// form used for palette properties, container list elements, and the custom
// storage blob.
func writeCompound(w io.Writer, c Compound) error {
	return nbt.NewEncoder(w).Encode(c, "")
}

// readCompound reads one unnamed compound tag from the stream.
func readCompound(r io.Reader) (Compound, error) {
	var c Compound
	if _, err := nbt.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	return c, nil
}

// canonicalKey renders an NBT value into a deterministic string, with map
// keys sorted, so structurally equal trees compare equal. Used to key block
// states in palette lookup maps.
func canonicalKey(v any) string {
	var b strings.Builder
	appendCanonical(&b, v)
	return b.String()
}

func appendCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case Compound:
		appendCanonical(b, map[string]any(t))
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, "%q:", k)
			appendCanonical(b, t[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			appendCanonical(b, e)
		}
		b.WriteByte(']')
	case string:
		fmt.Fprintf(b, "%q", t)
	default:
		fmt.Fprintf(b, "%T(%v)", t, t)
	}
}
