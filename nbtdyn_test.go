package ooze

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompoundGetters(t *testing.T) {
	c := Compound{
		"byte":   int8(5),
		"short":  int16(300),
		"int":    int32(70000),
		"long":   int64(1 << 40),
		"name":   "ooze",
		"nested": map[string]any{"inner": int32(1)},
		"bytes":  []byte{1, 2, 3},
		"longs":  []int64{4, 5},
	}

	assert.Equal(t, 5, c.GetInt("byte", -1))
	assert.Equal(t, 300, c.GetInt("short", -1))
	assert.Equal(t, 70000, c.GetInt("int", -1))
	assert.Equal(t, -1, c.GetInt("missing", -1))
	assert.Equal(t, -1, c.GetInt("name", -1), "non-numeric values use the default")

	assert.Equal(t, "ooze", c.GetString("name", ""))
	assert.Equal(t, "fallback", c.GetString("missing", "fallback"))

	nested, ok := c.GetCompound("nested")
	require.True(t, ok)
	assert.Equal(t, 1, nested.GetInt("inner", -1))

	raw, ok := c.GetByteArray("bytes")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, raw)

	longs, ok := c.GetLongArray("longs")
	require.True(t, ok)
	assert.Equal(t, []int64{4, 5}, longs)

	assert.True(t, c.Contains("byte"))
	assert.False(t, c.Contains("nope"))
	assert.Equal(t, 8, c.Size())
}

func TestCompoundNBTRoundTrip(t *testing.T) {
	c := Compound{
		"name":  "hello",
		"count": int32(3),
		"inner": map[string]any{"flag": int8(1)},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCompound(&buf, c))

	decoded, err := readCompound(&buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded.GetString("name", ""))
	assert.Equal(t, 3, decoded.GetInt("count", -1))

	inner, ok := decoded.GetCompound("inner")
	require.True(t, ok)
	assert.Equal(t, 1, inner.GetInt("flag", -1))
}

func TestCanonicalKeyOrderIndependent(t *testing.T) {
	a := canonicalKey(Compound{"x": "1", "y": "2"})
	b := canonicalKey(Compound{"y": "2", "x": "1"})
	assert.Equal(t, a, b)

	assert.NotEqual(t,
		canonicalKey(Compound{"x": "1"}),
		canonicalKey(Compound{"x": "2"}))
}

func TestCompoundsOnly(t *testing.T) {
	assert.True(t, compoundsOnly(nil))
	assert.True(t, compoundsOnly([]any{Compound{}, map[string]any{}}))
	assert.False(t, compoundsOnly([]any{"text"}))
}
