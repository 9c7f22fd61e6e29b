package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByID(t *testing.T) {
	codec, ok := ByID(IDGob)
	require.True(t, ok)
	assert.Equal(t, "gob", codec.Name())

	codec, ok = ByID(IDJSON)
	require.True(t, ok)
	assert.Equal(t, "json", codec.Name())

	_, ok = ByID(0xFF)
	assert.False(t, ok)
}

type doc struct {
	Version int32
	Values  []any
}

// gob 必须在接口槽里保住具体的 Go 类型，包括整型宽度。
func TestGobInterfaceFidelity(t *testing.T) {
	in := &doc{
		Version: 1,
		Values:  []any{int(1), int64(2), uint64(3), float64(4.5), "s", true},
	}

	data, err := GobCodec{}.Marshal(in)
	require.NoError(t, err)

	out := &doc{}
	require.NoError(t, GobCodec{}.Unmarshal(data, out))
	assert.Equal(t, in, out)
}

// JSON 面向互操作：结构保持，数字以 json.Number 透出。
func TestJSONRoundTrip(t *testing.T) {
	in := &doc{Version: 1, Values: []any{"a", "b"}}

	data, err := JSONCodec{}.Marshal(in)
	require.NoError(t, err)

	out := &doc{}
	require.NoError(t, JSONCodec{}.Unmarshal(data, out))
	assert.Equal(t, in, out)
}
