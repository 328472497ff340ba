package remotecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeIntoAnyPreservesConcreteType is the type-level half of spec.md
// §4 Testable Property 4 (idempotence): decoding into an interface{}
// destination must hand back the original concrete type, not
// encoding/json's default float64/map[string]interface{} coercion.
func TestDecodeIntoAnyPreservesConcreteType(t *testing.T) {
	cases := []any{
		int32(7),
		int64(9000000000),
		"a string",
		true,
		3.5,
		time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}

	for _, want := range cases {
		raw, err := Encode(want)
		require.NoError(t, err)

		var got any
		require.NoError(t, Decode(raw, &got))
		assert.Equal(t, want, got)
		assert.IsType(t, want, got)
	}
}

func TestDecodeIntoConcreteTypeIgnoresTag(t *testing.T) {
	raw, err := Encode(int32(42))
	require.NoError(t, err)

	var v int64
	require.NoError(t, Decode(raw, &v))
	assert.Equal(t, int64(42), v)
}
