package remotecache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryClient(), nil, nil)

	a.Set(ctx, "k1", 42.0, 0)
	v, ok, err := Get[float64](ctx, a, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)
}

func TestAdapterGetMissing(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryClient(), nil, nil)

	_, ok, err := Get[string](ctx, a, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapterGetManyPartitionsFoundAndMissing(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryClient(), nil, nil)

	a.Set(ctx, "found", "value", 0)
	results, err := a.GetMany(ctx, []string{"found", "missing"})
	require.NoError(t, err)
	assert.Contains(t, results, "found")
	assert.NotContains(t, results, "missing")
}

func TestAdapterUpdateIndexAndClearIndex(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryClient(), nil, nil)

	a.UpdateIndex(ctx, "key-a", "idx", 0, 100)
	a.UpdateIndex(ctx, "key-b", "idx", 0, 200)
	a.Set(ctx, "key-a", "a", 0)
	a.Set(ctx, "key-b", "b", 0)

	err := a.ClearIndex(ctx, "idx", 150, negInf)
	require.NoError(t, err)

	_, ok, err := Get[string](ctx, a, "key-a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = Get[string](ctx, a, "key-b")
	require.NoError(t, err)
	assert.True(t, ok)
}
