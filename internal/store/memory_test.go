package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, m.Delete(ctx, "a"))
	v, err = m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "a", []byte("abc")))

	v, _ := m.Get(ctx, "a")
	v[0] = 'z'

	again, _ := m.Get(ctx, "a")
	assert.Equal(t, "abc", string(again))
}

func TestMemory_Quota(t *testing.T) {
	m := NewMemory(WithQuota(10))
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("12345")))
	require.NoError(t, m.Set(ctx, "b", []byte("12345")))
	assert.ErrorIs(t, m.Set(ctx, "c", []byte("1")), ErrQuotaExceeded)

	// Overwriting a key only counts the new value.
	require.NoError(t, m.Set(ctx, "a", []byte("123")))
	require.NoError(t, m.Set(ctx, "c", []byte("12")))
}

func TestMemory_Keys(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, k := range []string{"x2", "x1", "y"} {
		require.NoError(t, m.Set(ctx, k, []byte("0")))
	}

	keys, err := m.Keys(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2"}, keys)
}
