package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryCRUD(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	_, err := r.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	p := &Profile{UID: "u1", Email: "a@example.com", DisplayName: "Alice"}
	require.NoError(t, r.Create(ctx, p))
	require.False(t, p.CreatedAt.IsZero())

	got, err := r.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Alice", got.DisplayName)

	// returned values are copies
	got.DisplayName = "mutated"
	again, _ := r.Get(ctx, "u1")
	require.Equal(t, "Alice", again.DisplayName)

	name := "Bob"
	login := time.Now().UTC()
	require.NoError(t, r.Update(ctx, "u1", Fields{DisplayName: &name, LastLoginAt: &login}))
	got, err = r.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Bob", got.DisplayName)
	require.Equal(t, "a@example.com", got.Email)
	require.True(t, got.LastLoginAt.Equal(login))

	require.ErrorIs(t, r.Update(ctx, "nobody", Fields{DisplayName: &name}), ErrNotFound)
}

func TestFieldsEmpty(t *testing.T) {
	require.True(t, Fields{}.Empty())
	v := true
	require.False(t, Fields{Active: &v}.Empty())
}
