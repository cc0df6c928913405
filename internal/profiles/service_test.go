package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepo struct {
	*MemoryRepository
	updateErr error
}

func (f *failingRepo) Update(ctx context.Context, uid string, fl Fields) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.MemoryRepository.Update(ctx, uid, fl)
}

func TestCreateRequiresUID(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.Create(context.Background(), "", "a@example.com", "A")
	require.Error(t, err)
}

func TestEnsureCreatesDefault(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.Ensure(ctx, "u1", "a@example.com", "Alice", true)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.True(t, p.EmailVerified)
	assert.True(t, p.Active)

	stored, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", stored.Email)
}

func TestEnsureMirrorsVerifiedFlag(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	_, err := svc.Create(ctx, "u1", "a@example.com", "Alice")
	require.NoError(t, err)

	p, err := svc.Ensure(ctx, "u1", "a@example.com", "Alice", true)
	require.NoError(t, err)
	assert.True(t, p.EmailVerified)
	stored, _ := repo.Get(ctx, "u1")
	assert.True(t, stored.EmailVerified)
}

func TestEnsureToleratesMirrorFailure(t *testing.T) {
	mem := NewMemoryRepository()
	svc := NewService(&failingRepo{MemoryRepository: mem, updateErr: errors.New("down")})
	ctx := context.Background()
	require.NoError(t, mem.Create(ctx, &Profile{UID: "u1"}))

	p, err := svc.Ensure(ctx, "u1", "", "", true)
	require.NoError(t, err)
	assert.False(t, p.EmailVerified)
}

func TestRecordLoginAndLogout(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	_, err := svc.Create(ctx, "u1", "a@example.com", "Alice")
	require.NoError(t, err)

	require.NoError(t, svc.RecordLogin(ctx, "u1"))
	p, _ := repo.Get(ctx, "u1")
	assert.True(t, p.Active)
	assert.False(t, p.LastLoginAt.IsZero())

	require.NoError(t, svc.RecordLogout(ctx, "u1"))
	p, _ = repo.Get(ctx, "u1")
	assert.False(t, p.Active)
	assert.False(t, p.LastLogoutAt.IsZero())
}

func TestSetDisplayNameAndPhoto(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	_, err := svc.Create(ctx, "u1", "a@example.com", "Alice")
	require.NoError(t, err)

	require.NoError(t, svc.SetDisplayName(ctx, "u1", "Bob"))
	require.NoError(t, svc.SetPhotoURL(ctx, "u1", "https://cdn.example.com/u1.png"))
	p, _ := repo.Get(ctx, "u1")
	assert.Equal(t, "Bob", p.DisplayName)
	assert.Equal(t, "https://cdn.example.com/u1.png", p.PhotoURL)

	require.ErrorIs(t, svc.SetDisplayName(ctx, "ghost", "X"), ErrNotFound)
}
