package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestUserStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	name := "Alice"

	u, err := s.Create(ctx, "a@x.com", "digest", &name)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Empty(t, u.RefreshToken)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := s.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.Name)
	assert.Equal(t, "Alice", *byID.Name)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	_, err := s.Create(ctx, "a@x.com", "d1", nil)
	require.NoError(t, err)

	_, err = s.Create(ctx, "a@x.com", "d2", nil)
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = s.Create(ctx, "A@x.com", "d3", nil)
	assert.NoError(t, err, "emails are compared byte for byte")
}

func TestUserStore_Misses(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	_, err := s.FindByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = s.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = s.FindByRefreshToken(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, s.SetRefreshToken(ctx, "nope", "t"), domain.ErrUserNotFound)
}

func TestUserStore_RefreshTokenReplacement(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	u, err := s.Create(ctx, "a@x.com", "digest", nil)
	require.NoError(t, err)

	require.NoError(t, s.SetRefreshToken(ctx, u.ID, "t1"))
	got, err := s.FindByRefreshToken(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, s.SetRefreshToken(ctx, u.ID, "t2"))
	_, err = s.FindByRefreshToken(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound, "replaced token must stop matching")

	require.NoError(t, s.SetRefreshToken(ctx, u.ID, ""))
	_, err = s.FindByRefreshToken(ctx, "t2")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = s.FindByRefreshToken(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound, "empty token never matches")
}

func TestUserStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	u, err := s.Create(ctx, "a@x.com", "digest", nil)
	require.NoError(t, err)

	u.Email = "mutated@x.com"
	u.RefreshToken = "forged"

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Empty(t, got.RefreshToken)
}

func TestUserStore_ConcurrentCreateSameEmail(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Create(ctx, "race@x.com", "d", nil); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}
