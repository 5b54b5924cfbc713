package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// SessionStore is the persistence boundary for users and their single active
// refresh token.
//
// Implementations must enforce email uniqueness (domain.ErrUserExists) and
// return domain.ErrUserNotFound on lookup misses. FindByRefreshToken never
// matches the empty string.
type SessionStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByRefreshToken(ctx context.Context, token string) (*domain.User, error)
	Create(ctx context.Context, email, passwordHash string, name *string) (*domain.User, error)
	// SetRefreshToken replaces the stored refresh token. An empty token clears it.
	SetRefreshToken(ctx context.Context, userID, token string) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
