package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RegisterInput carries the fields accepted by AuthService.Register.
type RegisterInput struct {
	Email    string
	Password string
	Name     *string
}

// LoginInput carries the credentials accepted by AuthService.Login.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User   *domain.UserResponse
	Tokens domain.TokenPair
}

// AuthService owns the session lifecycle of a user.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*domain.UserResponse, error)
}

// PasswordHasher is a slow, salted one-way hash.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenCodec mints and verifies signed, expiring bearer tokens.
//
// Verify is a pure function of the token, the clock and the signing secret.
// Failures wrap domain.ErrTokenExpired, domain.ErrTokenMalformed or
// domain.ErrTokenSignatureInvalid.
type TokenCodec interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Verify(token string) (string, error)
}
