package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenTTL holds the lifetimes of the two token kinds.
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
}

// AuthService implements register, login, refresh, logout and profile lookup.
//
// It owns the single-active-refresh-token invariant: every successful login or
// refresh overwrites the stored token, and every revocation clears it.
type AuthService struct {
	store  ports.SessionStore
	hasher ports.PasswordHasher
	tokens ports.TokenCodec
	ttl    TokenTTL
	audit  ports.SessionRecorder
	log    zerolog.Logger
	now    func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(
	store ports.SessionStore,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	ttl TokenTTL,
	audit ports.SessionRecorder,
	log zerolog.Logger,
) *AuthService {
	if ttl.Access <= 0 {
		ttl.Access = defaultAccessTTL
	}
	if ttl.Refresh <= 0 {
		ttl.Refresh = defaultRefreshTTL
	}
	if audit == nil {
		audit = ports.NopRecorder{}
	}
	return &AuthService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		ttl:    ttl,
		audit:  audit,
		log:    log,
		now:    time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	res, err := s.register(ctx, in)
	observe(metrics.OpRegister, err)
	return res, err
}

func (s *AuthService) register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	existing, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrUserExists
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	// The store's unique index still guards the race between lookup and insert.
	user, err := s.store.Create(ctx, in.Email, hash, in.Name)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("register: create user: %w", err)
	}

	pair, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.record(user.ID, domain.EventRegistered)
	s.log.Info().Str("user_id", user.ID).Msg("user registered")

	return &ports.AuthResult{User: user.Sanitize(), Tokens: *pair}, nil
}

func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	res, err := s.login(ctx, in)
	observe(metrics.OpLogin, err)
	return res, err
}

func (s *AuthService) login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	user, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Burn the same hashing cost as a real mismatch.
			s.hasher.Verify(in.Password, s.dummyHash())
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: lookup email: %w", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	// Overwriting the stored token ends any previous session for this user.
	pair, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.record(user.ID, domain.EventLoggedIn)
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")

	return &ports.AuthResult{User: user.Sanitize(), Tokens: *pair}, nil
}

// Refresh exchanges a stored refresh token for a fresh pair.
//
// The store is consulted before the signature so that a recognised but
// expired or tampered token can be cleared; an unrecognised token fails
// without touching any record.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken)
	observe(metrics.OpRefresh, err)
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidRefreshToken
	}

	user, err := s.store.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("refresh: lookup token: %w", err)
	}

	subject, verr := s.tokens.Verify(refreshToken)
	if verr != nil || subject != user.ID {
		if err := s.store.SetRefreshToken(ctx, user.ID, ""); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to clear rejected refresh token")
		} else {
			metrics.RefreshRevocationsTotal.Inc()
			s.record(user.ID, domain.EventRefreshRevoked)
		}
		s.log.Info().Err(verr).Str("user_id", user.ID).Msg("stored refresh token rejected")
		return nil, domain.ErrExpiredRefreshToken
	}

	pair, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.record(user.ID, domain.EventRefreshed)
	s.log.Debug().Str("user_id", user.ID).Msg("session refreshed")

	return pair, nil
}

// Logout clears the stored refresh token. Access tokens already handed out
// stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	err := s.logout(ctx, userID)
	observe(metrics.OpLogout, err)
	return err
}

func (s *AuthService) logout(ctx context.Context, userID string) error {
	if err := s.store.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("logout: %w", err)
	}

	s.record(userID, domain.EventLoggedOut)
	s.log.Info().Str("user_id", userID).Msg("user logged out")
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.UserResponse, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		observe(metrics.OpProfile, err)
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	observe(metrics.OpProfile, nil)
	return user.Sanitize(), nil
}

// startSession mints a new pair and makes its refresh token the only valid one.
func (s *AuthService) startSession(ctx context.Context, userID string) (*domain.TokenPair, error) {
	access, err := s.tokens.Issue(userID, s.ttl.Access)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.Issue(userID, s.ttl.Refresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.store.SetRefreshToken(ctx, userID, refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) record(userID string, kind domain.SessionEventKind) {
	s.audit.Record(domain.SessionEvent{UserID: userID, Kind: kind, At: s.now().UTC()})
}

func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("timing-equaliser")
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to prepare dummy password hash")
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func observe(op string, err error) {
	result := metrics.ResultSuccess
	var derr *domain.Error
	switch {
	case err == nil:
	case errors.As(err, &derr):
		result = metrics.ResultRejected
	default:
		result = metrics.ResultError
	}
	metrics.OperationsTotal.WithLabelValues(op, result).Inc()
}
