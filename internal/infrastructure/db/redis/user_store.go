package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// Key layout:
//
//	auth:user:<id>        hash with the user fields
//	auth:email:<email>    user id, claimed with SETNX
//	auth:refresh:<token>  user id of the token holder
const (
	userKeyPrefix    = "auth:user:"
	emailKeyPrefix   = "auth:email:"
	refreshKeyPrefix = "auth:refresh:"
)

const (
	fieldEmail        = "email"
	fieldPasswordHash = "password_hash"
	fieldName         = "name"
	fieldRefreshToken = "refresh_token"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

const maxSwapAttempts = 5

// UserStore implements ports.SessionStore on Redis.
type UserStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client, now: time.Now}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findVia(ctx, emailKeyPrefix+email)
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrUserNotFound
	}
	fields, err := s.client.HGetAll(ctx, userKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return decodeUser(id, fields)
}

func (s *UserStore) FindByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUserNotFound
	}
	u, err := s.findVia(ctx, refreshKeyPrefix+token)
	if err != nil {
		return nil, err
	}
	// A stale index entry left by an interrupted swap must not match.
	if u.RefreshToken != token {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) Create(ctx context.Context, email, passwordHash string, name *string) (*domain.User, error) {
	id := uuid.NewString()

	claimed, err := s.client.SetNX(ctx, emailKeyPrefix+email, id, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("claim email: %w", err)
	}
	if !claimed {
		return nil, domain.ErrUserExists
	}

	now := s.now().UTC()
	fields := map[string]interface{}{
		fieldEmail:        email,
		fieldPasswordHash: passwordHash,
		fieldCreatedAt:    now.Format(time.RFC3339Nano),
		fieldUpdatedAt:    now.Format(time.RFC3339Nano),
	}
	if name != nil {
		fields[fieldName] = *name
	}

	if err := s.client.HSet(ctx, userKeyPrefix+id, fields).Err(); err != nil {
		// Release the email so a retry can succeed.
		_ = s.client.Del(ctx, emailKeyPrefix+email).Err()
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SetRefreshToken swaps the user's token and its reverse index in one
// MULTI/EXEC, retrying when a concurrent swap touches the same user.
func (s *UserStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	userKey := userKeyPrefix + userID

	swap := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, userKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrUserNotFound
		}
		old, err := tx.HGet(ctx, userKey, fieldRefreshToken).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if old != "" {
				pipe.Del(ctx, refreshKeyPrefix+old)
			}
			if token == "" {
				pipe.HDel(ctx, userKey, fieldRefreshToken)
			} else {
				pipe.HSet(ctx, userKey, fieldRefreshToken, token)
				pipe.Set(ctx, refreshKeyPrefix+token, userID, 0)
			}
			pipe.HSet(ctx, userKey, fieldUpdatedAt, s.now().UTC().Format(time.RFC3339Nano))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		err := s.client.Watch(ctx, swap, userKey)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, domain.ErrUserNotFound):
			return err
		default:
			return fmt.Errorf("set refresh token: %w", err)
		}
	}
	return fmt.Errorf("set refresh token: %w", redis.TxFailedErr)
}

// Ping checks that the server answers.
func (s *UserStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *UserStore) findVia(ctx context.Context, indexKey string) (*domain.User, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.FindByID(ctx, id)
}

func decodeUser(id string, fields map[string]string) (*domain.User, error) {
	u := &domain.User{
		ID:           id,
		Email:        fields[fieldEmail],
		PasswordHash: fields[fieldPasswordHash],
		RefreshToken: fields[fieldRefreshToken],
	}
	if name, ok := fields[fieldName]; ok {
		u.Name = &name
	}

	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("decode user %s: created_at: %w", id, err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("decode user %s: updated_at: %w", id, err)
	}
	return u, nil
}
