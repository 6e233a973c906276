package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"taskhub/internal/model"
)

// ErrNoSession is returned for missing or expired tokens. The two cases
// are indistinguishable on purpose: both mean "not logged in".
var ErrNoSession = errors.New("no session")

// Store keeps opaque session tokens in Redis. The token carries no
// information itself; revocation at logout is a single key delete.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, ttl: ttl, logger: logger}
}

type record struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
}

func key(token string) string {
	return "session:" + token
}

// Create issues a fresh token bound to the principal.
func (s *Store) Create(ctx context.Context, p model.Principal) (string, error) {
	token := uuid.NewString()

	data, err := json.Marshal(record{UserID: p.UserID, Role: p.Role})
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	if err := s.rdb.Set(ctx, key(token), data, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to store session", zap.Int("user_id", p.UserID), zap.Error(err))
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Get resolves a token to its principal and refreshes the TTL.
func (s *Store) Get(ctx context.Context, token string) (model.Principal, error) {
	data, err := s.rdb.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Principal{}, ErrNoSession
	}
	if err != nil {
		s.logger.Error("Failed to read session", zap.Error(err))
		return model.Principal{}, fmt.Errorf("read session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Principal{}, fmt.Errorf("decode session: %w", err)
	}

	s.rdb.Expire(ctx, key(token), s.ttl)
	return model.Principal{UserID: rec.UserID, Role: rec.Role}, nil
}

// Delete invalidates the token. Deleting an unknown token is a no-op.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, key(token)).Err(); err != nil {
		s.logger.Error("Failed to delete session", zap.Error(err))
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
