// Package redis stores refresh-token sessions so they can be rotated and revoked.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "refresh:"

type sessionData struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore implements auth.SessionStore on a redis client.
type SessionStore struct {
	client *redis.Client
	prefix string
}

func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) key(tokenID string) string {
	return s.prefix + tokenID
}

func (s *SessionStore) SaveRefreshSession(ctx context.Context, tokenID string, userID int64, expiresAt time.Time) error {
	payload, err := json.Marshal(sessionData{UserID: userID, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session for user %d already expired", userID)
	}

	if err := s.client.Set(ctx, s.key(tokenID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *SessionStore) LookupRefreshSession(ctx context.Context, tokenID string) (int64, error) {
	raw, err := s.client.Get(ctx, s.key(tokenID)).Result()
	if err == redis.Nil {
		return 0, auth.ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup refresh session: %w", err)
	}

	var data sessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return 0, fmt.Errorf("unmarshal session: %w", err)
	}
	return data.UserID, nil
}

func (s *SessionStore) RevokeRefreshSession(ctx context.Context, tokenID string) error {
	if err := s.client.Del(ctx, s.key(tokenID)).Err(); err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}
