package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

const sessionKeyPrefix = "oidc:interaction:"

// RedisStore shares interaction sessions across instances. TTL handling is
// delegated to Redis key expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(uid string) string {
	return sessionKeyPrefix + uid
}

func (s *RedisStore) Create(ctx context.Context, session *models.InteractionSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("interaction session already expired: %w", sentinel.ErrExpired)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal interaction session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.UID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store interaction session: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, uid string) (*models.InteractionSession, error) {
	payload, err := s.client.Get(ctx, sessionKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("interaction session %q: %w", uid, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load interaction session: %w", err)
	}
	var session models.InteractionSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal interaction session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Update(ctx context.Context, session *models.InteractionSession) error {
	key := sessionKey(session.UID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check interaction session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("interaction session %q: %w", session.UID, sentinel.ErrNotFound)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		_ = s.client.Del(ctx, key).Err()
		return fmt.Errorf("interaction session %q: %w", session.UID, sentinel.ErrExpired)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal interaction session: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("update interaction session: %w", err)
	}
	return nil
}

// Consume atomically removes and returns the session (GETDEL), so exactly
// one caller wins a race to resolve the same uid.
func (s *RedisStore) Consume(ctx context.Context, uid string) (*models.InteractionSession, error) {
	payload, err := s.client.GetDel(ctx, sessionKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("interaction session %q: %w", uid, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume interaction session: %w", err)
	}
	var session models.InteractionSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal interaction session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, uid string) error {
	if err := s.client.Del(ctx, sessionKey(uid)).Err(); err != nil {
		return fmt.Errorf("delete interaction session: %w", err)
	}
	return nil
}
