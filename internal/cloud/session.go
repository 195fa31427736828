package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists provider session tokens in Redis so separate gallery
// instances share one authenticated session per provider. Gallery state
// (filter, selection, view mode) is never written here.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Store(ctx context.Context, p Provider, token string, expiry time.Duration) error {
	key := fmt.Sprintf("cloudsession:%s", p)
	return s.client.Set(ctx, key, token, expiry).Err()
}

func (s *SessionStore) Get(ctx context.Context, p Provider) (string, error) {
	key := fmt.Sprintf("cloudsession:%s", p)
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("no session for provider %s", p)
	}
	return val, err
}

func (s *SessionStore) Delete(ctx context.Context, p Provider) error {
	key := fmt.Sprintf("cloudsession:%s", p)
	return s.client.Del(ctx, key).Err()
}

// Extend refreshes the expiry of a stored session without replacing it.
func (s *SessionStore) Extend(ctx context.Context, p Provider, expiry time.Duration) error {
	key := fmt.Sprintf("cloudsession:%s", p)
	return s.client.Expire(ctx, key, expiry).Err()
}
