// Package session hands out per-browser symmetric keys kept in Redis.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CookieName carries the opaque session id.
const CookieName = "session_id"

// KeySize is the length of generated keys in bytes (256 bits).
const KeySize = 32

// backend is the subset of redis.Cmdable used here.
type backend interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Keys stores one base64 key per session id.
type Keys struct {
	rdb    backend
	ttl    time.Duration
	prefix string
	random func([]byte) (int, error)
}

// NewKeys creates a key store. A non-positive ttl defaults to 24h.
func NewKeys(rdb backend, ttl time.Duration) *Keys {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Keys{rdb: rdb, ttl: ttl, prefix: "attendance:session-key:", random: rand.Read}
}

// KeyFor returns the key bound to sessionID, generating it on first use.
// Concurrent first calls agree on a single key.
func (k *Keys) KeyFor(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id required")
	}
	raw := make([]byte, KeySize)
	if _, err := k.random(raw); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}
	candidate := base64.StdEncoding.EncodeToString(raw)
	redisKey := k.prefix + sessionID

	set, err := k.rdb.SetNX(ctx, redisKey, candidate, k.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store session key: %w", err)
	}
	if set {
		return candidate, nil
	}

	existing, err := k.rdb.Get(ctx, redisKey).Result()
	if err != nil {
		return "", fmt.Errorf("load session key: %w", err)
	}
	_ = k.rdb.Expire(ctx, redisKey, k.ttl).Err()
	return existing, nil
}
