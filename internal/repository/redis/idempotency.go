package redisrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockValue    = "LOCK"
	resultPrefix = "RES:"
)

// IdempotencyStore remembers the response of a request made with an
// Idempotency-Key. A key holds either an in-flight lock or a stored result.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, lockValue, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, jsonPayload string) error {
	val := resultPrefix + jsonPayload
	return s.rdb.Set(ctx, key, val, s.ttl).Err()
}

func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if strings.HasPrefix(v, resultPrefix) {
		return strings.TrimPrefix(v, resultPrefix), true, nil
	}

	return "", false, nil
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, key string) (bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == lockValue, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// ClaimState is the outcome of Claim.
type ClaimState int

const (
	// Claimed means the caller owns the key and must SaveResult or Release.
	Claimed ClaimState = iota
	// Replayed means a previous result exists and is returned.
	Replayed
	// InProgress means another request holds the key.
	InProgress
)

// Claim returns a stored result for key or takes the in-flight lock on it.
func (s *IdempotencyStore) Claim(ctx context.Context, key string, lockTTL time.Duration) (ClaimState, string, error) {
	if payload, ok, err := s.GetResult(ctx, key); err != nil {
		return InProgress, "", err
	} else if ok {
		return Replayed, payload, nil
	}

	locked, err := s.AcquireLock(ctx, key, lockTTL)
	if err != nil {
		return InProgress, "", err
	}
	if locked {
		return Claimed, "", nil
	}

	// The holder may have finished between the two calls.
	if payload, ok, err := s.GetResult(ctx, key); err != nil {
		return InProgress, "", err
	} else if ok {
		return Replayed, payload, nil
	}

	return InProgress, "", nil
}
