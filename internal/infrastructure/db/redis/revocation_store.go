package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

const revocationPrefix = "session:revoked:"

// keyValue is the part of the Redis client the store needs.
type keyValue interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RevocationStore keeps one revoked-before marker per account.
// Key format: session:revoked:<account_id>, value: unix milliseconds.
// The marker expires with the longest session it could apply to.
type RevocationStore struct {
	client keyValue
	ttl    time.Duration
}

var _ ports.SessionRevocations = (*RevocationStore)(nil)

// NewRevocationStore wraps client. sessionTTL must match the token lifetime.
func NewRevocationStore(client *redis.Client, sessionTTL time.Duration) *RevocationStore {
	return newRevocationStore(client, sessionTTL)
}

func newRevocationStore(client keyValue, sessionTTL time.Duration) *RevocationStore {
	return &RevocationStore{client: client, ttl: sessionTTL}
}

// Revoke invalidates every session of accountID issued at or before at.
// Session tokens carry millisecond issue times, so the marker does too.
func (s *RevocationStore) Revoke(ctx context.Context, accountID string, at time.Time) error {
	v := strconv.FormatInt(at.UnixMilli(), 10)
	if err := s.client.Set(ctx, s.key(accountID), v, s.ttl).Err(); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// RevokedAt returns the marker for accountID, if any.
func (s *RevocationStore) RevokedAt(ctx context.Context, accountID string) (time.Time, bool, error) {
	v, err := s.client.Get(ctx, s.key(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read revocation: %w", err)
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read revocation: corrupt marker %q", v)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (s *RevocationStore) key(accountID string) string {
	return revocationPrefix + accountID
}
