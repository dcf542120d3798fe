package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisClaimStore implements ChecksumClaimStore using Redis. It is suitable
// for distributed deployments where concurrent uploads of identical bytes
// can land on different instances; SET NX GET makes the claim race a single
// atomic round trip.
type RedisClaimStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisClaimStore creates a claim store backed by an existing Redis client.
// The TTL bounds how long an abandoned claim can block identical uploads; a
// crashed instance's claim expires instead of wedging the checksum forever.
func NewRedisClaimStore(client *redis.Client, ttl time.Duration) *RedisClaimStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisClaimStore{
		client:    client,
		keyPrefix: "intake:claim:",
		ttl:       ttl,
	}
}

// Claim atomically claims a checksum for a transaction. The first caller
// wins and gets its own transaction ID back; later callers get the winner's.
func (s *RedisClaimStore) Claim(ctx context.Context, checksum string, transactionID uuid.UUID) (uuid.UUID, bool, error) {
	key := s.keyPrefix + checksum

	prev, err := s.client.SetArgs(ctx, key, transactionID.String(), redis.SetArgs{
		Mode: "NX",
		Get:  true,
		TTL:  s.ttl,
	}).Result()
	if errors.Is(err, redis.Nil) {
		// SET NX GET returns nil when no previous value existed
		return transactionID, true, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to claim checksum: %w", err)
	}

	winner, err := uuid.Parse(prev)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt claim entry for checksum %s: %w", checksum, err)
	}
	return winner, false, nil
}

// Release frees the claim for a checksum
func (s *RedisClaimStore) Release(ctx context.Context, checksum string) error {
	if err := s.client.Del(ctx, s.keyPrefix+checksum).Err(); err != nil {
		return fmt.Errorf("failed to release checksum claim: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (s *RedisClaimStore) Close() error {
	return s.client.Close()
}

// Ensure RedisClaimStore implements ChecksumClaimStore
var _ intakeapp.ChecksumClaimStore = (*RedisClaimStore)(nil)
