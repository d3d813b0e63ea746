package sessions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	activeSessionsKey = "sessions:active"
	revokedKeyPrefix  = "sessions:revoked:"
)

// redisRegistry shares session state between instances. Active sessions live
// in a sorted set scored by last-seen unix time; revocations are plain keys
// with an expiry.
type redisRegistry struct {
	client     *redis.Client
	activeTTL  time.Duration
	revokedTTL time.Duration
}

func NewRedisRegistry(client *redis.Client, activeTTL, revokedTTL time.Duration) Registry {
	return &redisRegistry{
		client:     client,
		activeTTL:  activeTTL,
		revokedTTL: revokedTTL,
	}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (r *redisRegistry) Touch(ctx context.Context, userID uuid.UUID) error {
	err := r.client.ZAdd(ctx, activeSessionsKey, &redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: userID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (r *redisRegistry) Active(ctx context.Context) ([]uuid.UUID, error) {
	cutoff := time.Now().Add(-r.activeTTL).Unix()
	if err := r.client.ZRemRangeByScore(ctx, activeSessionsKey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune sessions: %w", err)
	}

	members, err := r.client.ZRange(ctx, activeSessionsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *redisRegistry) Revoke(ctx context.Context, userID uuid.UUID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, revokedKeyPrefix+userID.String(), 1, r.revokedTTL)
		pipe.ZRem(ctx, activeSessionsKey, userID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (r *redisRegistry) IsRevoked(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+userID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}
