package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	audit "pedcare/pkg/platform/audit"
)

const (
	// phi:access:{user}:{YYYY-MM-DD} holds the set of event ids counted that day.
	redisKeyPrefix = "phi:access:"
	defaultTTL     = 48 * time.Hour
)

// RedisMirror copies daily PHI access counts to Redis so other instances and
// reporting jobs can read them. Each day is a set of event ids, which makes
// retried batches idempotent.
type RedisMirror struct {
	client *redis.Client
	runID  string
	ttl    time.Duration
}

type RedisMirrorOption func(*RedisMirror)

func WithTTL(ttl time.Duration) RedisMirrorOption {
	return func(m *RedisMirror) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func NewRedisMirror(client *redis.Client, runID uuid.UUID, opts ...RedisMirrorOption) *RedisMirror {
	m := &RedisMirror{client: client, runID: runID.String(), ttl: defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *RedisMirror) Name() string { return "redis" }

func dayKey(userID, day string) string {
	return redisKeyPrefix + userID + ":" + day
}

// Write records every PHI event of the batch in one pipeline.
func (m *RedisMirror) Write(ctx context.Context, events []audit.Event) error {
	pipe := m.client.Pipeline()
	queued := 0
	for _, e := range events {
		if !e.HasPHI() {
			continue
		}
		key := dayKey(e.UserID, e.Timestamp.Format(DateLayout))
		pipe.SAdd(ctx, key, m.runID+"/"+e.ID)
		pipe.Expire(ctx, key, m.ttl)
		queued++
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror daily access: %w", err)
	}
	return nil
}

// Count returns the mirrored count for (userID, day). Missing keys count zero.
func (m *RedisMirror) Count(ctx context.Context, userID, day string) (int, error) {
	n, err := m.client.SCard(ctx, dayKey(userID, day)).Result()
	if err != nil {
		return 0, fmt.Errorf("read daily access: %w", err)
	}
	return int(n), nil
}
