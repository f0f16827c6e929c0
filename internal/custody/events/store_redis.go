package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"custodia/internal/custody/models"
)

// DefaultStream is the Redis Streams key the audit trail is appended to.
const DefaultStream = "custodia:audit"

// RedisStore appends events to a Redis stream so external consumers can tail
// the audit trail.
type RedisStore struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStore writes to the given stream, trimming it approximately to
// maxLen entries (0 means unbounded).
func NewRedisStore(client *redis.Client, stream string, maxLen int64) *RedisStore {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStore{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStore) Append(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"action":       string(event.Action),
			"container_id": uint64(event.ContainerID),
			"payload":      payload,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
