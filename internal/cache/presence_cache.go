package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceCache holds short-lived heartbeat keys per connected player. The
// durable roster flag is authoritative; these keys are the fast ephemeral
// view derived from it, expiring on their own when heartbeats stop.
type PresenceCache interface {
	Touch(ctx context.Context, roomCode, playerID string) error
	Alive(ctx context.Context, roomCode, playerID string) (bool, error)
	Clear(ctx context.Context, roomCode, playerID string) error
}

type presenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPresenceCache creates a new presence cache
func NewPresenceCache(client *redis.Client) PresenceCache {
	return &presenceCache{
		client: client,
		ttl:    15 * time.Second,
	}
}

func (c *presenceCache) key(roomCode, playerID string) string {
	return fmt.Sprintf("room:%s:presence:%s", roomCode, playerID)
}

func (c *presenceCache) Touch(ctx context.Context, roomCode, playerID string) error {
	return c.client.Set(ctx, c.key(roomCode, playerID), "1", c.ttl).Err()
}

func (c *presenceCache) Alive(ctx context.Context, roomCode, playerID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(roomCode, playerID)).Result()
	return n > 0, err
}

func (c *presenceCache) Clear(ctx context.Context, roomCode, playerID string) error {
	return c.client.Del(ctx, c.key(roomCode, playerID)).Err()
}
