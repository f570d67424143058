package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEventTTL = 24 * time.Hour
	pendingMarker   = "pending"
)

// EventGuard claims inbound event ids in Redis so a webhook delivered twice
// starts only one workflow.
type EventGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewEventGuard(client *redis.Client, ttl time.Duration) *EventGuard {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventGuard{client: client, prefix: "broccoli:event:", ttl: ttl}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Claim returns true when eventID was not seen before. Otherwise it returns
// the workflow id recorded for the first delivery, which may be empty while
// that delivery is still starting its workflow.
func (g *EventGuard) Claim(ctx context.Context, eventID string) (bool, string, error) {
	key := g.prefix + eventID

	ok, err := g.client.SetNX(ctx, key, pendingMarker, g.ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("failed to claim event %s: %w", eventID, err)
	}
	if ok {
		return true, "", nil
	}

	existing, err := g.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("read event %s: %w", eventID, err)
	}
	if existing == pendingMarker {
		existing = ""
	}
	return false, existing, nil
}

// Record stores the workflow id started for a claimed event.
func (g *EventGuard) Record(ctx context.Context, eventID, workflowID string) error {
	return g.client.SetArgs(ctx, g.prefix+eventID, workflowID, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
}

// Release drops a claim whose workflow never started, so a retry can succeed.
func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	return script.Run(ctx, g.client, []string{g.prefix + eventID}, pendingMarker).Err()
}

func (g *EventGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}
