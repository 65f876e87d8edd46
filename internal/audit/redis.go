package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusTTL = 10 * time.Minute

// StatusCache is a convenience, read-only-from-the-outside cache of recent
// job statuses, keyed job:<id>:status. It is never consulted by the engine
// and exists purely so an external dashboard can poll status without
// speaking the TCP wire protocol. Losing it changes nothing about
// correctness.
type StatusCache struct {
	client *redis.Client
}

// NewStatusCache connects to addr.
func NewStatusCache(addr string) *StatusCache {
	return &StatusCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// SetStatus records the latest known status for jobID.
func (c *StatusCache) SetStatus(ctx context.Context, jobID string, kind EventKind) error {
	key := fmt.Sprintf("job:%s:status", jobID)
	if err := c.client.Set(ctx, key, string(kind), statusTTL).Err(); err != nil {
		return fmt.Errorf("audit: cache status: %w", err)
	}
	return nil
}

// Status returns the last recorded status for jobID, if any.
func (c *StatusCache) Status(ctx context.Context, jobID string) (string, error) {
	key := fmt.Sprintf("job:%s:status", jobID)
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("audit: read status: %w", err)
	}
	return val, nil
}

// Close closes the underlying Redis client.
func (c *StatusCache) Close() error {
	return c.client.Close()
}
