package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle counts failed login attempts per account in Redis. Counters
// expire after the configured window, so lockouts clear themselves. Redis
// unavailability degrades to no throttling rather than locking everyone out.
type Throttle struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewThrottle constructs a Throttle.
func NewThrottle(client *redis.Client, limit int, window time.Duration) *Throttle {
	return &Throttle{client: client, limit: limit, window: window}
}

// Blocked reports whether the account has reached the failure limit.
func (t *Throttle) Blocked(ctx context.Context, email string) bool {
	if t == nil || t.client == nil || t.limit <= 0 {
		return false
	}
	count, err := t.client.Get(ctx, t.key(email)).Int()
	if err != nil {
		return false
	}
	return count >= t.limit
}

// Fail records one failed attempt and returns the current count.
func (t *Throttle) Fail(ctx context.Context, email string) (int, error) {
	if t == nil || t.client == nil {
		return 0, nil
	}
	key := t.key(email)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return int(count), err
		}
	}
	return int(count), nil
}

// Reset clears the failure counter after a successful login.
func (t *Throttle) Reset(ctx context.Context, email string) error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Del(ctx, t.key(email)).Err()
}

// Limit returns the configured failure limit.
func (t *Throttle) Limit() int {
	if t == nil {
		return 0
	}
	return t.limit
}

func (t *Throttle) key(email string) string {
	return "login:fail:" + strings.ToLower(strings.TrimSpace(email))
}
