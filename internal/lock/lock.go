// Package lock provides short-lived exclusive leases keyed by name.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when a lease stays held by someone else for longer
// than the caller is willing to wait.
var ErrBusy = errors.New("lease busy")

// Release gives a lease back. Releasing an expired lease is a no-op.
type Release func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Noop grants every lease immediately.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis holds leases as keys set with NX and a TTL. Only the holder's token
// can delete the key.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

// NewRedis builds a locker whose leases expire after ttl. Acquire waits up to
// ttl for a held lease to be released.
func NewRedis(client redis.Cmdable, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl, wait: ttl}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	fullKey := r.prefix + key
	token := uuid.NewString()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 20 * time.Millisecond
	eb.MaxInterval = 250 * time.Millisecond
	eb.MaxElapsedTime = r.wait

	err := backoff.Retry(func() error {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("acquire %s: %w", fullKey, err))
		}
		if !ok {
			return ErrBusy
		}
		return nil
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", fullKey, err)
		}
		return nil
	}, nil
}
