// Package leader keeps a single bot process active per community with a Redis lease.
package leader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLost is returned when the lease was taken over or expired while held.
var ErrLost = errors.New("lease lost")

// renewScript extends the lease only while this holder still owns it.
// KEYS[1] = lease key, ARGV[1] = token, ARGV[2] = ttl in milliseconds
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript deletes the lease only while this holder still owns it.
// KEYS[1] = lease key, ARGV[1] = token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is one holder's claim on a key.
type Lease struct {
	client redis.Cmdable
	key    string
	token  string
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient parses a redis:// URL into a client.
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// New creates a lease on "confirmation-bot:leader:<subreddit>" with a fresh holder token.
func New(client redis.Cmdable, subreddit string, ttl time.Duration, logger *zap.Logger) *Lease {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lease{
		client: client,
		key:    "confirmation-bot:leader:" + subreddit,
		token:  uuid.NewString(),
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the Redis key.
func (l *Lease) Key() string { return l.key }

// TryAcquire claims the lease if nobody holds it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Renew extends a held lease. It returns ErrLost when another holder owns the key.
func (l *Lease) Renew(ctx context.Context) error {
	n, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to renew lease %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLost
	}
	return nil
}

// Release gives the lease up if still held.
func (l *Lease) Release(ctx context.Context) error {
	if _, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Result(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}

// Hold blocks until the lease is acquired, then runs fn with a context that is canceled if
// the lease is lost. The lease is renewed every third of its ttl and released when fn returns.
// Losing the lease is always reported as an error wrapping the renewal failure (ErrLost when
// another holder took the key), even when fn itself returns nil.
func (l *Lease) Hold(ctx context.Context, fn func(ctx context.Context) error) error {
	interval := l.ttl / 3
	for {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		l.logger.Info("another process holds the lease, waiting", zap.String("key", l.key))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	l.logger.Info("acquired lease", zap.String("key", l.key))

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := l.Renew(runCtx); err != nil {
					l.logger.Error("lease renewal failed", zap.String("key", l.key), zap.Error(err))
					cancel(err)
					return
				}
			}
		}
	}()

	err := fn(runCtx)
	close(done)

	releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer releaseCancel()
	if rerr := l.Release(releaseCtx); rerr != nil {
		l.logger.Warn("failed to release lease", zap.Error(rerr))
	}

	// runCtx is only canceled by ctx or by a failed renewal before the deferred cancel runs.
	if cause := context.Cause(runCtx); cause != nil && ctx.Err() == nil {
		if err == nil || errors.Is(err, cause) {
			return cause
		}
		return fmt.Errorf("%w: %w", cause, err)
	}
	return err
}
