package leader

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	client, err := NewClient(url)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping integration test: redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// scriptedRedis grants the lease and answers renewals from a fixed budget. Methods Hold does
// not call fall through to the nil Cmdable.
type scriptedRedis struct {
	redis.Cmdable

	mu       sync.Mutex
	renewals int
	released bool
}

func (r *scriptedRedis) SetNX(_ context.Context, _ string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

// EvalSha serves both scripts: renew passes token and ttl, release passes only the token.
func (r *scriptedRedis) EvalSha(_ context.Context, _ string, _ []string, args ...interface{}) *redis.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(args) == 1 {
		r.released = true
		return redis.NewCmdResult(int64(0), nil)
	}
	if r.renewals == 0 {
		return redis.NewCmdResult(int64(0), nil)
	}
	r.renewals--
	return redis.NewCmdResult(int64(1), nil)
}

func TestHold_LostLeaseIsAnError(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"fn returns nil", func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}},
		{"fn returns ctx error", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
		{"fn returns cause", func(ctx context.Context) error {
			<-ctx.Done()
			return context.Cause(ctx)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedRedis{renewals: 1}
			l := New(client, "penpals", 30*time.Millisecond, nil)

			err := l.Hold(context.Background(), tt.fn)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLost)

			client.mu.Lock()
			defer client.mu.Unlock()
			assert.True(t, client.released)
		})
	}
}

func TestHold_ParentCancelIsClean(t *testing.T) {
	client := &scriptedRedis{renewals: 1000}
	l := New(client, "penpals", 30*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(40*time.Millisecond, cancel)

	err := l.Hold(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	assert.NoError(t, err)
}

func TestNew_Key(t *testing.T) {
	l := New(nil, "penpals", time.Minute, nil)
	assert.Equal(t, "confirmation-bot:leader:penpals", l.Key())
	assert.NotEqual(t, New(nil, "penpals", time.Minute, nil).token, l.token)
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient("not a url")
	assert.Error(t, err)
}

func TestLease_Exclusive(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	sub := "test-" + uuid.NewString()[:8]

	first := New(client, sub, 2*time.Second, nil)
	second := New(client, sub, 2*time.Second, nil)

	ok, err := first.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, second.Renew(ctx), ErrLost)
	require.NoError(t, first.Renew(ctx))

	// a non-holder release must not free the key
	require.NoError(t, second.Release(ctx))
	ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx))
	ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Release(ctx))
}

func TestLease_Hold(t *testing.T) {
	client := setupRedis(t)
	sub := "test-" + uuid.NewString()[:8]
	l := New(client, sub, 900*time.Millisecond, nil)

	ran := false
	err := l.Hold(context.Background(), func(ctx context.Context) error {
		ran = true
		time.Sleep(700 * time.Millisecond)
		return ctx.Err()
	})
	require.NoError(t, err)
	assert.True(t, ran)

	exists, err := client.Exists(context.Background(), l.Key()).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
