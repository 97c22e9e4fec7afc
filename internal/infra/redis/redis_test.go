package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-membership/internal/domain"
)

// memClient is an in-memory RedisClient; TTLs are recorded, not enforced.
type memClient struct {
	mu      sync.Mutex
	data    map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
	failSet error
}

func newMemClient() *memClient {
	return &memClient{data: map[string]string{}, counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (m *memClient) Ping(ctx context.Context) error { return nil }

func (m *memClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = toString(value)
	return nil
}

func (m *memClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return false, m.failSet
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = toString(value)
	m.expires[key] = expiration
	return true, nil
}

func (m *memClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

func (m *memClient) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = expiration
	return nil
}

func (m *memClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memClient) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *memClient) Close() error { return nil }

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	cli := newMemClient()
	rl := NewRateLimiter(cli)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "rate_limit:login:a@b.c", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := rl.Allow(ctx, "rate_limit:login:a@b.c", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, cli.expires["rate_limit:login:a@b.c"])

	ok, err = rl.Allow(ctx, "rate_limit:login:other", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	cli := newMemClient()
	l := NewLocker(cli)
	l.backoff = time.Millisecond

	token, err := l.TryLock(ctx, "lock:job", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = l.TryLock(ctx, "lock:job", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockBusy)

	// a stale token cannot release someone else's lock
	require.NoError(t, l.Unlock(ctx, "lock:job", "not-the-token"))
	_, err = l.TryLock(ctx, "lock:job", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockBusy)

	require.NoError(t, l.Unlock(ctx, "lock:job", token))
	_, err = l.TryLock(ctx, "lock:job", time.Minute)
	assert.NoError(t, err)
}

func TestRedisLocker_BackendError(t *testing.T) {
	cli := newMemClient()
	cli.failSet = errors.New("connection refused")
	l := NewLocker(cli)
	l.backoff = time.Millisecond

	_, err := l.TryLock(context.Background(), "lock:job", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLockBusy)
}
