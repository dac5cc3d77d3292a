package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore-api/internal/shared/cache"
	"bookstore-api/pkg/logging"
)

// 需要真实 Redis：REDIS_TEST_URL=redis://localhost:6379/15
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	s, err := NewStoreFromURL(url, "", logging.Nop())
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAllow_FixedWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	rule := cache.Rule{Limit: 3, Window: time.Minute}

	// 固定时间，避免跨窗口
	s.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	for i := 0; i < 3; i++ {
		res, err := s.Allow(ctx, key, rule)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := s.Allow(ctx, key, rule)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, time.Minute)

	// 下一个窗口重新计数
	s.now = func() time.Time { return time.Unix(1_700_000_000, 0).Add(time.Minute) }
	res, err = s.Allow(ctx, key, rule)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestAllow_KeysIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rule := cache.Rule{Limit: 1, Window: time.Minute}
	a, b := "test:"+uuid.NewString(), "test:"+uuid.NewString()

	res, err := s.Allow(ctx, a, rule)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = s.Allow(ctx, b, rule)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = s.Allow(ctx, a, rule)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestAllow_DisabledRule(t *testing.T) {
	s := NewStoreFromClient(nil)
	res, err := s.Allow(context.Background(), "any", cache.Rule{})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
