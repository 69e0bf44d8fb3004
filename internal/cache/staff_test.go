package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// MockRedis はテスト用のRedisです
type MockRedis struct {
	values map[string]string
	err    error
	ttls   map[string]time.Duration
}

func newMockRedis() *MockRedis {
	return &MockRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	m.values[key] = string(value.([]byte))
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *MockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// MockStaffLister はテスト用のスタッフ名簿です
type MockStaffLister struct {
	staff []model.Staff
	err   error
	calls int
}

func (m *MockStaffLister) ListStaff(ctx context.Context, activeOnly bool) ([]model.Staff, error) {
	m.calls++
	return m.staff, m.err
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestStaffCache_ListStaff(t *testing.T) {
	ctx := context.Background()
	staff := []model.Staff{{ID: 1, DisplayName: "Aiko", Active: true}}

	t.Run("初回は名簿から取得してキャッシュする", func(t *testing.T) {
		rdb := newMockRedis()
		next := &MockStaffLister{staff: staff}
		c := newStaffCache(rdb, next, time.Minute, discardLogger())

		got, err := c.ListStaff(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, staff, got)
		assert.Equal(t, 1, next.calls)
		assert.Contains(t, rdb.values, "booking:staff:active")
		assert.Equal(t, time.Minute, rdb.ttls["booking:staff:active"])

		got, err = c.ListStaff(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, staff, got)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("在籍者のみと全員は別のキー", func(t *testing.T) {
		rdb := newMockRedis()
		next := &MockStaffLister{staff: staff}
		c := newStaffCache(rdb, next, time.Minute, discardLogger())

		_, err := c.ListStaff(ctx, true)
		require.NoError(t, err)
		_, err = c.ListStaff(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("Redisのエラーは名簿にフォールバックする", func(t *testing.T) {
		rdb := newMockRedis()
		rdb.err = errors.New("dial tcp: connection refused")
		next := &MockStaffLister{staff: staff}
		c := newStaffCache(rdb, next, time.Minute, discardLogger())

		got, err := c.ListStaff(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, staff, got)
	})

	t.Run("壊れたキャッシュは読み直す", func(t *testing.T) {
		rdb := newMockRedis()
		rdb.values["booking:staff:active"] = "{not json"
		next := &MockStaffLister{staff: staff}
		c := newStaffCache(rdb, next, time.Minute, discardLogger())

		got, err := c.ListStaff(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, staff, got)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("名簿のエラー", func(t *testing.T) {
		next := &MockStaffLister{err: errors.New("db down")}
		c := newStaffCache(newMockRedis(), next, time.Minute, discardLogger())

		_, err := c.ListStaff(ctx, true)
		assert.EqualError(t, err, "db down")
	})

	t.Run("接続できないRedis", func(t *testing.T) {
		rdb := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		})
		defer rdb.Close()

		next := &MockStaffLister{staff: staff}
		got, err := NewStaffCache(rdb, next, time.Minute, discardLogger()).ListStaff(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, staff, got)
	})
}

func TestStaffCache_Invalidate(t *testing.T) {
	rdb := newMockRedis()
	rdb.values["booking:staff:active"] = "[]"
	rdb.values["booking:staff:all"] = "[]"

	c := newStaffCache(rdb, &MockStaffLister{}, time.Minute, discardLogger())
	require.NoError(t, c.Invalidate(context.Background()))
	assert.Empty(t, rdb.values)

	rdb.err = errors.New("timeout")
	assert.Error(t, c.Invalidate(context.Background()))
}

func TestNewRedisClient(t *testing.T) {
	c, err := NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, 2, c.Options().DB)

	_, err = NewRedisClient("http://localhost")
	assert.Error(t, err)
}
