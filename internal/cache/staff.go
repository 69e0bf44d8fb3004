package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

const staffKeyPrefix = "booking:staff:"

// StaffLister はキャッシュの背後にあるスタッフ名簿です
type StaffLister interface {
	ListStaff(ctx context.Context, activeOnly bool) ([]model.Staff, error)
}

// redisStore はStaffCacheが使うRedisのコマンドです
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// StaffCache はスタッフ名簿をRedisにキャッシュします
// Redisに接続できない場合は背後の名簿をそのまま使います
type StaffCache struct {
	rdb  redisStore
	next StaffLister
	ttl  time.Duration
	log  *logrus.Entry
}

// NewRedisClient はURL(redis://...)からクライアントを作成します
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewStaffCache(rdb *redis.Client, next StaffLister, ttl time.Duration, log *logrus.Entry) *StaffCache {
	return newStaffCache(rdb, next, ttl, log)
}

func newStaffCache(rdb redisStore, next StaffLister, ttl time.Duration, log *logrus.Entry) *StaffCache {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &StaffCache{rdb: rdb, next: next, ttl: ttl, log: log.WithField("component", "staff_cache")}
}

func staffKey(activeOnly bool) string {
	if activeOnly {
		return staffKeyPrefix + "active"
	}
	return staffKeyPrefix + "all"
}

// ListStaff はキャッシュがあればそれを返し、なければ名簿から取得してキャッシュします
func (c *StaffCache) ListStaff(ctx context.Context, activeOnly bool) ([]model.Staff, error) {
	key := staffKey(activeOnly)

	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var staff []model.Staff
		if err := json.Unmarshal(b, &staff); err == nil {
			return staff, nil
		}
		c.log.WithField("key", key).Warn("discarding malformed staff cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.log.WithError(err).Warn("staff cache unavailable")
	}

	staff, err := c.next.ListStaff(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	b, err = json.Marshal(staff)
	if err != nil {
		return staff, nil
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("failed to store staff cache")
	}
	return staff, nil
}

// Invalidate はキャッシュを削除します
func (c *StaffCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, staffKey(true), staffKey(false)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate staff cache: %w", err)
	}
	return nil
}
