package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/booking-service/internal/domain"
)

// Cache keeps computed availability in redis. All methods are no-ops on a nil
// *Cache, and redis errors only degrade to a recompute.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log logrus.FieldLogger
}

func NewCache(rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Cache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

func Key(facilityID int64, day string) string {
	return fmt.Sprintf("avail:%d:%s", facilityID, day)
}

func (c *Cache) Get(ctx context.Context, facilityID int64, day string) ([]domain.AvailabilitySlot, bool) {
	if c == nil {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, Key(facilityID, day)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).Warn("availability cache read failed")
		}
		return nil, false
	}
	var slots []domain.AvailabilitySlot
	if err := json.Unmarshal(bs, &slots); err != nil || len(slots) != HoursPerDay {
		return nil, false
	}
	return slots, true
}

func (c *Cache) Set(ctx context.Context, facilityID int64, day string, slots []domain.AvailabilitySlot) {
	if c == nil {
		return
	}
	bs, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, Key(facilityID, day), bs, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("availability cache write failed")
	}
}

func (c *Cache) Invalidate(ctx context.Context, facilityID int64, days ...string) {
	if c == nil || len(days) == 0 {
		return
	}
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, Key(facilityID, d))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).Warn("availability cache invalidate failed")
	}
}
