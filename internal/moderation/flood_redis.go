package moderation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisFloodPrefix = "flood/"

// redisTracker keeps the rate windows in a sorted set per key, scored by the
// event timestamp. Used when multiple bot instances share moderation state.
type redisTracker struct {
	client *redis.Client
	limit  int
	period time.Duration
}

func NewRedisTracker(redisURL string, limit int, period time.Duration) (*redisTracker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if _, err = rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	return &redisTracker{
		client: rdb,
		limit:  limit,
		period: period,
	}, nil
}

func (t *redisTracker) RecordAndCheck(ctx context.Context, chatID, userID int64, ts time.Time) (bool, error) {
	key := redisFloodPrefix + floodKey(chatID, userID)
	cutoff := strconv.FormatInt(ts.Add(-t.period).UnixNano(), 10)

	// prune, append and count in a single round-trip
	multi := t.client.TxPipeline()
	multi.ZRemRangeByScore(ctx, key, "-inf", cutoff)
	multi.ZAdd(ctx, key, redis.Z{
		Score:  float64(ts.UnixNano()),
		Member: strconv.FormatInt(ts.UnixNano(), 10),
	})
	card := multi.ZCard(ctx, key)
	multi.Expire(ctx, key, t.period)
	if _, err := multi.Exec(ctx); err != nil {
		return false, fmt.Errorf("record flood window: %w", err)
	}

	if int(card.Val()) > t.limit {
		if err := t.client.Del(ctx, key).Err(); err != nil {
			return true, fmt.Errorf("clear triggered flood window: %w", err)
		}
		return true, nil
	}
	return false, nil
}

func (t *redisTracker) Clear(ctx context.Context, chatID, userID int64) error {
	return t.client.Del(ctx, redisFloodPrefix+floodKey(chatID, userID)).Err()
}
