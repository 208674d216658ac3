package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

type statisticsCache struct {
	client    *redislib.Client
	prefix    string
	genPrefix string
}

// NewStatisticsCache keeps one JSON statistics snapshot and one generation counter per owner.
func NewStatisticsCache(client *redislib.Client) repository.StatisticsCache {
	return &statisticsCache{client: client, prefix: "stats:", genPrefix: "stats_gen:"}
}

func (c *statisticsCache) Get(ctx context.Context, ownerID string) (*domain.Statistics, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+ownerID).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var stats domain.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *statisticsCache) Generation(ctx context.Context, ownerID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genPrefix+ownerID).Int64()
	if errors.Is(err, redislib.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set writes the snapshot under WATCH on the generation key. It reports false without error when
// an invalidation happened since generation was read.
func (c *statisticsCache) Set(ctx context.Context, ownerID string, generation int64, stats *domain.Statistics, ttl time.Duration) (bool, error) {
	if stats == nil {
		return false, domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return false, err
	}

	genKey := c.genPrefix + ownerID
	stored := false
	err = c.client.Watch(ctx, func(tx *redislib.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redislib.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			pipe.Set(ctx, c.prefix+ownerID, payload, ttl)
			return nil
		})
		stored = err == nil
		return err
	}, genKey)
	if errors.Is(err, redislib.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

func (c *statisticsCache) Invalidate(ctx context.Context, ownerID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.Incr(ctx, c.genPrefix+ownerID)
		pipe.Del(ctx, c.prefix+ownerID)
		return nil
	})
	return err
}
