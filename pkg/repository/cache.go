package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/nodersteam/churn-countdown/pkg/model"
)

const (
	blocksChannel        = "pub/blocks"
	progressChannel      = "pub/churn-progress"
	maxBlocksCacheSize   = 50
	maxProgressCacheSize = 50
	blocksKey            = "c/latest_blocks"
	progressKey          = "c/latest_progress"
)

type BlocksCache interface {
	AddBlock(ctx context.Context, block model.BlockEvent) error
	GetBlocks(ctx context.Context, start, stop int64) ([]model.BlockEvent, error)
	PublishBlock(ctx context.Context, block model.BlockEvent) error
}

type ProgressCache interface {
	AddProgress(ctx context.Context, progress *model.ChurnProgress) error
	GetProgress(ctx context.Context, start, stop int64) ([]*model.ChurnProgress, error)
	PublishProgress(ctx context.Context, progress *model.ChurnProgress) error
}

// Cache keeps the latest blocks and countdown snapshots in capped redis lists and fans them
// out on pub/sub channels.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{
		rdb: rdb,
	}
}

func (s *Cache) PublishBlock(ctx context.Context, block model.BlockEvent) error {
	res, err := json.Marshal(block)
	if err != nil {
		return err
	}

	return s.rdb.Publish(ctx, blocksChannel, res).Err()
}

func (s *Cache) AddBlock(ctx context.Context, block model.BlockEvent) error {
	res, err := json.Marshal(block)
	if err != nil {
		return err
	}
	return s.push(ctx, blocksKey, res, maxBlocksCacheSize)
}

func (s *Cache) GetBlocks(ctx context.Context, start, stop int64) ([]model.BlockEvent, error) {
	res, err := s.rdb.LRange(ctx, blocksKey, start, capStop(stop, maxBlocksCacheSize)).Result()
	if err != nil {
		return nil, err
	}

	blcs := make([]model.BlockEvent, 0, len(res))
	for _, r := range res {
		var b model.BlockEvent
		if err := json.Unmarshal([]byte(r), &b); err != nil {
			return nil, err
		}
		blcs = append(blcs, b)
	}

	return blcs, nil
}

func (s *Cache) PublishProgress(ctx context.Context, progress *model.ChurnProgress) error {
	res, err := json.Marshal(progress)
	if err != nil {
		return err
	}

	return s.rdb.Publish(ctx, progressChannel, res).Err()
}

func (s *Cache) AddProgress(ctx context.Context, progress *model.ChurnProgress) error {
	res, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return s.push(ctx, progressKey, res, maxProgressCacheSize)
}

func (s *Cache) GetProgress(ctx context.Context, start, stop int64) ([]*model.ChurnProgress, error) {
	res, err := s.rdb.LRange(ctx, progressKey, start, capStop(stop, maxProgressCacheSize)).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []*model.ChurnProgress
	for _, r := range res {
		var p model.ChurnProgress
		if err := json.Unmarshal([]byte(r), &p); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &p)
	}

	return snapshots, nil
}

// push prepends value and trims the list to its newest size entries.
func (s *Cache) push(ctx context.Context, key string, value []byte, size int64) error {
	if err := s.rdb.LPush(ctx, key, string(value)).Err(); err != nil {
		return err
	}

	return s.rdb.LTrim(ctx, key, 0, size-1).Err()
}

func capStop(stop, size int64) int64 {
	if stop < 0 || stop >= size {
		return size - 1
	}
	return stop
}
