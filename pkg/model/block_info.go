package model

import (
	"fmt"
	"strconv"
	"time"
)

// BlockEvent is one new block observed on the websocket feed.
type BlockEvent struct {
	Height    int64  `json:"height"`
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"` // epoch ms
}

// SeedBlockEvent is the placeholder the block-time estimator pairs the first real block with.
var SeedBlockEvent = BlockEvent{}

func (b BlockEvent) IsSeed() bool {
	return b.Timestamp == 0
}

// NewBlockEvent parses the string-encoded height and the ISO-8601 time of a block header.
func NewBlockEvent(height, blockTime string) (BlockEvent, error) {
	h, err := strconv.ParseInt(height, 10, 64)
	if err != nil {
		return BlockEvent{}, fmt.Errorf("invalid block height %q: %w", height, err)
	}
	if h < 0 {
		return BlockEvent{}, fmt.Errorf("invalid block height %q: negative", height)
	}
	t, err := time.Parse(time.RFC3339Nano, blockTime)
	if err != nil {
		return BlockEvent{}, fmt.Errorf("invalid block time %q: %w", blockTime, err)
	}
	return BlockEvent{
		Height:    h,
		Time:      blockTime,
		Timestamp: t.UnixMilli(),
	}, nil
}
