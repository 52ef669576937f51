package consumer

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/repository"
)

type cacheConsumer struct {
	blocksCh   chan model.BlockEvent
	progressCh chan *model.ChurnProgress
	blocks     repository.BlocksCache
	progress   repository.ProgressCache
}

func NewCacheConsumer(blocks repository.BlocksCache, progress repository.ProgressCache,
	blocksCh chan model.BlockEvent, progressCh chan *model.ChurnProgress,
) *cacheConsumer {
	return &cacheConsumer{blocks: blocks, progress: progress, blocksCh: blocksCh, progressCh: progressCh}
}

func (s *cacheConsumer) RunBlocks(ctx context.Context) error {
	log.Info().Msgf("Starting cache consumer: RunBlocks")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("breaking the blocks worker loop.")
			return nil
		case newBlock := <-s.blocksCh:
			if err := s.blocks.AddBlock(ctx, newBlock); err != nil {
				log.Err(err).Msgf("Error caching block")
			}
			if err := s.blocks.PublishBlock(ctx, newBlock); err != nil {
				log.Err(err).Msgf("Error publishing block")
			}
		}
	}
}

func (s *cacheConsumer) RunProgress(ctx context.Context) error {
	log.Info().Msgf("Starting cache consumer: RunProgress")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("breaking the progress worker loop.")
			return nil
		case snapshot := <-s.progressCh:
			if err := s.progress.AddProgress(ctx, snapshot); err != nil {
				log.Err(err).Msgf("Error caching churn progress")
			}
			if err := s.progress.PublishProgress(ctx, snapshot); err != nil {
				log.Err(err).Msgf("Error publishing churn progress")
			}
		}
	}
}
