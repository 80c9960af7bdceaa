package engine

import (
	"context"
	"errors"
	"time"

	"agentdesk/internal/logger"
	"agentdesk/internal/scheduler"

	"golang.org/x/sync/errgroup"
)

// Run 驱动生成周期与生命周期扫描，直到 ctx 结束。生命周期开关关闭时只跑生成周期。
func (s *Service) Run(ctx context.Context, generationEvery, lifecycleEvery time.Duration) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		scheduler.New("generation", generationEvery).Run(ctx, func(ctx context.Context) {
			if _, err := s.RunGenerationCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warnf("generation cycle failed: %v", err)
			}
		})
		return nil
	})
	if s.features.Lifecycle {
		group.Go(func() error {
			lc := scheduler.New("lifecycle", lifecycleEvery)
			lc.RunImmediately = false
			lc.Run(ctx, func(ctx context.Context) {
				closed, err := s.RunLifecycle(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Warnf("lifecycle pass failed: %v", err)
					return
				}
				if len(closed) > 0 {
					logger.Infof("lifecycle pass closed %d positions", len(closed))
				}
			})
			return nil
		})
	}
	return group.Wait()
}
