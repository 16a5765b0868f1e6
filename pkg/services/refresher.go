package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// HelpfulnessRefresher runs the periodic helpfulness recomputation. The
// underlying statement only rewrites derived columns, so it is safe to run
// while live queries read the same rows.
type HelpfulnessRefresher struct {
	patterns PatternService
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewHelpfulnessRefresher creates a refresher running at the given interval.
func NewHelpfulnessRefresher(patterns PatternService, interval time.Duration, logger *zap.Logger) *HelpfulnessRefresher {
	return &HelpfulnessRefresher{
		patterns: patterns,
		interval: interval,
		logger:   logger.Named("refresher"),
	}
}

// Start launches the background goroutine. One refresh runs immediately so
// a fresh deployment does not wait a full interval for its first pass.
func (r *HelpfulnessRefresher) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		r.refresh(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.refresh(ctx)
			}
		}
	}()

	r.logger.Info("Helpfulness refresher started", zap.Duration("interval", r.interval))
}

// Stop cancels the goroutine and waits for it to exit.
func (r *HelpfulnessRefresher) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.logger.Info("Helpfulness refresher stopped")
}

func (r *HelpfulnessRefresher) refresh(ctx context.Context) {
	if _, err := r.patterns.RefreshHelpfulness(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("Scheduled helpfulness refresh failed", zap.Error(err))
	}
}
