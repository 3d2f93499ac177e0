// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredLister finds the locations whose access token expired before a
// unix second.
type ExpiredLister interface {
	ListExpired(ctx context.Context, before int64) ([]string, error)
}

// TokenSource refreshes a location's token when it has expired.
type TokenSource interface {
	GetValidToken(ctx context.Context, locationID string) (string, error)
}

// RelinkTracker is implemented by token sources that remember locations
// waiting for an operator to re-link them.
type RelinkTracker interface {
	NeedsRelink(locationID string) bool
}

// TokenRefreshWorker refreshes expired connections ahead of the next
// request, so a revoked grant triggers the relink mail without traffic.
type TokenRefreshWorker struct {
	lister       ExpiredLister
	tokens       TokenSource
	tickInterval time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewTokenRefreshWorker(lister ExpiredLister, tokens TokenSource, interval time.Duration, logger *zap.Logger) *TokenRefreshWorker {
	return &TokenRefreshWorker{
		lister:       lister,
		tokens:       tokens,
		tickInterval: interval,
		logger:       logger,
		now:          time.Now,
	}
}

// Start sweeps once immediately, then on every tick until ctx is done.
func (w *TokenRefreshWorker) Start(ctx context.Context) {
	w.logger.Info("token refresh worker started", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("token refresh worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep refreshes every expired connection once and returns how many
// refreshes succeeded and failed. Locations already waiting for a re-link
// are skipped.
func (w *TokenRefreshWorker) Sweep(ctx context.Context) (refreshed, failed int) {
	ids, err := w.lister.ListExpired(ctx, w.now().Unix())
	if err != nil {
		w.logger.Error("list expired connections", zap.Error(err))
		return 0, 0
	}

	tracker, _ := w.tokens.(RelinkTracker)
	skipped := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if tracker != nil && tracker.NeedsRelink(id) {
			skipped++
			continue
		}
		if _, err := w.tokens.GetValidToken(ctx, id); err != nil {
			w.logger.Warn("background refresh failed", zap.String("location_id", id), zap.Error(err))
			failed++
			continue
		}
		refreshed++
	}

	if refreshed > 0 || failed > 0 {
		w.logger.Info("token sweep finished",
			zap.Int("refreshed", refreshed),
			zap.Int("failed", failed),
			zap.Int("awaiting_relink", skipped))
	}
	return refreshed, failed
}
