package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/penline/penline/internal/metrics"
)

// Sweeper periodically purges expired sessions. The gate also deletes expired rows lazily,
// so the sweeper only bounds the size of the table for users who never come back.
type Sweeper struct {
	repo     Repository
	interval time.Duration
	now      func() time.Time
}

// NewSweeper creates a sweeper that runs every interval
func NewSweeper(repo Repository, interval time.Duration) *Sweeper {
	return &Sweeper{repo: repo, interval: interval, now: time.Now}
}

// Run sweeps until ctx is cancelled. A non-positive interval disables sweeping and Run returns immediately.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		slog.Info("Session sweeper disabled")
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Session sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Session sweeper stopped")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass and returns how many sessions were removed
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		slog.Error("Failed to delete expired sessions", "error", err)
		return 0
	}
	if n > 0 {
		metrics.SessionsSwept.Add(float64(n))
		slog.Debug("Deleted expired sessions", "count", n)
	}
	return n
}
