package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

// HousekeepingService periodically reclaims expired codes, tokens, sessions
// and one-time codes. Stores already ignore expired entries on read, so this
// only bounds memory and disk use.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Metrics  *metrics.Recorder

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 5 minutes.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. It is non-blocking; call Stop to shut
// the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one sweep and returns how many entries were removed. Each
// kind is swept independently; a failure in one does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	sweeps := []struct {
		kind string
		fn   func(context.Context) (int64, error)
	}{
		{"authorization_codes", s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes},
		{"refresh_tokens", s.Store.RefreshTokens().DeleteExpiredRefreshTokens},
		{"two_factor_sessions", s.Store.TwoFactorSessions().DeleteExpiredTwoFactorSessions},
		{"one_time_codes", s.Store.OneTimeCodes().DeleteExpiredOneTimeCodes},
	}

	var total int64
	for _, sw := range sweeps {
		n, err := sw.fn(ctx)
		if err != nil {
			s.Logger.Error("housekeeping sweep failed", "kind", sw.kind, "error", err)
			continue
		}
		s.Metrics.Swept(sw.kind, n)
		total += n
	}

	s.Logger.Debug("housekeeping cleanup completed", "deleted", total)
	return total
}
