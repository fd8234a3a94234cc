package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/store"
)

const (
	DEFAULT_SWEEP_INTERVAL = 15 * time.Minute
	DEFAULT_ORPHAN_MAX_AGE = 24 * time.Hour
	ORPHAN_SWEEPER_NAME    = "orphan-event-sweeper"
)

// OrphanSweeperConfig holds configuration for the orphan event sweeper
type OrphanSweeperConfig struct {
	Interval time.Duration // Time to sleep between sweep cycles
	MaxAge   time.Duration // Orphans parked longer than this are dropped
}

// orphanSweeper drops parked events whose mint never showed up
type orphanSweeper struct {
	config    OrphanSweeperConfig
	store     store.Store
	clock     adapter.Clock
	running   atomic.Bool
	stopOnce  sync.Once
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewOrphanSweeper creates a new orphan event sweeper
func NewOrphanSweeper(config OrphanSweeperConfig, st store.Store, clock adapter.Clock) Sweeper {
	if config.Interval <= 0 {
		config.Interval = DEFAULT_SWEEP_INTERVAL
	}
	if config.MaxAge <= 0 {
		config.MaxAge = DEFAULT_ORPHAN_MAX_AGE
	}

	return &orphanSweeper{
		config:    config,
		store:     st,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (s *orphanSweeper) Name() string {
	return ORPHAN_SWEEPER_NAME
}

// Start runs sweep cycles until the context is canceled or Stop is called
func (s *orphanSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting orphan event sweeper",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("max_age", s.config.MaxAge),
	)

	for {
		if _, err := s.runSweepCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCtx(ctx, err)
		}

		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Orphan event sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Orphan event sweeper stop requested")
			return nil
		case <-s.clock.After(s.config.Interval):
		}
	}
}

// Stop signals the main loop and waits for it to exit
func (s *orphanSweeper) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	s.stopOnce.Do(func() { close(s.stopChan) })

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Orphan event sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Orphan event sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle purges orphans older than MaxAge and returns how many were dropped
func (s *orphanSweeper) runSweepCycle(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.config.MaxAge)

	purged, err := s.store.PurgeOrphanEvents(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge orphan events: %w", err)
	}

	for _, event := range purged {
		logger.WarnCtx(ctx, "Dropped orphan event with no matching mint",
			zap.String("token_id", event.TokenID),
			zap.String("tx_id", event.TxID),
			zap.Int64("event_index", event.EventIndex),
			zap.String("kind", event.Kind),
			zap.Time("parked_at", event.CreatedAt),
		)
	}

	if len(purged) > 0 {
		logger.InfoCtx(ctx, "Orphan sweep cycle completed", zap.Int("purged", len(purged)))
	}

	return len(purged), nil
}
