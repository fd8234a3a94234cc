package emitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/messaging"
	"github.com/feral-file/ff-stacks-mint/internal/store"
)

const DEFAULT_CURSOR_OVERLAP = 6

// Config holds the configuration for the event emitter
type Config struct {
	Network         domain.Network
	StartBlock      uint64
	CursorSaveFreq  uint64        // Save cursor every N blocks
	CursorSaveDelay time.Duration // Or save cursor every N seconds
	// CursorOverlap blocks are re-read on resume; the engine drops duplicates
	CursorOverlap uint64
}

// Emitter defines the interface for the event emitter
//
//go:generate mockgen -source=emitter.go -destination=../mocks/emitter.go -package=mocks -mock_names=Emitter=MockEmitter
type Emitter interface {
	// Run starts the event emitter
	Run(ctx context.Context) error
	// Close closes the emitter and cleans up resources
	Close()
}

// emitter forwards decoded contract events to a publisher and tracks the block cursor
type emitter struct {
	subscriber messaging.Subscriber
	publisher  messaging.Publisher
	store      store.CursorStore
	config     Config
	clock      adapter.Clock

	mu             sync.Mutex
	lastSavedBlock uint64
	lastSaveTime   time.Time
	// failed holds the block height of events that could not be published, keyed by
	// event key; the cursor stays below the lowest of them
	failed map[string]uint64
}

// NewEmitter creates a new event emitter
func NewEmitter(
	sub messaging.Subscriber,
	pub messaging.Publisher,
	st store.CursorStore,
	cfg Config,
	clock adapter.Clock,
) Emitter {
	return &emitter{
		subscriber: sub,
		publisher:  pub,
		store:      st,
		config:     cfg,
		clock:      clock,
	}
}

// Run starts the event emitter
func (e *emitter) Run(ctx context.Context) error {
	network := string(e.config.Network)

	// Determine starting block
	startBlock := e.config.StartBlock
	if startBlock == 0 {
		lastBlock, err := e.store.GetBlockCursor(ctx, network)
		if err != nil {
			return fmt.Errorf("failed to get block cursor: %w", err)
		}

		if lastBlock > 0 {
			startBlock = 1
			if lastBlock > e.config.CursorOverlap {
				startBlock = lastBlock - e.config.CursorOverlap
			}
			logger.InfoCtx(ctx, "Resuming from last processed block",
				zap.String("network", network),
				zap.Uint64("cursor", lastBlock),
				zap.Uint64("block", startBlock))
		} else {
			// Start from latest block
			latestBlock, err := e.subscriber.GetLatestBlock(ctx)
			if err != nil {
				return fmt.Errorf("failed to get latest block number: %w", err)
			}
			startBlock = latestBlock
			logger.InfoCtx(ctx, "Starting from latest block", zap.String("network", network), zap.Uint64("block", startBlock))
		}
	} else {
		logger.InfoCtx(ctx, "Starting from configured block", zap.String("network", network), zap.Uint64("block", startBlock))
	}

	e.mu.Lock()
	e.lastSavedBlock = 0
	e.lastSaveTime = e.clock.Now()
	e.failed = make(map[string]uint64)
	e.mu.Unlock()

	errCh := make(chan error, 1)

	go func() {
		logger.InfoCtx(ctx, "Starting event subscription", zap.String("network", network))

		handler := func(event *domain.DomainEvent) error {
			if err := e.publisher.PublishEvent(ctx, event); err != nil {
				e.markFailed(event)
				return fmt.Errorf("failed to publish event %s: %w", event.Key(), err)
			}
			e.saveCursor(ctx, event)
			return nil
		}

		if err := e.subscriber.SubscribeEvents(ctx, startBlock, handler); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *emitter) markFailed(event *domain.DomainEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed != nil && event.BlockHeight > 0 {
		e.failed[event.Key()] = event.BlockHeight
	}
}

// saveCursor saves the cursor every N blocks or N seconds. Handlers run concurrently, so
// the cursor only moves forward, and never reaches a block with an unpublished event.
func (e *emitter) saveCursor(ctx context.Context, event *domain.DomainEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.failed, event.Key())

	height := event.BlockHeight
	for _, failed := range e.failed {
		if failed <= height {
			height = failed - 1
		}
	}

	if height <= e.lastSavedBlock {
		return
	}

	shouldSave := height-e.lastSavedBlock >= e.config.CursorSaveFreq ||
		e.clock.Since(e.lastSaveTime) >= e.config.CursorSaveDelay
	if !shouldSave {
		return
	}

	if err := e.store.SetBlockCursor(ctx, string(e.config.Network), height); err != nil {
		logger.WarnCtx(ctx, "Failed to save block cursor", zap.Uint64("block", height), zap.Error(err))
		return
	}
	e.lastSavedBlock = height
	e.lastSaveTime = e.clock.Now()
}

// Close closes the emitter and cleans up resources
func (e *emitter) Close() {
	e.subscriber.Close()
}
