package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/messaging"
	"github.com/feral-file/ff-stacks-mint/internal/reconcile"
)

// DirectConfig bounds retries of transient engine failures
type DirectConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// directPublisher applies events to the reconciliation engine in-process
type directPublisher struct {
	engine reconcile.Engine
	config DirectConfig

	closeOnce sync.Once
	closed    chan struct{}
}

// NewDirectPublisher creates a messaging.Publisher that reconciles events without a broker
func NewDirectPublisher(engine reconcile.Engine, cfg DirectConfig) messaging.Publisher {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * time.Second
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = time.Minute
	}
	return &directPublisher{
		engine: engine,
		config: cfg,
		closed: make(chan struct{}),
	}
}

// PublishEvent applies the event. Parked and invalid events are not retried; the engine
// has already logged them.
func (p *directPublisher) PublishEvent(ctx context.Context, event *domain.DomainEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.InitialInterval
	b.MaxInterval = p.config.MaxInterval
	b.MaxElapsedTime = p.config.MaxElapsedTime

	attempt := 0
	operation := func() error {
		attempt++
		_, err := p.engine.Apply(ctx, *event)
		switch {
		case err == nil, errors.Is(err, domain.ErrConsistency):
			return nil
		case errors.Is(err, domain.ErrInvalidEvent):
			return backoff.Permanent(err)
		default:
			logger.WarnCtx(ctx, "Reconcile failed, retrying",
				zap.String("key", event.Key()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, domain.ErrInvalidEvent) {
			return nil
		}
		return fmt.Errorf("failed to reconcile event %s: %w", event.Key(), err)
	}
	return nil
}

func (p *directPublisher) Close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

func (p *directPublisher) CloseChan() <-chan struct{} {
	return p.closed
}
