package listener

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/emitter"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
)

// Listener runs the chain event subscription in the background
type Listener interface {
	// Start launches the subscription once; later calls return the same channel. The channel
	// receives the error that stopped the subscription for good and is closed when it stops.
	Start(ctx context.Context) <-chan error
	// Close stops the subscription
	Close()
}

type listener struct {
	emitter emitter.Emitter

	once  sync.Once
	errCh chan error
}

// NewListener creates a listener around an emitter
func NewListener(em emitter.Emitter) Listener {
	return &listener{
		emitter: em,
		errCh:   make(chan error, 1),
	}
}

func (l *listener) Start(ctx context.Context) <-chan error {
	l.once.Do(func() {
		go func() {
			defer close(l.errCh)

			logger.InfoCtx(ctx, "Starting chain event listener")
			err := l.emitter.Run(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				logger.InfoCtx(ctx, "Chain event listener stopped")
				return
			}

			logger.ErrorCtx(ctx, err, zap.String("message", "Chain event listener failed"))
			l.errCh <- err
		}()
	})
	return l.errCh
}

func (l *listener) Close() {
	l.emitter.Close()
}
