package messaging

import (
	"context"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
)

// EventHandler is called when a new domain event is decoded
type EventHandler func(event *domain.DomainEvent) error

// Subscriber defines the interface for subscribing to contract events
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// SubscribeEvents streams contract events until ctx is done or the subscription fails for good.
	// fromBlock: height to catch up from on connect (0 for live events only)
	// handler: callback function to process each event
	SubscribeEvents(ctx context.Context, fromBlock uint64, handler EventHandler) error

	// GetLatestBlock returns the current chain tip height
	GetLatestBlock(ctx context.Context) (uint64, error)

	// Close closes the connection and cleans up resources
	Close()
}
