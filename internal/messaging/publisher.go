package messaging

import (
	"context"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
)

// Publisher defines the interface for publishing domain events
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes a decoded contract event
	PublishEvent(ctx context.Context, event *domain.DomainEvent) error
	// Close closes the connection
	Close()
	// CloseChan returns a channel that is closed when the publisher is closed
	CloseChan() <-chan struct{}
}
