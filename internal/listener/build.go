package listener

import (
	"fmt"
	"time"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/emitter"
	"github.com/feral-file/ff-stacks-mint/internal/messaging"
	"github.com/feral-file/ff-stacks-mint/internal/providers/stacks"
	"github.com/feral-file/ff-stacks-mint/internal/store"
)

const (
	DEFAULT_CURSOR_SAVE_FREQ  = 2
	DEFAULT_CURSOR_SAVE_DELAY = 30 * time.Second
)

// Config describes the contracts to follow and how to follow them
type Config struct {
	Network             domain.Network
	CreatorContract     string
	MarketplaceContract string
	StartBlock          uint64
	CursorOverlap       uint64
	Subscriber          stacks.SubscriberConfig
}

// Deps are the collaborators a listener is built from
type Deps struct {
	Dialer    adapter.WebSocketDialer
	Client    stacks.Client
	Publisher messaging.Publisher
	Cursor    store.CursorStore
	Clock     adapter.Clock
}

// New builds the subscriber and emitter pipeline for the configured contracts
func New(cfg Config, deps Deps) (Listener, error) {
	decoder := stacks.NewDecoder(cfg.Network, cfg.CreatorContract, cfg.MarketplaceContract)

	sub, err := stacks.NewSubscriber(cfg.Subscriber, deps.Dialer, deps.Client, decoder, deps.Clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	em := emitter.NewEmitter(sub, deps.Publisher, deps.Cursor, emitter.Config{
		Network:         cfg.Network,
		StartBlock:      cfg.StartBlock,
		CursorSaveFreq:  DEFAULT_CURSOR_SAVE_FREQ,
		CursorSaveDelay: DEFAULT_CURSOR_SAVE_DELAY,
		CursorOverlap:   cfg.CursorOverlap,
	}, deps.Clock)

	return NewListener(em), nil
}
