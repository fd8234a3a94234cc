package jetstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/messaging"
)

const (
	DEFAULT_STREAM_NAME  = "STACKS_EVENTS"
	DEFAULT_DEDUP_WINDOW = 10 * time.Minute

	// SUBJECT_PREFIX is followed by the event kind, e.g. events.stacks.mint_confirmed
	SUBJECT_PREFIX = "events.stacks"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	// DedupWindow is the broker-side window for dropping events with a known message id
	DedupWindow time.Duration
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON

	closeOnce sync.Once
	closed    chan struct{}
}

// ConnectOptions returns the NATS options shared by the publisher and the bridge
func ConnectOptions(name string, maxReconnects int, reconnectWait time.Duration) []nats.Option {
	return []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}
}

// StreamConfig returns the stream that carries decoded contract events
func StreamConfig(name string, dedupWindow time.Duration) jetstream.StreamConfig {
	if name == "" {
		name = DEFAULT_STREAM_NAME
	}
	if dedupWindow <= 0 {
		dedupWindow = DEFAULT_DEDUP_WINDOW
	}
	return jetstream.StreamConfig{
		Name:       name,
		Subjects:   []string{SUBJECT_PREFIX + ".>"},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		Duplicates: dedupWindow,
	}
}

// NewPublisher creates a new NATS JetStream publisher and makes sure the event stream exists
func NewPublisher(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	nc, js, err := natsJS.Connect(cfg.URL, ConnectOptions(cfg.ConnectionName, cfg.MaxReconnects, cfg.ReconnectWait)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	streamCfg := StreamConfig(cfg.StreamName, cfg.DedupWindow)
	if err := js.EnsureStream(ctx, streamCfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", streamCfg.Name, err)
	}

	return &publisher{
		nc:         nc,
		js:         js,
		streamName: streamCfg.Name,
		json:       jsonAdapter,
		closed:     make(chan struct{}),
	}, nil
}

// Subject returns the subject an event is published on
func Subject(kind domain.EventKind) string {
	return fmt.Sprintf("%s.%s", SUBJECT_PREFIX, kind)
}

// PublishEvent publishes a contract event to NATS JetStream. The event key is the message
// id, so the broker drops redeliveries inside the dedup window.
func (p *publisher) PublishEvent(ctx context.Context, event *domain.DomainEvent) error {
	logger.DebugCtx(ctx, "Publishing Nats event", zap.String("kind", string(event.Kind)), zap.String("key", event.Key()))

	data, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := p.js.Publish(ctx, Subject(event.Kind), data, jetstream.WithMsgID(event.Key()))
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if ack != nil && ack.Duplicate {
		logger.DebugCtx(ctx, "Broker dropped duplicate event", zap.String("key", event.Key()))
	}

	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	p.closeOnce.Do(func() {
		if p.nc != nil {
			p.nc.Close()
		}
		close(p.closed)
	})
}

// CloseChan returns a channel that is closed when the publisher is closed
func (p *publisher) CloseChan() <-chan struct{} {
	return p.closed
}
