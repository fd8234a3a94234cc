package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	jspkg "github.com/feral-file/ff-stacks-mint/internal/providers/jetstream"
	"github.com/feral-file/ff-stacks-mint/internal/reconcile"
)

const (
	DEFAULT_CONSUMER_NAME = "reconciler"
	DEFAULT_WORKERS       = 8
)

// Config holds the configuration for the event bridge
type Config struct {
	URL            string
	StreamName     string
	ConsumerName   string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	AckWaitTimeout time.Duration
	MaxDeliver     int
	DedupWindow    time.Duration
	Workers        int
}

// Bridge defines the interface for the event bridge
type Bridge interface {
	// Run consumes events until ctx is done or the consumer stops
	Run(ctx context.Context) error
	// Close closes the bridge and cleans up resources
	Close()
}

type bridge struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	engine reconcile.Engine
	json   adapter.JSON
	config Config
}

// NewBridge creates a new event bridge from JetStream to the reconciliation engine
func NewBridge(
	ctx context.Context,
	cfg Config,
	natsJS adapter.NatsJetStream,
	engine reconcile.Engine,
	jsonAdapter adapter.JSON,
) (Bridge, error) {
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = DEFAULT_CONSUMER_NAME
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DEFAULT_WORKERS
	}

	nc, js, err := natsJS.Connect(cfg.URL, jspkg.ConnectOptions(cfg.ConnectionName, cfg.MaxReconnects, cfg.ReconnectWait)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	// the listener may not have created the stream yet
	streamCfg := jspkg.StreamConfig(cfg.StreamName, cfg.DedupWindow)
	if err := js.EnsureStream(ctx, streamCfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", streamCfg.Name, err)
	}
	cfg.StreamName = streamCfg.Name

	return &bridge{
		nc:     nc,
		js:     js,
		engine: engine,
		json:   jsonAdapter,
		config: cfg,
	}, nil
}

// Run starts the event bridge
func (b *bridge) Run(ctx context.Context) error {
	logger.InfoCtx(ctx, "Starting event bridge", zap.String("stream", b.config.StreamName), zap.String("consumer", b.config.ConsumerName))

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       b.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       b.config.AckWaitTimeout,
		MaxDeliver:    b.config.MaxDeliver,
		FilterSubject: jspkg.SUBJECT_PREFIX + ".>",
	}

	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.InfoCtx(ctx, "Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	pool := pond.NewPool(b.config.Workers, pond.WithContext(ctx))
	defer pool.StopAndWait()

	msgChan := make(chan adapter.Message, 100)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		select {
		case msgChan <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.InfoCtx(ctx, "Started consuming messages")

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Shutting down event bridge")
			return ctx.Err()
		case <-sub.Closed():
			return errors.New("consumer closed")
		case msg := <-msgChan:
			pool.Submit(func() {
				b.handleMessage(ctx, msg)
			})
		}
	}
}

// handleMessage applies one event. Applied, duplicate and parked events are acked,
// events that can never apply are terminated and everything else is redelivered.
func (b *bridge) handleMessage(ctx context.Context, msg adapter.Message) {
	var delivered uint64
	if metadata, err := msg.Metadata(); err == nil && metadata != nil {
		delivered = metadata.NumDelivered
	}

	var event domain.DomainEvent
	if err := b.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to unmarshal event: %w", err), zap.String("subject", msg.Subject()))
		terminate(ctx, msg)
		return
	}

	logger.InfoCtx(ctx, "Received event",
		zap.String("kind", string(event.Kind)),
		zap.String("token_id", event.TokenID),
		zap.String("tx_id", event.TxID),
		zap.Uint64("delivery_count", delivered),
	)

	outcome, err := b.engine.Apply(ctx, event)
	switch {
	case err == nil:
		logger.DebugCtx(ctx, "Event reconciled", zap.String("key", event.Key()), zap.String("outcome", string(outcome)))
	case errors.Is(err, domain.ErrConsistency):
		// parked until the mint arrives
	case errors.Is(err, domain.ErrInvalidEvent):
		terminate(ctx, msg)
		return
	default:
		logger.ErrorCtx(ctx, fmt.Errorf("failed to reconcile event: %w", err), zap.String("key", event.Key()))
		if err := msg.Nak(); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to NAK message: %w", err))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to ACK message: %w", err))
	}
}

func terminate(ctx context.Context, msg adapter.Message) {
	if err := msg.Term(); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to terminate message: %w", err))
	}
}

// Close closes the bridge and cleans up resources
func (b *bridge) Close() {
	if b.nc == nil {
		return
	}

	b.nc.Close()
}
