package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/config"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/listener"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/messaging"
	"github.com/feral-file/ff-stacks-mint/internal/metadata"
	"github.com/feral-file/ff-stacks-mint/internal/providers/jetstream"
	"github.com/feral-file/ff-stacks-mint/internal/providers/stacks"
	"github.com/feral-file/ff-stacks-mint/internal/ratelimit"
	"github.com/feral-file/ff-stacks-mint/internal/reconcile"
	"github.com/feral-file/ff-stacks-mint/internal/store"
	"github.com/feral-file/ff-stacks-mint/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadChainListenerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		Environment:     cfg.Environment,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "chain-listener",
			"network": cfg.Stacks.Network,
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Chain Listener",
		zap.String("network", cfg.Stacks.Network),
		zap.String("dispatch", cfg.Dispatch))

	// Initialize store
	var dataStore store.Store
	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		logger.WarnCtx(ctx, "Using in-memory store, the cursor is lost on restart")
		dataStore = store.NewMemoryStore()
	default:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
		}
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
		}
		dataStore = store.NewPGStore(db)
		logger.InfoCtx(ctx, "Connected to database")
	}

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	httpClient := adapter.NewHTTPClient(cfg.Stacks.HTTPTimeout)

	limiterCfg := ratelimit.Config{
		Name:              "stacks-api",
		RequestsPerSecond: cfg.Stacks.RequestsPerSecond,
		Burst:             cfg.Stacks.Burst,
		KeyPrefix:         cfg.Redis.KeyPrefix,
	}
	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		redisClient := adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = redisClient.Close() }()
		limiter = ratelimit.NewDistributed(limiterCfg, redisClient, clockAdapter)
	} else {
		limiter = ratelimit.NewLocal(limiterCfg)
	}

	deployer, _, _ := strings.Cut(cfg.Stacks.CreatorContract, ".")
	stacksClient := stacks.NewClient(stacks.ClientConfig{
		APIURL:          cfg.Stacks.ResolvedAPIURL(),
		CreatorContract: cfg.Stacks.CreatorContract,
		SenderAddress:   deployer,
	}, httpClient, limiter)

	// Initialize publisher
	var publisher messaging.Publisher
	switch cfg.Dispatch {
	case config.DispatchDirect:
		var resolver metadata.Resolver
		if cfg.Metadata.Enrich {
			resolver = metadata.NewResolver(stacksClient, httpClient, jsonAdapter, metadata.Config{
				IPFSGateway:    cfg.Metadata.IPFSGateway,
				ArweaveGateway: cfg.Metadata.ArweaveGateway,
			})
		}
		engine := reconcile.NewEngine(reconcile.Config{
			Network:        cfg.Stacks.NetworkName(),
			EnrichMetadata: cfg.Metadata.Enrich,
		}, dataStore, resolver, jsonAdapter)
		publisher = listener.NewDirectPublisher(engine, listener.DirectConfig{})
		logger.InfoCtx(ctx, "Events are reconciled in process")
		if cfg.Sweeper.Enabled {
			orphanSweeper := sweeper.NewOrphanSweeper(sweeper.OrphanSweeperConfig{
				Interval: cfg.Sweeper.Interval,
				MaxAge:   cfg.Sweeper.OrphanMaxAge,
			}, dataStore, clockAdapter)
			go func() {
				if err := orphanSweeper.Start(ctx); err != nil {
					logger.ErrorCtx(ctx, err, zap.String("component", orphanSweeper.Name()))
				}
			}()
		}
	default:
		publisher, err = jetstream.NewPublisher(
			ctx,
			jetstream.Config{
				URL:            cfg.NATS.URL,
				StreamName:     cfg.NATS.StreamName,
				MaxReconnects:  cfg.NATS.MaxReconnects,
				ReconnectWait:  cfg.NATS.ReconnectWait,
				ConnectionName: cfg.NATS.ConnectionName,
				DedupWindow:    cfg.NATS.DedupWindow,
			}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		logger.InfoCtx(ctx, "Connected to NATS JetStream")
	}
	defer publisher.Close()

	// Create listener
	chainListener, err := listener.New(listener.Config{
		Network:             cfg.Stacks.NetworkName(),
		CreatorContract:     cfg.Stacks.CreatorContract,
		MarketplaceContract: cfg.Stacks.MarketplaceContract,
		StartBlock:          cfg.Subscriber.StartBlock,
		CursorOverlap:       cfg.Subscriber.CursorOverlap,
		Subscriber: stacks.SubscriberConfig{
			WebSocketURL:    cfg.Stacks.ResolvedWebSocketURL(),
			MaxRetries:      uint64(cfg.Subscriber.MaxRetries), //nolint:gosec,G115
			InitialBackoff:  cfg.Subscriber.InitialBackoff,
			MaxBackoff:      cfg.Subscriber.MaxBackoff,
			WorkerPoolSize:  cfg.Worker.WorkerPoolSize,
			WorkerQueueSize: cfg.Worker.WorkerQueueSize,
			CatchUpPageSize: cfg.Subscriber.CatchUpPageSize,
			CatchUpMaxPages: cfg.Subscriber.CatchUpMaxPages,
		},
	}, listener.Deps{
		Dialer:    adapter.NewWebSocketDialer(),
		Client:    stacksClient,
		Publisher: publisher,
		Cursor:    dataStore,
		Clock:     clockAdapter,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create chain listener", zap.Error(err))
	}
	defer chainListener.Close()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := chainListener.Start(ctx)

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case <-publisher.CloseChan():
		logger.InfoCtx(ctx, "Publisher closed unexpectedly")
		cancel()
	case err, ok := <-errCh:
		if ok && errors.Is(err, domain.ErrMaxRetriesExceeded) {
			logger.FatalCtx(ctx, "Chain listener gave up reconnecting", zap.Error(err))
		}
		if ok {
			logger.ErrorCtx(ctx, err, zap.String("component", "listener"))
		}
		cancel()
	}

	// Give some time for graceful shutdown
	time.Sleep(time.Second)

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("Chain Listener stopped")
}
