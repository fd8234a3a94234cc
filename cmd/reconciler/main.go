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
	"github.com/feral-file/ff-stacks-mint/internal/bridge"
	"github.com/feral-file/ff-stacks-mint/internal/config"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/metadata"
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
	cfg, err := config.LoadReconcilerConfig(*configFile, *envPath)
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
			"service": "reconciler",
			"network": cfg.Stacks.Network,
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Reconciler", zap.String("network", cfg.Stacks.Network))

	// Initialize store
	var dataStore store.Store
	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		logger.WarnCtx(ctx, "Using in-memory store, state is lost on restart")
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
	natsJS := adapter.NewNatsJetStream()
	httpClient := adapter.NewHTTPClient(cfg.Stacks.HTTPTimeout)

	// Pace ledger reads; shared across replicas when redis is configured
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

	// Metadata enrichment reads token uris through the ledger client
	var resolver metadata.Resolver
	if cfg.Metadata.Enrich {
		deployer, _, _ := strings.Cut(cfg.Stacks.CreatorContract, ".")
		stacksClient := stacks.NewClient(stacks.ClientConfig{
			APIURL:          cfg.Stacks.ResolvedAPIURL(),
			CreatorContract: cfg.Stacks.CreatorContract,
			SenderAddress:   deployer,
		}, httpClient, limiter)
		resolver = metadata.NewResolver(stacksClient, httpClient, jsonAdapter, metadata.Config{
			IPFSGateway:    cfg.Metadata.IPFSGateway,
			ArweaveGateway: cfg.Metadata.ArweaveGateway,
		})
	}

	engine := reconcile.NewEngine(reconcile.Config{
		Network:        cfg.Stacks.NetworkName(),
		EnrichMetadata: cfg.Metadata.Enrich,
	}, dataStore, resolver, jsonAdapter)

	// Create bridge
	eventBridge, err := bridge.NewBridge(
		ctx,
		bridge.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			ConsumerName:   cfg.NATS.ConsumerName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
			AckWaitTimeout: cfg.NATS.AckWait,
			MaxDeliver:     cfg.NATS.MaxDeliver,
			DedupWindow:    cfg.NATS.DedupWindow,
			Workers:        cfg.Worker.WorkerPoolSize,
		},
		natsJS,
		engine,
		jsonAdapter,
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create event bridge", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer eventBridge.Close()
	logger.InfoCtx(ctx, "Event bridge created", zap.String("stream", cfg.NATS.StreamName), zap.String("consumer", cfg.NATS.ConsumerName))

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel for bridge errors
	errCh := make(chan error, 1)

	// Start the bridge
	go func() {
		if err := eventBridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	// Drop parked orphans whose mint never arrived
	var orphanSweeper sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		orphanSweeper = sweeper.NewOrphanSweeper(sweeper.OrphanSweeperConfig{
			Interval: cfg.Sweeper.Interval,
			MaxAge:   cfg.Sweeper.OrphanMaxAge,
		}, dataStore, clockAdapter)
		go func() {
			if err := orphanSweeper.Start(ctx); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("component", orphanSweeper.Name()))
			}
		}()
	}

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "bridge"))
		cancel()
	}

	if orphanSweeper != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := orphanSweeper.Stop(stopCtx); err != nil {
			logger.WarnCtx(stopCtx, "Failed to stop sweeper", zap.Error(err))
		}
		stopCancel()
	}

	// Give some time for in-flight events to settle
	time.Sleep(time.Second)

	logger.Info("Reconciler stopped")
}
