package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/api/middleware"
	"github.com/feral-file/ff-stacks-mint/internal/api/server"
	"github.com/feral-file/ff-stacks-mint/internal/config"
	"github.com/feral-file/ff-stacks-mint/internal/content"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/listener"
	"github.com/feral-file/ff-stacks-mint/internal/lock"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/metadata"
	"github.com/feral-file/ff-stacks-mint/internal/minting"
	"github.com/feral-file/ff-stacks-mint/internal/providers/cloudflare"
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
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		Environment:     cfg.Environment,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
			"network": cfg.Stacks.Network,
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Stacks Mint API", zap.String("network", cfg.Stacks.Network))

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
		logger.InfoCtx(ctx, "Connected to database",
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
			zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		)
	}

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	fs := adapter.NewFileSystem()
	httpClient := adapter.NewHTTPClient(cfg.Stacks.HTTPTimeout)

	var redisClient adapter.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient = adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisClient.Ping(ctx); err != nil {
			logger.FatalCtx(ctx, "Failed to connect to Redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr))
		}
		defer func() { _ = redisClient.Close() }()
		logger.InfoCtx(ctx, "Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Signing key; only the derived address is ever logged
	keys, err := stacks.NewStaticKeyProvider(cfg.Signer.PrivateKey)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load signer key", zap.Error(err))
	}
	sender, err := keys.Address(cfg.Stacks.NetworkName())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to derive signer address", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Loaded signer", zap.String("address", sender))

	// Ledger client
	limiterCfg := ratelimit.Config{
		Name:              "stacks-api",
		RequestsPerSecond: cfg.Stacks.RequestsPerSecond,
		Burst:             cfg.Stacks.Burst,
		KeyPrefix:         cfg.Redis.KeyPrefix,
	}
	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewDistributed(limiterCfg, redisClient, clockAdapter)
	} else {
		limiter = ratelimit.NewLocal(limiterCfg)
	}
	stacksClient := stacks.NewClient(stacks.ClientConfig{
		APIURL:          cfg.Stacks.ResolvedAPIURL(),
		CreatorContract: cfg.Stacks.CreatorContract,
		SenderAddress:   sender,
	}, httpClient, limiter)

	// Content store
	var contentStore content.Store
	mediaDir := ""
	switch cfg.Content.Driver {
	case config.ContentDriverCloudflare:
		cfClient, err := adapter.NewCloudflareClient(cfg.Cloudflare.APIToken)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create Cloudflare client", zap.Error(err))
		}
		contentStore = cloudflare.NewContentStore(cfClient, cloudflare.Config{
			AccountID:     cfg.Cloudflare.AccountID,
			KVNamespaceID: cfg.Cloudflare.KVNamespaceID,
			PublicBaseURL: cfg.Cloudflare.PublicBaseURL,
		})
	default:
		contentStore = content.NewLocalStore(cfg.Content.LocalDir, cfg.Content.PublicBaseURL, fs, clockAdapter)
		mediaDir = cfg.Content.LocalDir
	}
	logger.InfoCtx(ctx, "Content store ready", zap.String("driver", cfg.Content.Driver))

	// Mint lease
	var locker lock.Locker
	switch cfg.Lock.Driver {
	case config.LockDriverRedis:
		locker = lock.NewRedisLocker(redisClient, cfg.Redis.KeyPrefix)
	default:
		locker = lock.NewMemoryLocker(clockAdapter)
	}

	coordinator, err := minting.NewCoordinator(minting.Config{
		Network:         cfg.Stacks.NetworkName(),
		CreatorContract: cfg.Stacks.CreatorContract,
		Fee:             cfg.Signer.Fee,
		LockKey:         cfg.Lock.Key,
		MaxHold:         cfg.Mint.MaxHold,
		PendingTTL:      cfg.Mint.PendingTTL,
		MaxMediaSize:    cfg.Mint.MaxMediaSize,
	}, stacksClient, keys, contentStore, locker, jsonAdapter, clockAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create minting coordinator", zap.Error(err))
	}

	// Embedded listener reconciles events into the same store
	var listenerErrCh <-chan error
	if cfg.Listener.Embedded {
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
			Publisher: listener.NewDirectPublisher(engine, listener.DirectConfig{}),
			Cursor:    dataStore,
			Clock:     clockAdapter,
		})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create chain listener", zap.Error(err))
		}
		defer chainListener.Close()
		listenerErrCh = chainListener.Start(ctx)
	}

	// Create server config
	serverConfig := server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxMediaSize:   cfg.Mint.MaxMediaSize,
		MediaDir:       mediaDir,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	// Create and start server
	srv := server.New(serverConfig, dataStore, coordinator)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	case err, ok := <-listenerErrCh:
		if ok && errors.Is(err, domain.ErrMaxRetriesExceeded) {
			logger.FatalCtx(ctx, "Chain listener gave up reconnecting", zap.Error(err))
		}
		if ok {
			logger.ErrorCtx(ctx, err, zap.String("component", "listener"))
		}
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
