package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-stacks-mint/internal/clarity"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
)

const envPrefix = "FF_STACKS_MINT"

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Lock drivers
const (
	LockDriverMemory = "memory"
	LockDriverRedis  = "redis"
)

// Content drivers
const (
	ContentDriverLocal      = "local"
	ContentDriverCloudflare = "cloudflare"
)

// Dispatch modes for decoded events
const (
	DispatchNATS   = "nats"
	DispatchDirect = "direct"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug       bool   `mapstructure:"debug"`
	SentryDSN   string `mapstructure:"sentry_dsn"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	ConsumerName   string        `mapstructure:"consumer_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	AckWait        time.Duration `mapstructure:"ack_wait"`
	MaxDeliver     int           `mapstructure:"max_deliver"`
	DedupWindow    time.Duration `mapstructure:"dedup_window"`
}

// StacksConfig holds the network binding and the contracts this service works with
type StacksConfig struct {
	Network             string        `mapstructure:"network"`
	AllowMainnet        bool          `mapstructure:"allow_mainnet"`
	APIURL              string        `mapstructure:"api_url"`
	WebSocketURL        string        `mapstructure:"websocket_url"`
	CreatorContract     string        `mapstructure:"creator_contract"`
	MarketplaceContract string        `mapstructure:"marketplace_contract"`
	HTTPTimeout         time.Duration `mapstructure:"http_timeout"`
	RequestsPerSecond   int           `mapstructure:"requests_per_second"`
	Burst               int           `mapstructure:"burst"`
}

// SignerConfig holds the minting key. The key is never logged.
type SignerConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	Fee        uint64 `mapstructure:"fee"` // micro-STX
}

// SubscriberConfig holds the event subscriber's reconnect policy
type SubscriberConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	CatchUpPageSize int           `mapstructure:"catch_up_page_size"`
	CatchUpMaxPages int           `mapstructure:"catch_up_max_pages"`
	// StartBlock overrides the saved cursor when set
	StartBlock    uint64 `mapstructure:"start_block"`
	CursorOverlap uint64 `mapstructure:"cursor_overlap"`
}

// MetadataConfig controls off-chain metadata enrichment of reconciled assets
type MetadataConfig struct {
	Enrich         bool   `mapstructure:"enrich"`
	IPFSGateway    string `mapstructure:"ipfs_gateway"`
	ArweaveGateway string `mapstructure:"arweave_gateway"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	WorkerPoolSize  int `mapstructure:"pool_size"`
	WorkerQueueSize int `mapstructure:"queue_size"`
}

// SweeperConfig controls the orphan event sweeper
type SweeperConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Interval     time.Duration `mapstructure:"interval"`
	OrphanMaxAge time.Duration `mapstructure:"orphan_max_age"`
}

// MintConfig holds minting coordinator configuration
type MintConfig struct {
	MaxHold      time.Duration `mapstructure:"max_hold"`
	PendingTTL   time.Duration `mapstructure:"pending_ttl"`
	MaxMediaSize int64         `mapstructure:"max_media_size"`
}

// LockConfig selects the mint lease implementation
type LockConfig struct {
	Driver string `mapstructure:"driver"` // memory or redis
	Key    string `mapstructure:"key"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ContentConfig selects where media and metadata are stored
type ContentConfig struct {
	Driver        string `mapstructure:"driver"` // local or cloudflare
	LocalDir      string `mapstructure:"local_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// CloudflareConfig holds Cloudflare configuration
type CloudflareConfig struct {
	AccountID     string `mapstructure:"account_id"`
	APIToken      string `mapstructure:"api_token"`
	KVNamespaceID string `mapstructure:"kv_namespace_id"`
	PublicBaseURL string `mapstructure:"public_base_url"` // serves Workers KV entries
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
	// AllowedOrigins restricts CORS; empty allows every origin
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// ListenerConfig controls the event listener embedded in the API process
type ListenerConfig struct {
	Embedded bool `mapstructure:"embedded"`
}

// APIConfig holds configuration for the API server and minting coordinator
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Stacks     StacksConfig     `mapstructure:"stacks"`
	Signer     SignerConfig     `mapstructure:"signer"`
	Mint       MintConfig       `mapstructure:"mint"`
	Lock       LockConfig       `mapstructure:"lock"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Content    ContentConfig    `mapstructure:"content"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Listener   ListenerConfig   `mapstructure:"listener"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	Sweeper    SweeperConfig    `mapstructure:"sweeper"`
}

// ChainListenerConfig holds configuration for chain-listener
type ChainListenerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Stacks     StacksConfig     `mapstructure:"stacks"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	Sweeper    SweeperConfig    `mapstructure:"sweeper"`
	Dispatch   string           `mapstructure:"dispatch"` // nats or direct
}

// ReconcilerConfig holds configuration for reconciler
type ReconcilerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Stacks     StacksConfig   `mapstructure:"stacks"`
	Worker     WorkerConfig   `mapstructure:"worker"`
	Metadata   MetadataConfig `mapstructure:"metadata"`
	Sweeper    SweeperConfig  `mapstructure:"sweeper"`
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	setCommonDefaults(v)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("signer.fee", 2000)
	v.SetDefault("mint.max_hold", "2m")
	v.SetDefault("mint.pending_ttl", "1h")
	v.SetDefault("mint.max_media_size", 20*1024*1024) // 20MB
	v.SetDefault("lock.driver", LockDriverMemory)
	v.SetDefault("lock.key", "mint")
	v.SetDefault("content.driver", ContentDriverLocal)
	v.SetDefault("content.local_dir", "uploads")
	v.SetDefault("content.public_base_url", "http://localhost:8080/media")
	v.SetDefault("listener.embedded", false)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate fails fast on settings the API cannot run without
func (c *APIConfig) Validate() error {
	if err := c.Stacks.Validate(); err != nil {
		return err
	}
	if err := c.Signer.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.Mint.MaxHold <= 0 {
		return fmt.Errorf("%w: mint.max_hold must be positive", domain.ErrInvalidConfig)
	}

	switch c.Lock.Driver {
	case LockDriverMemory:
	case LockDriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis lock", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown lock.driver %q", domain.ErrInvalidConfig, c.Lock.Driver)
	}

	switch c.Content.Driver {
	case ContentDriverLocal:
		if c.Content.LocalDir == "" || c.Content.PublicBaseURL == "" {
			return fmt.Errorf("%w: content.local_dir and content.public_base_url are required", domain.ErrInvalidConfig)
		}
	case ContentDriverCloudflare:
		if c.Cloudflare.AccountID == "" || c.Cloudflare.APIToken == "" || c.Cloudflare.KVNamespaceID == "" || c.Cloudflare.PublicBaseURL == "" {
			return fmt.Errorf("%w: cloudflare account_id, api_token, kv_namespace_id and public_base_url are required", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown content.driver %q", domain.ErrInvalidConfig, c.Content.Driver)
	}

	return nil
}

// LoadChainListenerConfig loads configuration for chain-listener
func LoadChainListenerConfig(configFile string, envPath string) (*ChainListenerConfig, error) {
	v := configureViper("chain-listener", configFile, envPath)

	setCommonDefaults(v)
	v.SetDefault("dispatch", DispatchNATS)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var config ChainListenerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Stacks.Validate(); err != nil {
		return nil, err
	}
	if err := config.Database.Validate(); err != nil {
		return nil, err
	}
	switch config.Dispatch {
	case DispatchDirect:
	case DispatchNATS:
		if config.NATS.URL == "" {
			return nil, fmt.Errorf("%w: nats.url is required for nats dispatch", domain.ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unknown dispatch %q", domain.ErrInvalidConfig, config.Dispatch)
	}

	return &config, nil
}

// LoadReconcilerConfig loads configuration for reconciler
func LoadReconcilerConfig(configFile string, envPath string) (*ReconcilerConfig, error) {
	v := configureViper("reconciler", configFile, envPath)

	setCommonDefaults(v)
	v.SetDefault("nats.consumer_name", "reconciler")
	v.SetDefault("worker.pool_size", 8)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var config ReconcilerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Stacks.Validate(); err != nil {
		return nil, err
	}
	if err := config.Database.Validate(); err != nil {
		return nil, err
	}
	if config.NATS.URL == "" {
		return nil, fmt.Errorf("%w: nats.url is required", domain.ErrInvalidConfig)
	}

	return &config, nil
}

// Validate checks the network binding. There is no default network and mainnet
// must be allowed explicitly.
func (c *StacksConfig) Validate() error {
	network, err := domain.ParseNetwork(c.Network)
	if err != nil {
		return err
	}
	if network.IsMainnet() && !c.AllowMainnet {
		return fmt.Errorf("%w: mainnet requires stacks.allow_mainnet", domain.ErrInvalidConfig)
	}

	for name, id := range map[string]string{
		"stacks.creator_contract":     c.CreatorContract,
		"stacks.marketplace_contract": c.MarketplaceContract,
	} {
		if id == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrInvalidConfig, name)
		}
		if !strings.Contains(id, ".") || !clarity.IsValidAddress(id) {
			return fmt.Errorf("%w: %s %q is not a contract principal", domain.ErrInvalidConfig, name, id)
		}
	}

	return nil
}

// NetworkName returns the parsed network. Call Validate first.
func (c *StacksConfig) NetworkName() domain.Network {
	return domain.Network(c.Network)
}

// ResolvedAPIURL returns the configured gateway or the network's public one
func (c *StacksConfig) ResolvedAPIURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	return c.NetworkName().DefaultAPIURL()
}

// ResolvedWebSocketURL returns the configured websocket endpoint or derives it from the gateway
func (c *StacksConfig) ResolvedWebSocketURL() string {
	if c.WebSocketURL != "" {
		return c.WebSocketURL
	}
	base := c.ResolvedAPIURL()
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/extended/v1/ws"
}

// Validate checks the signing key shape without revealing it
func (c *SignerConfig) Validate() error {
	key := strings.TrimPrefix(c.PrivateKey, "0x")
	if key == "" {
		return fmt.Errorf("%w: signer.private_key is required", domain.ErrInvalidConfig)
	}
	if _, err := hex.DecodeString(key); err != nil || (len(key) != 64 && len(key) != 66) {
		return fmt.Errorf("%w: signer.private_key must be 32 bytes of hex, optionally with a 01 suffix", domain.ErrInvalidConfig)
	}
	return nil
}

// Validate checks the store driver
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case StoreDriverMemory:
		return nil
	case StoreDriverPostgres:
		if c.Host == "" || c.DBName == "" {
			return fmt.Errorf("%w: database.host and database.dbname are required", domain.ErrInvalidConfig)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown database.driver %q", domain.ErrInvalidConfig, c.Driver)
	}
}

func setCommonDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("database.driver", StoreDriverPostgres)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "STACKS_EVENTS")
	v.SetDefault("nats.ack_wait", "30s")
	v.SetDefault("nats.max_deliver", 5)
	v.SetDefault("nats.dedup_window", "10m")
	v.SetDefault("redis.key_prefix", "ff:stacks-mint:")
	v.SetDefault("stacks.http_timeout", "30s")
	v.SetDefault("stacks.requests_per_second", 10)
	v.SetDefault("stacks.burst", 10)
	v.SetDefault("subscriber.max_retries", 10)
	v.SetDefault("subscriber.initial_backoff", "1s")
	v.SetDefault("subscriber.max_backoff", "30s")
	v.SetDefault("subscriber.catch_up_page_size", 50)
	v.SetDefault("subscriber.catch_up_max_pages", 20)
	v.SetDefault("subscriber.cursor_overlap", 6)
	v.SetDefault("worker.pool_size", 20)
	v.SetDefault("worker.queue_size", 2048)
	v.SetDefault("metadata.enrich", true)
	v.SetDefault("metadata.ipfs_gateway", domain.DEFAULT_IPFS_GATEWAY)
	v.SetDefault("metadata.arweave_gateway", domain.DEFAULT_ARWEAVE_GATEWAY)
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", "15m")
	v.SetDefault("sweeper.orphan_max_age", "24h")
}

func readInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"environment",
		"dispatch",
		// Database
		"database.driver",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.consumer_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.ack_wait",
		"nats.max_deliver",
		"nats.dedup_window",
		// Stacks
		"stacks.network",
		"stacks.allow_mainnet",
		"stacks.api_url",
		"stacks.websocket_url",
		"stacks.creator_contract",
		"stacks.marketplace_contract",
		"stacks.http_timeout",
		"stacks.requests_per_second",
		"stacks.burst",
		// Signer
		"signer.private_key",
		"signer.fee",
		// Subscriber
		"subscriber.max_retries",
		"subscriber.initial_backoff",
		"subscriber.max_backoff",
		"subscriber.catch_up_page_size",
		"subscriber.catch_up_max_pages",
		"subscriber.start_block",
		"subscriber.cursor_overlap",
		// Metadata
		"metadata.enrich",
		"metadata.ipfs_gateway",
		"metadata.arweave_gateway",
		// Mint
		"mint.max_hold",
		"mint.pending_ttl",
		"mint.max_media_size",
		"lock.driver",
		"lock.key",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		"redis.key_prefix",
		// Content
		"content.driver",
		"content.local_dir",
		"content.public_base_url",
		// Cloudflare
		"cloudflare.account_id",
		"cloudflare.api_token",
		"cloudflare.kv_namespace_id",
		"cloudflare.public_base_url",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.allowed_origins",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Listener
		"listener.embedded",
		// Worker
		"worker.pool_size",
		"worker.queue_size",
		// Sweeper
		"sweeper.enabled",
		"sweeper.interval",
		"sweeper.orphan_max_age",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile))
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
