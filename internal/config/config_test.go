package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
)

const (
	testCreatorContract     = "ST000000000000000000002AMW42H.creator-nft"
	testMarketplaceContract = "ST000000000000000000002AMW42H.marketplace"
	testPrivateKey          = "0000000000000000000000000000000000000000000000000000000000000001"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0600))
	return configFile, tmpDir
}

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError error
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
stacks:
  network: testnet
  creator_contract: ` + testCreatorContract + `
  marketplace_contract: ` + testMarketplaceContract + `
signer:
  private_key: "` + testPrivateKey + `"
mint:
  max_hold: 90s
lock:
  driver: redis
redis:
  addr: localhost:6379
listener:
  embedded: true
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, domain.NetworkTestnet, cfg.Stacks.NetworkName())
				assert.Equal(t, "https://api.testnet.hiro.so", cfg.Stacks.ResolvedAPIURL())
				assert.Equal(t, "wss://api.testnet.hiro.so/extended/v1/ws", cfg.Stacks.ResolvedWebSocketURL())
				assert.Equal(t, 90*time.Second, cfg.Mint.MaxHold)
				assert.Equal(t, LockDriverRedis, cfg.Lock.Driver)
				assert.True(t, cfg.Listener.Embedded)
			},
		},
		{
			name: "defaults",
			configFile: `
database:
  driver: memory
stacks:
  network: devnet
  creator_contract: ` + testCreatorContract + `
  marketplace_contract: ` + testMarketplaceContract + `
signer:
  private_key: "0x` + testPrivateKey + `01"
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 2*time.Minute, cfg.Mint.MaxHold)
				assert.Equal(t, time.Hour, cfg.Mint.PendingTTL)
				assert.Equal(t, LockDriverMemory, cfg.Lock.Driver)
				assert.Equal(t, ContentDriverLocal, cfg.Content.Driver)
				assert.Equal(t, uint64(2000), cfg.Signer.Fee)
				assert.Equal(t, 10, cfg.Subscriber.MaxRetries)
				assert.Equal(t, time.Second, cfg.Subscriber.InitialBackoff)
				assert.Equal(t, 30*time.Second, cfg.Subscriber.MaxBackoff)
				assert.Equal(t, "http://localhost:3999", cfg.Stacks.ResolvedAPIURL())
				assert.Equal(t, "ws://localhost:3999/extended/v1/ws", cfg.Stacks.ResolvedWebSocketURL())
			},
		},
		{
			name: "missing network",
			configFile: `
database:
  driver: memory
stacks:
  creator_contract: ` + testCreatorContract + `
  marketplace_contract: ` + testMarketplaceContract + `
signer:
  private_key: "` + testPrivateKey + `"
`,
			expectError: domain.ErrInvalidConfig,
		},
		{
			name: "mainnet without opt in",
			configFile: `
database:
  driver: memory
stacks:
  network: mainnet
  creator_contract: ` + testCreatorContract + `
  marketplace_contract: ` + testMarketplaceContract + `
signer:
  private_key: "` + testPrivateKey + `"
`,
			expectError: domain.ErrInvalidConfig,
		},
		{
			name: "contract is not a contract principal",
			configFile: `
database:
  driver: memory
stacks:
  network: testnet
  creator_contract: ST000000000000000000002AMW42H
  marketplace_contract: ` + testMarketplaceContract + `
signer:
  private_key: "` + testPrivateKey + `"
`,
			expectError: domain.ErrInvalidConfig,
		},
		{
			name: "missing signer key",
			configFile: `
database:
  driver: memory
stacks:
  network: testnet
  creator_contract: ` + testCreatorContract + `
  marketplace_contract: ` + testMarketplaceContract + `
`,
			expectError: domain.ErrInvalidConfig,
		},
		{
			name: "redis lock without address",
			configFile: `
database:
  driver: memory
stacks:
  network: testnet
  creator_contract: ` + testCreatorContract + `
  marketplace_contract: ` + testMarketplaceContract + `
signer:
  private_key: "` + testPrivateKey + `"
lock:
  driver: redis
`,
			expectError: domain.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile, envDir := writeConfig(t, tt.configFile)

			cfg, err := LoadAPIConfig(configFile, envDir)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadChainListenerConfig(t *testing.T) {
	configFile, envDir := writeConfig(t, `
database:
  host: localhost
  dbname: testdb
nats:
  url: "nats://localhost:4222"
stacks:
  network: testnet
  websocket_url: "wss://example.com/ws"
  creator_contract: `+testCreatorContract+`
  marketplace_contract: `+testMarketplaceContract+`
worker:
  pool_size: 4
`)

	cfg, err := LoadChainListenerConfig(configFile, envDir)
	require.NoError(t, err)
	assert.Equal(t, DispatchNATS, cfg.Dispatch)
	assert.Equal(t, "STACKS_EVENTS", cfg.NATS.StreamName)
	assert.Equal(t, 4, cfg.Worker.WorkerPoolSize)
	assert.Equal(t, 2048, cfg.Worker.WorkerQueueSize)
	assert.Equal(t, "wss://example.com/ws", cfg.Stacks.ResolvedWebSocketURL())
	assert.Equal(t, uint64(6), cfg.Subscriber.CursorOverlap)
	assert.Zero(t, cfg.Subscriber.StartBlock)
	assert.True(t, cfg.Metadata.Enrich)
	assert.Equal(t, domain.DEFAULT_IPFS_GATEWAY, cfg.Metadata.IPFSGateway)
}

func TestLoadChainListenerConfig_NATSRequired(t *testing.T) {
	configFile, envDir := writeConfig(t, `
database:
  driver: memory
stacks:
  network: testnet
  creator_contract: `+testCreatorContract+`
  marketplace_contract: `+testMarketplaceContract+`
`)

	_, err := LoadChainListenerConfig(configFile, envDir)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestLoadReconcilerConfig(t *testing.T) {
	configFile, envDir := writeConfig(t, `
database:
  host: localhost
  dbname: testdb
nats:
  url: "nats://localhost:4222"
stacks:
  network: testnet
  creator_contract: `+testCreatorContract+`
  marketplace_contract: `+testMarketplaceContract+`
`)

	cfg, err := LoadReconcilerConfig(configFile, envDir)
	require.NoError(t, err)
	assert.Equal(t, "reconciler", cfg.NATS.ConsumerName)
	assert.Equal(t, 5, cfg.NATS.MaxDeliver)
	assert.Equal(t, 30*time.Second, cfg.NATS.AckWait)
	assert.Equal(t, 8, cfg.Worker.WorkerPoolSize)
	assert.Equal(t, domain.DEFAULT_ARWEAVE_GATEWAY, cfg.Metadata.ArweaveGateway)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Sweeper.OrphanMaxAge)
}

func TestLoadAPIConfig_EnvOverride(t *testing.T) {
	configFile, envDir := writeConfig(t, `
database:
  driver: memory
stacks:
  network: testnet
  creator_contract: `+testCreatorContract+`
  marketplace_contract: `+testMarketplaceContract+`
signer:
  private_key: "`+testPrivateKey+`"
`)
	t.Setenv("FF_STACKS_MINT_SERVER_PORT", "9090")
	t.Setenv("FF_STACKS_MINT_STACKS_API_URL", "http://stacks-node:3999/")

	cfg, err := LoadAPIConfig(configFile, envDir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://stacks-node:3999", cfg.Stacks.ResolvedAPIURL())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "mint", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=mint sslmode=disable", cfg.DSN())
}
