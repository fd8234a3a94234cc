package minting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/clarity"
	"github.com/feral-file/ff-stacks-mint/internal/content"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/lock"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/providers/stacks"
)

const (
	DEFAULT_LOCK_KEY       = "mint"
	DEFAULT_MAX_HOLD       = 2 * time.Minute
	DEFAULT_PENDING_TTL    = time.Hour
	DEFAULT_MAX_MEDIA_SIZE = 20 * 1024 * 1024
	DEFAULT_FEE            = 2000

	// leaseMargin keeps the lease alive a little longer than the mint context
	leaseMargin = 10 * time.Second
	maxTitleLen = 256
)

// Config holds the minting coordinator configuration
type Config struct {
	Network         domain.Network
	CreatorContract string
	Fee             uint64 // micro-STX
	LockKey         string
	// MaxHold bounds how long one mint may hold the mint slot
	MaxHold      time.Duration
	PendingTTL   time.Duration
	MaxMediaSize int64
}

func (c *Config) applyDefaults() {
	if c.Fee == 0 {
		c.Fee = DEFAULT_FEE
	}
	if c.LockKey == "" {
		c.LockKey = DEFAULT_LOCK_KEY
	}
	if c.MaxHold <= 0 {
		c.MaxHold = DEFAULT_MAX_HOLD
	}
	if c.PendingTTL <= 0 {
		c.PendingTTL = DEFAULT_PENDING_TTL
	}
	if c.MaxMediaSize <= 0 {
		c.MaxMediaSize = DEFAULT_MAX_MEDIA_SIZE
	}
}

// MintRequest is a request to mint one asset
type MintRequest struct {
	Creator     string
	Title       string
	Description string
	Media       []byte
}

// MintReceipt is returned once the mint transaction is broadcast. It does not mean the
// mint is confirmed.
type MintReceipt struct {
	TxID          string `json:"tx_id"`
	MediaURL      string `json:"media_url"`
	MetadataURL   string `json:"metadata_url"`
	TokenID       uint64 `json:"token_id"`
	CorrelationID string `json:"correlation_id"`
}

// PendingMint correlates a broadcast transaction with the token id reserved for it.
// It is advisory: the confirmed mint event is authoritative.
type PendingMint struct {
	TxID          string    `json:"tx_id"`
	TokenID       uint64    `json:"token_id"`
	Creator       string    `json:"creator"`
	MediaURL      string    `json:"media_url"`
	MetadataURL   string    `json:"metadata_url"`
	CorrelationID string    `json:"correlation_id"`
	BroadcastAt   time.Time `json:"broadcast_at"`
}

// Metadata is the token metadata document stored next to the media
type Metadata struct {
	SIP         int                `json:"sip"`
	Name        string             `json:"name"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Image       string             `json:"image"`
	Properties  MetadataProperties `json:"properties"`
}

// MetadataProperties holds the SIP-016 properties of a minted asset
type MetadataProperties struct {
	Creator     string `json:"creator"`
	ContentType string `json:"content_type,omitempty"`
}

// Coordinator mints assets one at a time
//
//go:generate mockgen -source=coordinator.go -destination=../mocks/minting.go -package=mocks -mock_names=Coordinator=MockCoordinator
type Coordinator interface {
	// Mint reserves a token id, uploads media and metadata, and broadcasts the mint
	// transaction. It returns domain.ErrMintInProgress while another mint holds the slot.
	Mint(ctx context.Context, req MintRequest) (*MintReceipt, error)
	// Pending returns the bookkeeping of a recent mint broadcast by this process
	Pending(txID string) (*PendingMint, bool)
}

type coordinator struct {
	config  Config
	sender  string
	client  stacks.Client
	keys    stacks.KeyProvider
	content content.Store
	locker  lock.Locker
	json    adapter.JSON
	clock   adapter.Clock

	mu      sync.Mutex
	pending map[string]PendingMint
}

// NewCoordinator creates a minting coordinator. The key provider's address on the
// configured network is the transaction sender.
func NewCoordinator(
	cfg Config,
	client stacks.Client,
	keys stacks.KeyProvider,
	contentStore content.Store,
	locker lock.Locker,
	json adapter.JSON,
	clock adapter.Clock,
) (Coordinator, error) {
	cfg.applyDefaults()

	if _, err := domain.ParseNetwork(string(cfg.Network)); err != nil {
		return nil, err
	}
	if !strings.Contains(cfg.CreatorContract, ".") || !clarity.IsValidAddress(cfg.CreatorContract) {
		return nil, fmt.Errorf("%w: invalid creator contract %q", domain.ErrInvalidConfig, cfg.CreatorContract)
	}

	sender, err := keys.Address(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to derive signer address: %w", domain.ErrInvalidConfig, err)
	}

	return &coordinator{
		config:  cfg,
		sender:  sender,
		client:  client,
		keys:    keys,
		content: contentStore,
		locker:  locker,
		json:    json,
		clock:   clock,
		pending: make(map[string]PendingMint),
	}, nil
}

// Mint implements Coordinator
func (c *coordinator) Mint(ctx context.Context, req MintRequest) (*MintReceipt, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	correlationID := ulid.Make().String()
	fields := []zap.Field{
		zap.String("correlation_id", correlationID),
		zap.String("creator", req.Creator),
	}

	lease, err := c.locker.TryAcquire(ctx, c.config.LockKey, c.config.MaxHold+leaseMargin)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			logger.InfoCtx(ctx, "Mint rejected, another mint is in progress", fields...)
			return nil, domain.ErrMintInProgress
		}
		return nil, fmt.Errorf("failed to acquire mint slot: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to release mint slot: %w", err), fields...)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.config.MaxHold)
	defer cancel()

	started := c.clock.Now()
	receipt, err := c.mintLocked(ctx, req, correlationID, fields)
	if err != nil {
		logger.WarnCtx(ctx, "Mint failed",
			append(fields, zap.Error(err), zap.Duration("elapsed", c.clock.Since(started)))...)
		return nil, err
	}

	logger.InfoCtx(ctx, "Mint transaction broadcast",
		append(fields,
			zap.String("tx_id", receipt.TxID),
			zap.Uint64("token_id", receipt.TokenID),
			zap.Duration("elapsed", c.clock.Since(started)))...)

	return receipt, nil
}

// mintLocked runs the mint steps while the caller holds the mint slot
func (c *coordinator) mintLocked(ctx context.Context, req MintRequest, correlationID string, fields []zap.Field) (*MintReceipt, error) {
	// Reserve the next id; the contract remains the arbiter
	last, err := c.client.GetLastTokenID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last token id: %w", err)
	}
	var tokenID uint64
	if last != nil {
		tokenID = *last + 1
	}
	key := strconv.FormatUint(tokenID, 10)

	logger.DebugCtx(ctx, "Reserved token id", append(fields, zap.Uint64("token_id", tokenID))...)

	media, err := c.content.Upload(ctx, req.Media, domain.MEDIA_FOLDER, key)
	if err != nil {
		return nil, fmt.Errorf("%w: media: %w", domain.ErrUploadFailed, err)
	}

	doc, err := c.json.MarshalCanonical(Metadata{
		SIP:         16,
		Name:        req.Title,
		Title:       req.Title,
		Description: req.Description,
		Image:       media.URL,
		Properties: MetadataProperties{
			Creator:     req.Creator,
			ContentType: media.ContentType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	metadata, err := c.content.Upload(ctx, doc, domain.METADATA_FOLDER, key)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", domain.ErrUploadFailed, err)
	}

	nonce, err := c.client.GetAccountNonce(ctx, c.sender)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	args, err := stacks.MintArgs(req.Creator, metadata.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	signed, err := stacks.BuildContractCall(stacks.ContractCall{
		Network:      c.config.Network,
		ContractID:   c.config.CreatorContract,
		FunctionName: domain.FUNCTION_MINT,
		Args:         args,
		Nonce:        nonce,
		Fee:          c.config.Fee,
	}, c.keys)
	if err != nil {
		return nil, fmt.Errorf("failed to build mint transaction: %w", err)
	}

	txID, err := c.client.Broadcast(ctx, signed.Raw)
	if err != nil {
		return nil, err
	}
	if txID != signed.TxID {
		logger.WarnCtx(ctx, "Node returned a different transaction id",
			append(fields, zap.String("local_tx_id", signed.TxID), zap.String("node_tx_id", txID))...)
	}

	c.recordPending(PendingMint{
		TxID:          txID,
		TokenID:       tokenID,
		Creator:       req.Creator,
		MediaURL:      media.URL,
		MetadataURL:   metadata.URL,
		CorrelationID: correlationID,
		BroadcastAt:   c.clock.Now(),
	})

	return &MintReceipt{
		TxID:          txID,
		MediaURL:      media.URL,
		MetadataURL:   metadata.URL,
		TokenID:       tokenID,
		CorrelationID: correlationID,
	}, nil
}

func (c *coordinator) validate(req MintRequest) error {
	version, _, err := clarity.DecodeAddress(req.Creator)
	if err != nil || strings.Contains(req.Creator, ".") {
		return fmt.Errorf("%w: creator must be a standard principal", domain.ErrInvalidRequest)
	}
	if (version == domain.AddressVersionMainnetSingleSig || version == domain.AddressVersionMainnetMultiSig) != c.config.Network.IsMainnet() {
		return fmt.Errorf("%w: creator %s is not a %s address", domain.ErrInvalidRequest, req.Creator, c.config.Network)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidRequest)
	}
	if len(title) > maxTitleLen {
		return fmt.Errorf("%w: title is longer than %d bytes", domain.ErrInvalidRequest, maxTitleLen)
	}
	if len(req.Media) == 0 {
		return fmt.Errorf("%w: media is required", domain.ErrInvalidRequest)
	}
	if int64(len(req.Media)) > c.config.MaxMediaSize {
		return fmt.Errorf("%w: media is larger than %d bytes", domain.ErrInvalidRequest, c.config.MaxMediaSize)
	}
	return nil
}

func (c *coordinator) recordPending(p PendingMint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	c.pending[stacks.NormalizeTxID(p.TxID)] = p
}

// expireLocked drops pending mints past their ttl
func (c *coordinator) expireLocked() {
	for txID, p := range c.pending {
		if c.clock.Since(p.BroadcastAt) > c.config.PendingTTL {
			delete(c.pending, txID)
		}
	}
}

// Pending implements Coordinator
func (c *coordinator) Pending(txID string) (*PendingMint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	p, ok := c.pending[stacks.NormalizeTxID(txID)]
	if !ok {
		return nil, false
	}
	return &p, true
}
