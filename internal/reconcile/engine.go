package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/metadata"
	"github.com/feral-file/ff-stacks-mint/internal/store"
	"github.com/feral-file/ff-stacks-mint/internal/store/schema"
)

// Outcome describes what applying an event did
type Outcome string

const (
	// OutcomeApplied means the event changed the asset
	OutcomeApplied Outcome = "applied"
	// OutcomeStale means the event was journaled but a newer event already set its fields
	OutcomeStale Outcome = "stale"
	// OutcomeDuplicate means the event was applied before
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeOrphaned means the asset does not exist yet and the event was parked
	OutcomeOrphaned Outcome = "orphaned"
)

// Config holds the reconciliation engine configuration
type Config struct {
	Network domain.Network
	// EnrichMetadata fetches off-chain metadata for newly created assets
	EnrichMetadata bool
}

// Engine applies confirmed contract events to the store. Every apply is idempotent and
// safe under redelivery and reordering.
//
//go:generate mockgen -source=engine.go -destination=../mocks/reconcile.go -package=mocks -mock_names=Engine=MockEngine
type Engine interface {
	// Apply dispatches on the event kind
	Apply(ctx context.Context, event domain.DomainEvent) (Outcome, error)
	// ApplyMintConfirmed creates the asset or merges into an existing one, then replays
	// events parked for the token
	ApplyMintConfirmed(ctx context.Context, event domain.DomainEvent) (Outcome, error)
	// ApplyPurchaseConfirmed transfers ownership to the buyer and clears the listing.
	// Returns domain.ErrConsistency when the asset does not exist yet.
	ApplyPurchaseConfirmed(ctx context.Context, event domain.DomainEvent) (Outcome, error)
	// ApplyListingConfirmed lists the asset at the event price
	ApplyListingConfirmed(ctx context.Context, event domain.DomainEvent) (Outcome, error)
	// ApplyUnlistingConfirmed clears the listing
	ApplyUnlistingConfirmed(ctx context.Context, event domain.DomainEvent) (Outcome, error)
}

type engine struct {
	config   Config
	store    store.Store
	resolver metadata.Resolver
	json     adapter.JSON
}

// NewEngine creates a reconciliation engine. resolver may be nil.
func NewEngine(config Config, st store.Store, resolver metadata.Resolver, json adapter.JSON) Engine {
	return &engine{
		config:   config,
		store:    st,
		resolver: resolver,
		json:     json,
	}
}

// Apply implements Engine
func (e *engine) Apply(ctx context.Context, event domain.DomainEvent) (Outcome, error) {
	switch event.Kind {
	case domain.EventKindMintConfirmed:
		return e.ApplyMintConfirmed(ctx, event)
	case domain.EventKindPurchaseConfirmed:
		return e.ApplyPurchaseConfirmed(ctx, event)
	case domain.EventKindListingConfirmed:
		return e.ApplyListingConfirmed(ctx, event)
	case domain.EventKindUnlistingConfirmed:
		return e.ApplyUnlistingConfirmed(ctx, event)
	default:
		return "", fmt.Errorf("%w: unknown event kind %q", domain.ErrInvalidEvent, event.Kind)
	}
}

// ApplyMintConfirmed implements Engine
func (e *engine) ApplyMintConfirmed(ctx context.Context, event domain.DomainEvent) (Outcome, error) {
	return e.applyKind(ctx, domain.EventKindMintConfirmed, event)
}

// ApplyPurchaseConfirmed implements Engine
func (e *engine) ApplyPurchaseConfirmed(ctx context.Context, event domain.DomainEvent) (Outcome, error) {
	return e.applyKind(ctx, domain.EventKindPurchaseConfirmed, event)
}

// ApplyListingConfirmed implements Engine
func (e *engine) ApplyListingConfirmed(ctx context.Context, event domain.DomainEvent) (Outcome, error) {
	return e.applyKind(ctx, domain.EventKindListingConfirmed, event)
}

// ApplyUnlistingConfirmed implements Engine
func (e *engine) ApplyUnlistingConfirmed(ctx context.Context, event domain.DomainEvent) (Outcome, error) {
	return e.applyKind(ctx, domain.EventKindUnlistingConfirmed, event)
}

// applyKind validates the event and applies it in one store transaction holding the token lock
func (e *engine) applyKind(ctx context.Context, kind domain.EventKind, event domain.DomainEvent) (Outcome, error) {
	if event.Kind == "" {
		event.Kind = kind
	}
	if event.Kind != kind {
		return "", fmt.Errorf("%w: expected %s event, got %s", domain.ErrInvalidEvent, kind, event.Kind)
	}
	if err := e.validate(&event); err != nil {
		return "", err
	}

	fields := eventFields(&event)

	var outcome Outcome
	var created bool
	err := e.store.RunInTx(ctx, func(tx store.Store) error {
		if err := tx.LockToken(ctx, event.TokenID); err != nil {
			return fmt.Errorf("failed to lock token: %w", err)
		}

		var err error
		outcome, created, err = e.applyLocked(ctx, tx, &event)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			logger.InfoCtx(ctx, "Event already applied", fields...)
			return OutcomeDuplicate, nil
		}
		logger.ErrorCtx(ctx, fmt.Errorf("failed to apply event: %w", err), fields...)
		return "", err
	}

	switch outcome {
	case OutcomeDuplicate:
		logger.InfoCtx(ctx, "Event already applied", fields...)
	case OutcomeOrphaned:
		// the mint replays it later
		err := fmt.Errorf("%w: %s for token %s without a minted asset", domain.ErrConsistency, event.Kind, event.TokenID)
		logger.ErrorCtx(ctx, err, fields...)
		return outcome, err
	default:
		logger.InfoCtx(ctx, "Event applied", append(fields, zap.String("outcome", string(outcome)))...)
	}

	if created {
		e.enrich(ctx, &event)
	}

	return outcome, nil
}

func (e *engine) validate(event *domain.DomainEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidEvent, err)
	}
	if e.config.Network != "" && event.Network != "" && event.Network != e.config.Network {
		return fmt.Errorf("%w: event from %s, engine runs on %s", domain.ErrInvalidEvent, event.Network, e.config.Network)
	}
	return nil
}

// applyLocked applies one event inside a transaction. The returned bool reports whether a
// new asset row was created.
func (e *engine) applyLocked(ctx context.Context, tx store.Store, event *domain.DomainEvent) (Outcome, bool, error) {
	applied, err := tx.IsEventApplied(ctx, event.TxID, int64(event.EventIndex))
	if err != nil {
		return "", false, fmt.Errorf("failed to check journal: %w", err)
	}
	if applied {
		return OutcomeDuplicate, false, nil
	}

	var outcome Outcome
	var created bool
	switch event.Kind {
	case domain.EventKindMintConfirmed:
		outcome, created, err = e.mint(ctx, tx, event)
	default:
		outcome, err = e.mutate(ctx, tx, event)
	}
	if err != nil {
		return "", false, err
	}
	if outcome == OutcomeOrphaned {
		return outcome, false, nil
	}

	recorded, err := tx.RecordAppliedEvent(ctx, &schema.AppliedEvent{
		TxID:       event.TxID,
		EventIndex: int64(event.EventIndex),
		Kind:       string(event.Kind),
		TokenID:    event.TokenID,
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to journal event: %w", err)
	}
	if !recorded {
		// another writer journaled it first; roll back our changes
		return "", false, domain.ErrDuplicateEvent
	}

	if event.Kind == domain.EventKindMintConfirmed {
		if err := e.replayOrphans(ctx, tx, event.TokenID); err != nil {
			return "", false, err
		}
	}

	return outcome, created, nil
}

// mint creates the asset or merges the mint into an existing row without replacing an
// owner written by a newer event
func (e *engine) mint(ctx context.Context, tx store.Store, event *domain.DomainEvent) (Outcome, bool, error) {
	pos := event.Position()

	asset, err := tx.GetAsset(ctx, event.TokenID)
	if err != nil {
		return "", false, fmt.Errorf("failed to get asset: %w", err)
	}

	if asset == nil {
		asset, err = e.newAsset(event)
		if err != nil {
			return "", false, err
		}
		ok, err := tx.CreateAsset(ctx, asset)
		if err != nil {
			return "", false, fmt.Errorf("failed to create asset: %w", err)
		}
		if ok {
			return OutcomeApplied, true, nil
		}

		// lost a race with another writer, merge into its row
		asset, err = tx.GetAsset(ctx, event.TokenID)
		if err != nil {
			return "", false, fmt.Errorf("failed to get asset: %w", err)
		}
		if asset == nil {
			return "", false, fmt.Errorf("asset %s vanished after create conflict", event.TokenID)
		}
	}

	changed := false
	if asset.CreatorAddress == "" {
		asset.CreatorAddress = event.Recipient
		changed = true
	}
	if asset.MintTxID == "" {
		asset.MintTxID = event.TxID
		changed = true
	}
	if asset.MintedAt == nil && !event.Timestamp.IsZero() {
		ts := event.Timestamp
		asset.MintedAt = &ts
		changed = true
	}
	if asset.MetadataURL == "" && event.URI != "" {
		asset.MetadataURL = event.URI
		changed = true
	}
	if asset.OwnerAddress == "" || pos.Newer(asset.OwnerPosition) {
		if asset.OwnerAddress != event.Recipient || asset.OwnerPosition != pos.Int64() {
			asset.OwnerAddress = event.Recipient
			asset.OwnerPosition = pos.Int64()
			changed = true
		}
	} else if asset.OwnerAddress != event.Recipient {
		logger.WarnCtx(ctx, "Mint recipient differs from current owner, keeping owner set by a newer event",
			append(eventFields(event), zap.String("owner", asset.OwnerAddress))...)
	}

	if !changed {
		return OutcomeStale, false, nil
	}

	asset.LastTxID = event.TxID
	if err := tx.SaveAsset(ctx, asset); err != nil {
		return "", false, fmt.Errorf("failed to save asset: %w", err)
	}
	return OutcomeApplied, false, nil
}

func (e *engine) newAsset(event *domain.DomainEvent) (*schema.Asset, error) {
	asset := &schema.Asset{
		TokenID:        event.TokenID,
		Network:        string(event.Network),
		ContractID:     event.ContractID,
		CreatorAddress: event.Recipient,
		OwnerAddress:   event.Recipient,
		MetadataURL:    event.URI,
		Listed:         false,
		MintTxID:       event.TxID,
		LastTxID:       event.TxID,
		OwnerPosition:  event.Position().Int64(),
	}
	if asset.Network == "" {
		asset.Network = string(e.config.Network)
	}
	if !event.Timestamp.IsZero() {
		ts := event.Timestamp
		asset.MintedAt = &ts
	}
	if len(event.Attributes) > 0 {
		attrs, err := e.json.Marshal(event.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal attributes: %w", err)
		}
		asset.Attributes = datatypes.JSON(attrs)
	}
	return asset, nil
}

// mutate applies purchase, listing and unlisting events. Events for a token that has no
// asset yet are parked.
func (e *engine) mutate(ctx context.Context, tx store.Store, event *domain.DomainEvent) (Outcome, error) {
	asset, err := tx.GetAsset(ctx, event.TokenID)
	if err != nil {
		return "", fmt.Errorf("failed to get asset: %w", err)
	}
	if asset == nil {
		if err := e.park(ctx, tx, event); err != nil {
			return "", err
		}
		return OutcomeOrphaned, nil
	}

	pos := event.Position()
	changed := false

	switch event.Kind {
	case domain.EventKindPurchaseConfirmed:
		if pos.Newer(asset.OwnerPosition) {
			if event.Seller != "" && event.Seller != asset.OwnerAddress {
				logger.WarnCtx(ctx, "Purchase seller differs from stored owner",
					append(eventFields(event), zap.String("owner", asset.OwnerAddress))...)
			}
			asset.OwnerAddress = event.Buyer
			asset.OwnerPosition = pos.Int64()
			changed = true
		}
		if pos.Newer(asset.ListingPosition) {
			asset.Listed = false
			asset.ListingPrice = nil
			asset.ListingPosition = pos.Int64()
			changed = true
		}
	case domain.EventKindListingConfirmed:
		if pos.Newer(asset.ListingPosition) {
			asset.Listed = true
			asset.ListingPrice = event.Price
			asset.ListingPosition = pos.Int64()
			changed = true
		}
	case domain.EventKindUnlistingConfirmed:
		if pos.Newer(asset.ListingPosition) {
			asset.Listed = false
			asset.ListingPrice = nil
			asset.ListingPosition = pos.Int64()
			changed = true
		}
	}

	if !changed {
		return OutcomeStale, nil
	}

	asset.LastTxID = event.TxID
	if err := tx.SaveAsset(ctx, asset); err != nil {
		return "", fmt.Errorf("failed to save asset: %w", err)
	}
	return OutcomeApplied, nil
}

// park saves an event whose asset does not exist yet
func (e *engine) park(ctx context.Context, tx store.Store, event *domain.DomainEvent) error {
	payload, err := e.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal orphan event: %w", err)
	}

	if err := tx.SaveOrphanEvent(ctx, &schema.OrphanEvent{
		TxID:       event.TxID,
		EventIndex: int64(event.EventIndex),
		TokenID:    event.TokenID,
		Kind:       string(event.Kind),
		Position:   event.Position().Int64(),
		Payload:    datatypes.JSON(payload),
	}); err != nil {
		return fmt.Errorf("failed to save orphan event: %w", err)
	}
	return nil
}

// replayOrphans applies events parked for a token, in position order
func (e *engine) replayOrphans(ctx context.Context, tx store.Store, tokenID string) error {
	orphans, err := tx.TakeOrphanEvents(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("failed to take orphan events: %w", err)
	}

	for _, orphan := range orphans {
		var event domain.DomainEvent
		if err := e.json.Unmarshal(orphan.Payload, &event); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to decode orphan event: %w", err),
				zap.String("tx_id", orphan.TxID), zap.Int64("event_index", orphan.EventIndex))
			continue
		}

		outcome, _, err := e.applyLocked(ctx, tx, &event)
		if err != nil {
			return fmt.Errorf("failed to replay orphan event %s: %w", event.Key(), err)
		}
		logger.InfoCtx(ctx, "Replayed parked event",
			append(eventFields(&event), zap.String("outcome", string(outcome)))...)
	}
	return nil
}

// enrich fills metadata columns of a new asset. Failures are logged only.
func (e *engine) enrich(ctx context.Context, event *domain.DomainEvent) {
	if !e.config.EnrichMetadata || e.resolver == nil {
		return
	}

	tokenID, err := strconv.ParseUint(event.TokenID, 10, 64)
	if err != nil {
		return
	}

	md, err := e.resolver.Resolve(ctx, tokenID, event.URI)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to resolve token metadata", append(eventFields(event), zap.Error(err))...)
		return
	}
	if md == nil {
		return
	}

	if err := e.store.FillAssetMetadata(ctx, event.TokenID, store.AssetMetadataInput{
		Title:       md.Name,
		Description: md.Description,
		MediaURL:    md.Image,
		MetadataURL: md.URI,
	}); err != nil {
		logger.WarnCtx(ctx, "Failed to store token metadata", append(eventFields(event), zap.Error(err))...)
	}
}

func eventFields(event *domain.DomainEvent) []zap.Field {
	return []zap.Field{
		zap.String("kind", string(event.Kind)),
		zap.String("token_id", event.TokenID),
		zap.String("tx_id", event.TxID),
		zap.Uint32("event_index", event.EventIndex),
		zap.Uint64("block_height", event.BlockHeight),
	}
}
