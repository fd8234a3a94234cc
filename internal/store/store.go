package store

import (
	"context"
	"time"

	"github.com/feral-file/ff-stacks-mint/internal/store/schema"
)

// AssetFilter narrows ListAssets
type AssetFilter struct {
	Owner   string
	Creator string
	Listed  *bool
	Limit   int
	Offset  int
}

// AssetMetadataInput carries off-chain metadata for an asset. Empty fields are ignored and
// only empty columns are filled, so on-chain derived values are never overwritten.
type AssetMetadataInput struct {
	Title       string
	Description string
	MediaURL    string
	MetadataURL string
}

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	CursorStore

	// RunInTx runs fn in a transaction. fn must use the Store it is given.
	RunInTx(ctx context.Context, fn func(tx Store) error) error
	// LockToken serializes writers of one token until the surrounding transaction ends
	LockToken(ctx context.Context, tokenID string) error

	// GetAsset retrieves an asset by token id, nil if it does not exist
	GetAsset(ctx context.Context, tokenID string) (*schema.Asset, error)
	// GetAssetByMintTxID retrieves an asset by the transaction that minted it, nil if none
	GetAssetByMintTxID(ctx context.Context, txID string) (*schema.Asset, error)
	// ListAssets returns assets matching the filter, newest first, and the total count
	ListAssets(ctx context.Context, filter AssetFilter) ([]schema.Asset, int64, error)
	// CreateAsset inserts an asset; returns false when one with the same token id exists
	CreateAsset(ctx context.Context, asset *schema.Asset) (bool, error)
	// SaveAsset writes every column of an existing asset
	SaveAsset(ctx context.Context, asset *schema.Asset) error
	// FillAssetMetadata sets metadata columns that are still empty
	FillAssetMetadata(ctx context.Context, tokenID string, input AssetMetadataInput) error

	// IsEventApplied checks the applied-events journal
	IsEventApplied(ctx context.Context, txID string, eventIndex int64) (bool, error)
	// RecordAppliedEvent journals an event; returns false if it was already journaled
	RecordAppliedEvent(ctx context.Context, event *schema.AppliedEvent) (bool, error)

	// SaveOrphanEvent parks an event whose asset does not exist yet. Saving twice is a no-op.
	SaveOrphanEvent(ctx context.Context, event *schema.OrphanEvent) error
	// TakeOrphanEvents removes and returns the parked events of a token in position order
	TakeOrphanEvents(ctx context.Context, tokenID string) ([]schema.OrphanEvent, error)
	// PurgeOrphanEvents removes events parked before the cutoff and returns them
	PurgeOrphanEvents(ctx context.Context, before time.Time) ([]schema.OrphanEvent, error)

	// GetKeyValue retrieves a value, empty if the key does not exist
	GetKeyValue(ctx context.Context, key string) (string, error)
	// SetKeyValue sets a value
	SetKeyValue(ctx context.Context, key string, value string) error
}
