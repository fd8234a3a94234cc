package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/store/schema"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type pgStore struct {
	kvCursor
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	s := &pgStore{db: db}
	s.kvCursor = kvCursor{get: s.GetKeyValue, set: s.SetKeyValue}
	return s
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to 20 open, 5 idle, 5 minute lifetime and 10 minute idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// RunInTx runs fn in a database transaction; nested calls use savepoints
func (s *pgStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewPGStore(tx))
	})
}

// LockToken takes a transaction-scoped advisory lock keyed by the token id
func (s *pgStore) LockToken(ctx context.Context, tokenID string) error {
	if err := s.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", tokenID).Error; err != nil {
		return fmt.Errorf("failed to lock token %s: %w", tokenID, err)
	}
	return nil
}

// GetAsset retrieves an asset by token id
func (s *pgStore) GetAsset(ctx context.Context, tokenID string) (*schema.Asset, error) {
	var asset schema.Asset
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

// GetAssetByMintTxID retrieves an asset by its mint transaction
func (s *pgStore) GetAssetByMintTxID(ctx context.Context, txID string) (*schema.Asset, error) {
	var asset schema.Asset
	err := s.db.WithContext(ctx).Where("mint_tx_id = ?", txID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset by mint tx: %w", err)
	}
	return &asset, nil
}

// ListAssets returns assets matching the filter
func (s *pgStore) ListAssets(ctx context.Context, filter AssetFilter) ([]schema.Asset, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Asset{})
	if filter.Owner != "" {
		query = query.Where("owner_address = ?", filter.Owner)
	}
	if filter.Creator != "" {
		query = query.Where("creator_address = ?", filter.Creator)
	}
	if filter.Listed != nil {
		query = query.Where("listed = ?", *filter.Listed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assets: %w", err)
	}

	limit := normalizeLimit(filter.Limit)
	var assets []schema.Asset
	err := query.
		Order("created_at DESC").
		Order("token_id DESC").
		Limit(limit).
		Offset(max(filter.Offset, 0)).
		Find(&assets).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assets: %w", err)
	}

	return assets, total, nil
}

// CreateAsset inserts an asset unless one with the same token id exists
func (s *pgStore) CreateAsset(ctx context.Context, asset *schema.Asset) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_id"}},
			DoNothing: true,
		}).
		Create(asset)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create asset: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SaveAsset writes every column of an existing asset
func (s *pgStore) SaveAsset(ctx context.Context, asset *schema.Asset) error {
	result := s.db.WithContext(ctx).Model(asset).Select("*").Omit("created_at").Updates(asset)
	if result.Error != nil {
		return fmt.Errorf("failed to save asset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to save asset %s: %w", asset.TokenID, domain.ErrAssetNotFound)
	}
	return nil
}

// FillAssetMetadata sets metadata columns that are still empty
func (s *pgStore) FillAssetMetadata(ctx context.Context, tokenID string, input AssetMetadataInput) error {
	updates := map[string]interface{}{}
	for column, value := range map[string]string{
		"title":        input.Title,
		"description":  input.Description,
		"media_url":    input.MediaURL,
		"metadata_url": input.MetadataURL,
	} {
		if value == "" {
			continue
		}
		updates[column] = gorm.Expr(fmt.Sprintf("CASE WHEN %s = '' THEN ? ELSE %s END", column, column), value)
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()

	err := s.db.WithContext(ctx).
		Model(&schema.Asset{}).
		Where("token_id = ?", tokenID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to fill asset metadata: %w", err)
	}
	return nil
}

// IsEventApplied checks the applied-events journal
func (s *pgStore) IsEventApplied(ctx context.Context, txID string, eventIndex int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.AppliedEvent{}).
		Where("tx_id = ? AND event_index = ?", txID, eventIndex).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check applied event: %w", err)
	}
	return count > 0, nil
}

// RecordAppliedEvent journals an event
func (s *pgStore) RecordAppliedEvent(ctx context.Context, event *schema.AppliedEvent) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_id"}, {Name: "event_index"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, fmt.Errorf("failed to record applied event: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SaveOrphanEvent parks an event for later replay
func (s *pgStore) SaveOrphanEvent(ctx context.Context, event *schema.OrphanEvent) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_id"}, {Name: "event_index"}},
			DoNothing: true,
		}).
		Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to save orphan event: %w", err)
	}
	return nil
}

// TakeOrphanEvents removes and returns the parked events of a token
func (s *pgStore) TakeOrphanEvents(ctx context.Context, tokenID string) ([]schema.OrphanEvent, error) {
	var events []schema.OrphanEvent
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token_id = ?", tokenID).
		Order("position ASC").
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get orphan events: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&schema.OrphanEvent{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete orphan events: %w", err)
	}

	return events, nil
}

// PurgeOrphanEvents deletes parked events older than the cutoff
func (s *pgStore) PurgeOrphanEvents(ctx context.Context, before time.Time) ([]schema.OrphanEvent, error) {
	var events []schema.OrphanEvent
	err := s.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("created_at < ?", before).
		Delete(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to purge orphan events: %w", err)
	}
	return events, nil
}

// SetKeyValue sets a key-value pair in the key-value store
func (s *pgStore) SetKeyValue(ctx context.Context, key string, value string) error {
	kv := schema.KeyValueStore{
		Key:   key,
		Value: value,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set key-value: %w", err)
	}

	return nil
}

// GetKeyValue retrieves a value by key from the key-value store
func (s *pgStore) GetKeyValue(ctx context.Context, key string) (string, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get key-value: %w", err)
	}

	return kv.Value, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
