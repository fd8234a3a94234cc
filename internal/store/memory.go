package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/store/schema"
)

type eventKey struct {
	txID       string
	eventIndex int64
}

// memoryStore is an in-process Store for local development and tests.
// Transactions are serialized and rolled back by restoring a snapshot; writes made
// outside a transaction wait for the running one so a rollback cannot erase them.
type memoryStore struct {
	kvCursor

	txMu sync.Mutex
	mu   sync.RWMutex

	assets  map[string]schema.Asset
	applied map[eventKey]schema.AppliedEvent
	orphans map[eventKey]schema.OrphanEvent
	kv      map[string]string
	nextID  int64
}

type memorySnapshot struct {
	assets  map[string]schema.Asset
	applied map[eventKey]schema.AppliedEvent
	orphans map[eventKey]schema.OrphanEvent
	kv      map[string]string
	nextID  int64
}

// memoryTx is the Store handed to RunInTx callbacks; nested transactions join the outer one
type memoryTx struct {
	*memoryStore
	kvCursor
}

func newMemoryTx(s *memoryStore) memoryTx {
	return memoryTx{
		memoryStore: s,
		kvCursor:    kvCursor{get: s.GetKeyValue, set: s.setKeyValue},
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	s := &memoryStore{
		assets:  make(map[string]schema.Asset),
		applied: make(map[eventKey]schema.AppliedEvent),
		orphans: make(map[eventKey]schema.OrphanEvent),
		kv:      make(map[string]string),
	}
	s.kvCursor = kvCursor{get: s.GetKeyValue, set: s.SetKeyValue}
	return s
}

func (s *memoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memorySnapshot{
		assets:  maps.Clone(s.assets),
		applied: maps.Clone(s.applied),
		orphans: maps.Clone(s.orphans),
		kv:      maps.Clone(s.kv),
		nextID:  s.nextID,
	}
}

func (s *memoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = snap.assets
	s.applied = snap.applied
	s.orphans = snap.orphans
	s.kv = snap.kv
	s.nextID = snap.nextID
}

func (s *memoryStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(newMemoryTx(s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (t memoryTx) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	snap := t.snapshot()
	if err := fn(t); err != nil {
		t.restore(snap)
		return err
	}
	return nil
}

// LockToken is a no-op; transactions are already serialized
func (s *memoryStore) LockToken(ctx context.Context, tokenID string) error {
	return nil
}

func (s *memoryStore) GetAsset(ctx context.Context, tokenID string) (*schema.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[tokenID]
	if !ok {
		return nil, nil
	}
	return cloneAsset(asset), nil
}

func (s *memoryStore) GetAssetByMintTxID(ctx context.Context, txID string) (*schema.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, asset := range s.assets {
		if asset.MintTxID == txID {
			return cloneAsset(asset), nil
		}
	}
	return nil, nil
}

func (s *memoryStore) ListAssets(ctx context.Context, filter AssetFilter) ([]schema.Asset, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []schema.Asset
	for _, asset := range s.assets {
		if filter.Owner != "" && asset.OwnerAddress != filter.Owner {
			continue
		}
		if filter.Creator != "" && asset.CreatorAddress != filter.Creator {
			continue
		}
		if filter.Listed != nil && asset.Listed != *filter.Listed {
			continue
		}
		matched = append(matched, *cloneAsset(asset))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].TokenID > matched[j].TokenID
	})

	total := int64(len(matched))
	offset := min(max(filter.Offset, 0), len(matched))
	end := min(offset+normalizeLimit(filter.Limit), len(matched))

	return matched[offset:end], total, nil
}

func (s *memoryStore) createAsset(ctx context.Context, asset *schema.Asset) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[asset.TokenID]; ok {
		return false, nil
	}

	now := time.Now()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now
	s.assets[asset.TokenID] = *cloneAsset(*asset)
	return true, nil
}

func (s *memoryStore) saveAsset(ctx context.Context, asset *schema.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.assets[asset.TokenID]
	if !ok {
		return fmt.Errorf("failed to save asset %s: %w", asset.TokenID, domain.ErrAssetNotFound)
	}

	asset.CreatedAt = existing.CreatedAt
	asset.UpdatedAt = time.Now()
	s.assets[asset.TokenID] = *cloneAsset(*asset)
	return nil
}

func (s *memoryStore) fillAssetMetadata(ctx context.Context, tokenID string, input AssetMetadataInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[tokenID]
	if !ok {
		return nil
	}

	fill := func(dst *string, value string) {
		if *dst == "" && value != "" {
			*dst = value
		}
	}
	fill(&asset.Title, input.Title)
	fill(&asset.Description, input.Description)
	fill(&asset.MediaURL, input.MediaURL)
	fill(&asset.MetadataURL, input.MetadataURL)
	asset.UpdatedAt = time.Now()

	s.assets[tokenID] = asset
	return nil
}

func (s *memoryStore) IsEventApplied(ctx context.Context, txID string, eventIndex int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.applied[eventKey{txID, eventIndex}]
	return ok, nil
}

func (s *memoryStore) recordAppliedEvent(ctx context.Context, event *schema.AppliedEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey{event.TxID, event.EventIndex}
	if _, ok := s.applied[key]; ok {
		return false, nil
	}
	if event.AppliedAt.IsZero() {
		event.AppliedAt = time.Now()
	}
	s.applied[key] = *event
	return true, nil
}

func (s *memoryStore) saveOrphanEvent(ctx context.Context, event *schema.OrphanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey{event.TxID, event.EventIndex}
	if _, ok := s.orphans[key]; ok {
		return nil
	}

	s.nextID++
	event.ID = s.nextID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	stored := *event
	stored.Payload = slices.Clone(event.Payload)
	s.orphans[key] = stored
	return nil
}

func (s *memoryStore) takeOrphanEvents(ctx context.Context, tokenID string) ([]schema.OrphanEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []schema.OrphanEvent
	for key, event := range s.orphans {
		if event.TokenID != tokenID {
			continue
		}
		events = append(events, event)
		delete(s.orphans, key)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Position != events[j].Position {
			return events[i].Position < events[j].Position
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (s *memoryStore) purgeOrphanEvents(ctx context.Context, before time.Time) ([]schema.OrphanEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []schema.OrphanEvent
	for key, event := range s.orphans {
		if !event.CreatedAt.Before(before) {
			continue
		}
		events = append(events, event)
		delete(s.orphans, key)
	}

	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (s *memoryStore) GetKeyValue(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kv[key], nil
}

func (s *memoryStore) setKeyValue(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

func (s *memoryStore) CreateAsset(ctx context.Context, asset *schema.Asset) (bool, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.createAsset(ctx, asset)
}

func (s *memoryStore) SaveAsset(ctx context.Context, asset *schema.Asset) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.saveAsset(ctx, asset)
}

func (s *memoryStore) FillAssetMetadata(ctx context.Context, tokenID string, input AssetMetadataInput) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.fillAssetMetadata(ctx, tokenID, input)
}

func (s *memoryStore) RecordAppliedEvent(ctx context.Context, event *schema.AppliedEvent) (bool, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.recordAppliedEvent(ctx, event)
}

func (s *memoryStore) SaveOrphanEvent(ctx context.Context, event *schema.OrphanEvent) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.saveOrphanEvent(ctx, event)
}

func (s *memoryStore) TakeOrphanEvents(ctx context.Context, tokenID string) ([]schema.OrphanEvent, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.takeOrphanEvents(ctx, tokenID)
}

func (s *memoryStore) PurgeOrphanEvents(ctx context.Context, before time.Time) ([]schema.OrphanEvent, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.purgeOrphanEvents(ctx, before)
}

func (s *memoryStore) SetKeyValue(ctx context.Context, key string, value string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.setKeyValue(ctx, key, value)
}

// Inside a transaction txMu is already held

func (t memoryTx) CreateAsset(ctx context.Context, asset *schema.Asset) (bool, error) {
	return t.createAsset(ctx, asset)
}

func (t memoryTx) SaveAsset(ctx context.Context, asset *schema.Asset) error {
	return t.saveAsset(ctx, asset)
}

func (t memoryTx) FillAssetMetadata(ctx context.Context, tokenID string, input AssetMetadataInput) error {
	return t.fillAssetMetadata(ctx, tokenID, input)
}

func (t memoryTx) RecordAppliedEvent(ctx context.Context, event *schema.AppliedEvent) (bool, error) {
	return t.recordAppliedEvent(ctx, event)
}

func (t memoryTx) SaveOrphanEvent(ctx context.Context, event *schema.OrphanEvent) error {
	return t.saveOrphanEvent(ctx, event)
}

func (t memoryTx) TakeOrphanEvents(ctx context.Context, tokenID string) ([]schema.OrphanEvent, error) {
	return t.takeOrphanEvents(ctx, tokenID)
}

func (t memoryTx) PurgeOrphanEvents(ctx context.Context, before time.Time) ([]schema.OrphanEvent, error) {
	return t.purgeOrphanEvents(ctx, before)
}

func (t memoryTx) SetKeyValue(ctx context.Context, key string, value string) error {
	return t.setKeyValue(ctx, key, value)
}

func cloneAsset(asset schema.Asset) *schema.Asset {
	clone := asset
	if asset.ListingPrice != nil {
		price := *asset.ListingPrice
		clone.ListingPrice = &price
	}
	if asset.MintedAt != nil {
		mintedAt := *asset.MintedAt
		clone.MintedAt = &mintedAt
	}
	clone.Attributes = slices.Clone(asset.Attributes)
	return &clone
}
