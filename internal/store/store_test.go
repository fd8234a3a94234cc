package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/store/schema"
)

const (
	testContract = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.creator-nft"
	testCreator  = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
	testBuyer    = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestAsset creates a freshly minted asset owned by its creator
func buildTestAsset(tokenID string, createdAt time.Time) *schema.Asset {
	mintedAt := createdAt
	return &schema.Asset{
		TokenID:        tokenID,
		Network:        "testnet",
		ContractID:     testContract,
		CreatorAddress: testCreator,
		OwnerAddress:   testCreator,
		MintTxID:       "0xmint" + tokenID,
		LastTxID:       "0xmint" + tokenID,
		OwnerPosition:  int64(100) << 32,
		Attributes:     datatypes.JSON(`{"edition":"1"}`),
		MintedAt:       &mintedAt,
		CreatedAt:      createdAt,
	}
}

// buildTestOrphan creates a parked event for a token
func buildTestOrphan(tokenID, txID string, eventIndex, position int64) *schema.OrphanEvent {
	return &schema.OrphanEvent{
		TxID:       txID,
		EventIndex: eventIndex,
		TokenID:    tokenID,
		Kind:       string(domain.EventKindPurchaseConfirmed),
		Position:   position,
		Payload:    datatypes.JSON(fmt.Sprintf(`{"tx_id":%q}`, txID)),
	}
}

// =============================================================================
// Tests
// =============================================================================

func testCreateAndGetAsset(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	t.Run("get non-existent asset returns nil", func(t *testing.T) {
		asset, err := store.GetAsset(ctx, "404")
		require.NoError(t, err)
		assert.Nil(t, asset)
	})

	t.Run("create and get", func(t *testing.T) {
		created, err := store.CreateAsset(ctx, buildTestAsset("1", base))
		require.NoError(t, err)
		assert.True(t, created)

		asset, err := store.GetAsset(ctx, "1")
		require.NoError(t, err)
		require.NotNil(t, asset)
		assert.Equal(t, testCreator, asset.CreatorAddress)
		assert.Equal(t, testCreator, asset.OwnerAddress)
		assert.Equal(t, "0xmint1", asset.MintTxID)
		assert.False(t, asset.Listed)
		assert.Nil(t, asset.ListingPrice)
		assert.JSONEq(t, `{"edition":"1"}`, string(asset.Attributes))
	})

	t.Run("create twice keeps the first row", func(t *testing.T) {
		second := buildTestAsset("1", base)
		second.OwnerAddress = testBuyer

		created, err := store.CreateAsset(ctx, second)
		require.NoError(t, err)
		assert.False(t, created)

		asset, err := store.GetAsset(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, testCreator, asset.OwnerAddress)
	})

	t.Run("get by mint tx", func(t *testing.T) {
		asset, err := store.GetAssetByMintTxID(ctx, "0xmint1")
		require.NoError(t, err)
		require.NotNil(t, asset)
		assert.Equal(t, "1", asset.TokenID)

		asset, err = store.GetAssetByMintTxID(ctx, "0xunknown")
		require.NoError(t, err)
		assert.Nil(t, asset)
	})
}

func testSaveAsset(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	_, err := store.CreateAsset(ctx, buildTestAsset("7", base))
	require.NoError(t, err)

	t.Run("save updates owner and listing", func(t *testing.T) {
		asset, err := store.GetAsset(ctx, "7")
		require.NoError(t, err)

		price := decimal.RequireFromString("12.5")
		asset.OwnerAddress = testBuyer
		asset.Listed = true
		asset.ListingPrice = &price
		asset.LastTxID = "0xpurchase"
		require.NoError(t, store.SaveAsset(ctx, asset))

		saved, err := store.GetAsset(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, testBuyer, saved.OwnerAddress)
		assert.True(t, saved.Listed)
		require.NotNil(t, saved.ListingPrice)
		assert.True(t, price.Equal(*saved.ListingPrice))
		assert.Equal(t, "0xpurchase", saved.LastTxID)
	})

	t.Run("save clears listing", func(t *testing.T) {
		asset, err := store.GetAsset(ctx, "7")
		require.NoError(t, err)

		asset.Listed = false
		asset.ListingPrice = nil
		require.NoError(t, store.SaveAsset(ctx, asset))

		saved, err := store.GetAsset(ctx, "7")
		require.NoError(t, err)
		assert.False(t, saved.Listed)
		assert.Nil(t, saved.ListingPrice)
	})

	t.Run("save missing asset fails", func(t *testing.T) {
		err := store.SaveAsset(ctx, buildTestAsset("missing", base))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrAssetNotFound))
	})
}

func testFillAssetMetadata(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	asset := buildTestAsset("3", base)
	asset.Title = "On-chain title"
	_, err := store.CreateAsset(ctx, asset)
	require.NoError(t, err)

	err = store.FillAssetMetadata(ctx, "3", AssetMetadataInput{
		Title:       "Uploaded title",
		Description: "A description",
		MediaURL:    "https://cdn.example.com/media/3.png",
		MetadataURL: "https://cdn.example.com/metadata/3.json",
	})
	require.NoError(t, err)

	filled, err := store.GetAsset(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "On-chain title", filled.Title)
	assert.Equal(t, "A description", filled.Description)
	assert.Equal(t, "https://cdn.example.com/media/3.png", filled.MediaURL)
	assert.Equal(t, "https://cdn.example.com/metadata/3.json", filled.MetadataURL)

	t.Run("filled columns are not overwritten", func(t *testing.T) {
		err := store.FillAssetMetadata(ctx, "3", AssetMetadataInput{Description: "Other"})
		require.NoError(t, err)

		again, err := store.GetAsset(ctx, "3")
		require.NoError(t, err)
		assert.Equal(t, "A description", again.Description)
	})

	t.Run("missing asset is ignored", func(t *testing.T) {
		require.NoError(t, store.FillAssetMetadata(ctx, "missing", AssetMetadataInput{Title: "x"}))
	})
}

func testListAssets(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 1; i <= 4; i++ {
		asset := buildTestAsset(fmt.Sprintf("%d", 10+i), base.Add(time.Duration(i)*time.Minute))
		if i%2 == 0 {
			asset.OwnerAddress = testBuyer
			asset.Listed = true
			price := decimal.NewFromInt(int64(i))
			asset.ListingPrice = &price
		}
		_, err := store.CreateAsset(ctx, asset)
		require.NoError(t, err)
	}

	t.Run("newest first", func(t *testing.T) {
		assets, total, err := store.ListAssets(ctx, AssetFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, assets, 4)
		assert.Equal(t, "14", assets[0].TokenID)
		assert.Equal(t, "11", assets[3].TokenID)
	})

	t.Run("by owner", func(t *testing.T) {
		assets, total, err := store.ListAssets(ctx, AssetFilter{Owner: testBuyer})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, a := range assets {
			assert.Equal(t, testBuyer, a.OwnerAddress)
		}
	})

	t.Run("listed only", func(t *testing.T) {
		listed := true
		assets, total, err := store.ListAssets(ctx, AssetFilter{Listed: &listed})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, a := range assets {
			assert.True(t, a.Listed)
		}
	})

	t.Run("by creator", func(t *testing.T) {
		_, total, err := store.ListAssets(ctx, AssetFilter{Creator: testCreator})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})

	t.Run("paginated", func(t *testing.T) {
		assets, total, err := store.ListAssets(ctx, AssetFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, assets, 2)
		assert.Equal(t, "13", assets[0].TokenID)
		assert.Equal(t, "12", assets[1].TokenID)
	})

	t.Run("offset past the end", func(t *testing.T) {
		assets, total, err := store.ListAssets(ctx, AssetFilter{Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Empty(t, assets)
	})
}

func testAppliedEvents(t *testing.T, store Store) {
	ctx := context.Background()

	applied, err := store.IsEventApplied(ctx, "0xtx1", 0)
	require.NoError(t, err)
	assert.False(t, applied)

	recorded, err := store.RecordAppliedEvent(ctx, &schema.AppliedEvent{
		TxID:       "0xtx1",
		EventIndex: 0,
		Kind:       string(domain.EventKindMintConfirmed),
		TokenID:    "1",
	})
	require.NoError(t, err)
	assert.True(t, recorded)

	applied, err = store.IsEventApplied(ctx, "0xtx1", 0)
	require.NoError(t, err)
	assert.True(t, applied)

	t.Run("recording twice is a no-op", func(t *testing.T) {
		recorded, err := store.RecordAppliedEvent(ctx, &schema.AppliedEvent{
			TxID:       "0xtx1",
			EventIndex: 0,
			Kind:       string(domain.EventKindMintConfirmed),
			TokenID:    "1",
		})
		require.NoError(t, err)
		assert.False(t, recorded)
	})

	t.Run("event index is part of the key", func(t *testing.T) {
		applied, err := store.IsEventApplied(ctx, "0xtx1", 1)
		require.NoError(t, err)
		assert.False(t, applied)
	})
}

func testOrphanEvents(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.SaveOrphanEvent(ctx, buildTestOrphan("5", "0xb", 0, 300)))
	require.NoError(t, store.SaveOrphanEvent(ctx, buildTestOrphan("5", "0xa", 1, 200)))
	require.NoError(t, store.SaveOrphanEvent(ctx, buildTestOrphan("6", "0xc", 0, 100)))

	t.Run("saving twice is a no-op", func(t *testing.T) {
		require.NoError(t, store.SaveOrphanEvent(ctx, buildTestOrphan("5", "0xb", 0, 300)))
	})

	events, err := store.TakeOrphanEvents(ctx, "5")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "0xa", events[0].TxID)
	assert.Equal(t, "0xb", events[1].TxID)
	assert.JSONEq(t, `{"tx_id":"0xa"}`, string(events[0].Payload))

	t.Run("taken events are removed", func(t *testing.T) {
		events, err := store.TakeOrphanEvents(ctx, "5")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("other tokens are untouched", func(t *testing.T) {
		events, err := store.TakeOrphanEvents(ctx, "6")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "0xc", events[0].TxID)
	})
}

func testPurgeOrphanEvents(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	old := buildTestOrphan("5", "0xa", 0, 100)
	old.CreatedAt = now.Add(-48 * time.Hour)
	recent := buildTestOrphan("5", "0xb", 0, 200)
	recent.CreatedAt = now.Add(-time.Hour)
	require.NoError(t, store.SaveOrphanEvent(ctx, old))
	require.NoError(t, store.SaveOrphanEvent(ctx, recent))

	purged, err := store.PurgeOrphanEvents(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, purged, 1)
	assert.Equal(t, "0xa", purged[0].TxID)
	assert.Equal(t, "5", purged[0].TokenID)

	events, err := store.TakeOrphanEvents(ctx, "5")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "0xb", events[0].TxID)

	t.Run("nothing to purge", func(t *testing.T) {
		purged, err := store.PurgeOrphanEvents(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, purged)
	})
}

func testRunInTx(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	t.Run("commit", func(t *testing.T) {
		err := store.RunInTx(ctx, func(tx Store) error {
			require.NoError(t, tx.LockToken(ctx, "20"))
			if _, err := tx.CreateAsset(ctx, buildTestAsset("20", base)); err != nil {
				return err
			}
			_, err := tx.RecordAppliedEvent(ctx, &schema.AppliedEvent{
				TxID: "0xmint20", EventIndex: 0, Kind: string(domain.EventKindMintConfirmed), TokenID: "20",
			})
			return err
		})
		require.NoError(t, err)

		asset, err := store.GetAsset(ctx, "20")
		require.NoError(t, err)
		assert.NotNil(t, asset)

		applied, err := store.IsEventApplied(ctx, "0xmint20", 0)
		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.RunInTx(ctx, func(tx Store) error {
			require.NoError(t, tx.LockToken(ctx, "21"))
			if _, err := tx.CreateAsset(ctx, buildTestAsset("21", base)); err != nil {
				return err
			}
			if _, err := tx.RecordAppliedEvent(ctx, &schema.AppliedEvent{
				TxID: "0xmint21", EventIndex: 0, Kind: string(domain.EventKindMintConfirmed), TokenID: "21",
			}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		asset, err := store.GetAsset(ctx, "21")
		require.NoError(t, err)
		assert.Nil(t, asset)

		applied, err := store.IsEventApplied(ctx, "0xmint21", 0)
		require.NoError(t, err)
		assert.False(t, applied)
	})
}

func testBlockCursor(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get non-existent cursor returns 0", func(t *testing.T) {
		cursor, err := store.GetBlockCursor(ctx, "testnet_nonexistent")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), cursor)
	})

	t.Run("set and get cursor", func(t *testing.T) {
		err := store.SetBlockCursor(ctx, "testnet", 12345)
		require.NoError(t, err)

		cursor, err := store.GetBlockCursor(ctx, "testnet")
		require.NoError(t, err)
		assert.Equal(t, uint64(12345), cursor)
	})

	t.Run("update existing cursor", func(t *testing.T) {
		require.NoError(t, store.SetBlockCursor(ctx, "devnet", 100))
		require.NoError(t, store.SetBlockCursor(ctx, "devnet", 200))

		cursor, err := store.GetBlockCursor(ctx, "devnet")
		require.NoError(t, err)
		assert.Equal(t, uint64(200), cursor)
	})

	t.Run("corrupt cursor fails", func(t *testing.T) {
		require.NoError(t, store.SetKeyValue(ctx, cursorKey("mainnet"), "not-a-number"))

		_, err := store.GetBlockCursor(ctx, "mainnet")
		assert.Error(t, err)
	})
}

func testKeyValueStore(t *testing.T, store Store) {
	ctx := context.Background()

	value, err := store.GetKeyValue(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.SetKeyValue(ctx, "k", "v1"))
	require.NoError(t, store.SetKeyValue(ctx, "k", "v2"))

	value, err = store.GetKeyValue(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
}

// RunStoreTests runs all store tests against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"CreateAndGetAsset", testCreateAndGetAsset},
		{"SaveAsset", testSaveAsset},
		{"FillAssetMetadata", testFillAssetMetadata},
		{"ListAssets", testListAssets},
		{"AppliedEvents", testAppliedEvents},
		{"OrphanEvents", testOrphanEvents},
		{"PurgeOrphanEvents", testPurgeOrphanEvents},
		{"RunInTx", testRunInTx},
		{"BlockCursor", testBlockCursor},
		{"KeyValueStore", testKeyValueStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
