package reconcile_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/metadata"
	"github.com/feral-file/ff-stacks-mint/internal/mocks"
	"github.com/feral-file/ff-stacks-mint/internal/reconcile"
	"github.com/feral-file/ff-stacks-mint/internal/store"
	"github.com/feral-file/ff-stacks-mint/internal/store/schema"
)

const (
	CREATOR_CONTRACT = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.creator-nft"
	ALICE            = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
	BOB              = "ST2JHG361ZXG51QTKY2NQCVBPPRRE2KZB1HR05NNC"
	CAROL            = "ST2NEB84ASENDXKYGJPQW86YXQCEFEX2ZQPG87ND"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func setupTestEngine(t *testing.T) (reconcile.Engine, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	engine := reconcile.NewEngine(reconcile.Config{Network: domain.NetworkTestnet}, st, nil, adapter.NewJSON())
	return engine, st
}

func event(kind domain.EventKind, tokenID, txID string, height uint64) domain.DomainEvent {
	return domain.DomainEvent{
		Kind:        kind,
		Network:     domain.NetworkTestnet,
		ContractID:  CREATOR_CONTRACT,
		TokenID:     tokenID,
		TxID:        txID,
		BlockHeight: height,
		TxIndex:     1,
		EventIndex:  0,
		Timestamp:   time.Unix(1_700_000_000, 0).UTC(),
	}
}

func mintEvent(tokenID, recipient, txID string, height uint64) domain.DomainEvent {
	e := event(domain.EventKindMintConfirmed, tokenID, txID, height)
	e.Recipient = recipient
	return e
}

func purchaseEvent(tokenID, buyer, seller, txID string, height uint64) domain.DomainEvent {
	e := event(domain.EventKindPurchaseConfirmed, tokenID, txID, height)
	e.Buyer = buyer
	e.Seller = seller
	return e
}

func listingEvent(tokenID, seller, price, txID string, height uint64) domain.DomainEvent {
	e := event(domain.EventKindListingConfirmed, tokenID, txID, height)
	e.Seller = seller
	p := decimal.RequireFromString(price)
	e.Price = &p
	return e
}

func getAsset(t *testing.T, st store.Store, tokenID string) *schema.Asset {
	t.Helper()
	asset, err := st.GetAsset(context.Background(), tokenID)
	require.NoError(t, err)
	return asset
}

func TestEngine_MintThenPurchase(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	outcome, err := engine.ApplyMintConfirmed(ctx, mintEvent("3", ALICE, "0xaaa", 100))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeApplied, outcome)

	asset := getAsset(t, st, "3")
	require.NotNil(t, asset)
	assert.Equal(t, ALICE, asset.OwnerAddress)
	assert.Equal(t, ALICE, asset.CreatorAddress)
	assert.False(t, asset.Listed)
	assert.Equal(t, "0xaaa", asset.MintTxID)
	assert.Equal(t, "testnet", asset.Network)
	assert.Equal(t, CREATOR_CONTRACT, asset.ContractID)
	require.NotNil(t, asset.MintedAt)

	outcome, err = engine.ApplyPurchaseConfirmed(ctx, purchaseEvent("3", BOB, ALICE, "0xbbb", 110))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeApplied, outcome)

	asset = getAsset(t, st, "3")
	assert.Equal(t, BOB, asset.OwnerAddress)
	assert.Equal(t, ALICE, asset.CreatorAddress)
	assert.False(t, asset.Listed)
	assert.Equal(t, "0xaaa", asset.MintTxID)
	assert.Equal(t, "0xbbb", asset.LastTxID)
}

func TestEngine_MintIdempotent(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	mint := mintEvent("5", ALICE, "0xaaa", 100)

	_, err := engine.ApplyMintConfirmed(ctx, mint)
	require.NoError(t, err)
	first := getAsset(t, st, "5")

	outcome, err := engine.ApplyMintConfirmed(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeDuplicate, outcome)

	assert.Equal(t, first, getAsset(t, st, "5"))
}

func TestEngine_PurchaseBeforeMint(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	purchase := purchaseEvent("7", BOB, ALICE, "0xbbb", 120)

	outcome, err := engine.ApplyPurchaseConfirmed(ctx, purchase)
	assert.ErrorIs(t, err, domain.ErrConsistency)
	assert.Equal(t, reconcile.OutcomeOrphaned, outcome)
	assert.Nil(t, getAsset(t, st, "7"))

	// redelivery while the mint is still missing parks nothing new
	_, err = engine.ApplyPurchaseConfirmed(ctx, purchase)
	assert.ErrorIs(t, err, domain.ErrConsistency)

	outcome, err = engine.ApplyMintConfirmed(ctx, mintEvent("7", ALICE, "0xaaa", 100))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeApplied, outcome)

	asset := getAsset(t, st, "7")
	require.NotNil(t, asset)
	assert.Equal(t, BOB, asset.OwnerAddress)
	assert.Equal(t, ALICE, asset.CreatorAddress)
	assert.Equal(t, "0xbbb", asset.LastTxID)

	orphans, err := st.TakeOrphanEvents(ctx, "7")
	require.NoError(t, err)
	assert.Empty(t, orphans)

	// the replayed purchase is journaled
	outcome, err = engine.ApplyPurchaseConfirmed(ctx, purchase)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeDuplicate, outcome)
}

func TestEngine_OrphansReplayInPositionOrder(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	// delivered newest first
	_, err := engine.Apply(ctx, purchaseEvent("8", CAROL, BOB, "0xccc", 140))
	assert.ErrorIs(t, err, domain.ErrConsistency)
	_, err = engine.Apply(ctx, listingEvent("8", BOB, "3", "0xlst", 130))
	assert.ErrorIs(t, err, domain.ErrConsistency)
	_, err = engine.Apply(ctx, purchaseEvent("8", BOB, ALICE, "0xbbb", 120))
	assert.ErrorIs(t, err, domain.ErrConsistency)

	_, err = engine.Apply(ctx, mintEvent("8", ALICE, "0xaaa", 100))
	require.NoError(t, err)

	asset := getAsset(t, st, "8")
	assert.Equal(t, CAROL, asset.OwnerAddress)
	assert.Equal(t, ALICE, asset.CreatorAddress)
	assert.False(t, asset.Listed)
	assert.Nil(t, asset.ListingPrice)
}

func TestEngine_ListingLifecycle(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	_, err := engine.ApplyMintConfirmed(ctx, mintEvent("1", ALICE, "0xaaa", 100))
	require.NoError(t, err)

	outcome, err := engine.ApplyListingConfirmed(ctx, listingEvent("1", ALICE, "2.5", "0xlst", 110))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeApplied, outcome)

	asset := getAsset(t, st, "1")
	assert.True(t, asset.Listed)
	require.NotNil(t, asset.ListingPrice)
	assert.True(t, asset.ListingPrice.Equal(decimal.RequireFromString("2.5")))

	unlist := event(domain.EventKindUnlistingConfirmed, "1", "0xunl", 120)
	outcome, err = engine.ApplyUnlistingConfirmed(ctx, unlist)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeApplied, outcome)

	asset = getAsset(t, st, "1")
	assert.False(t, asset.Listed)
	assert.Nil(t, asset.ListingPrice)

	// a listing from before the unlisting arrives late
	outcome, err = engine.ApplyListingConfirmed(ctx, listingEvent("1", ALICE, "9", "0xold", 105))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeStale, outcome)
	assert.False(t, getAsset(t, st, "1").Listed)
}

func TestEngine_PurchaseClearsListing(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, mintEvent("2", ALICE, "0xaaa", 100))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, listingEvent("2", ALICE, "10", "0xlst", 110))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, purchaseEvent("2", BOB, ALICE, "0xbuy", 120))
	require.NoError(t, err)

	asset := getAsset(t, st, "2")
	assert.Equal(t, BOB, asset.OwnerAddress)
	assert.False(t, asset.Listed)
	assert.Nil(t, asset.ListingPrice)
}

func TestEngine_OlderPurchaseDoesNotOverwriteOwner(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, mintEvent("4", ALICE, "0xaaa", 100))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, purchaseEvent("4", CAROL, BOB, "0xnew", 300))
	require.NoError(t, err)

	outcome, err := engine.Apply(ctx, purchaseEvent("4", BOB, ALICE, "0xold", 250))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeStale, outcome)

	asset := getAsset(t, st, "4")
	assert.Equal(t, CAROL, asset.OwnerAddress)
	assert.Equal(t, "0xnew", asset.LastTxID)
}

func TestEngine_UnknownPositionFallsBackToLastApplied(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, mintEvent("6", ALICE, "0xaaa", 100))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, purchaseEvent("6", CAROL, ALICE, "0xccc", 300))
	require.NoError(t, err)

	outcome, err := engine.Apply(ctx, purchaseEvent("6", BOB, CAROL, "0xbbb", 0))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeApplied, outcome)
	assert.Equal(t, BOB, getAsset(t, st, "6").OwnerAddress)
}

func TestEngine_MintAfterNewerOwnerKeepsOwner(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	_, err := st.CreateAsset(ctx, &schema.Asset{
		TokenID:       "11",
		Network:       "testnet",
		ContractID:    CREATOR_CONTRACT,
		OwnerAddress:  BOB,
		OwnerPosition: domain.Position{BlockHeight: 200}.Int64(),
	})
	require.NoError(t, err)

	outcome, err := engine.ApplyMintConfirmed(ctx, mintEvent("11", ALICE, "0xaaa", 100))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeApplied, outcome)

	asset := getAsset(t, st, "11")
	assert.Equal(t, BOB, asset.OwnerAddress)
	assert.Equal(t, ALICE, asset.CreatorAddress)
	assert.Equal(t, "0xaaa", asset.MintTxID)
}

func TestEngine_ConcurrentEventsForOneToken(t *testing.T) {
	engine, st := setupTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, mintEvent("12", ALICE, "0xaaa", 100))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Apply(ctx, purchaseEvent("12", BOB, ALICE, "0xbbb", 110))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, BOB, getAsset(t, st, "12").OwnerAddress)
	applied, err := st.IsEventApplied(ctx, "0xbbb", 0)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestEngine_InvalidEvents(t *testing.T) {
	engine, _ := setupTestEngine(t)
	ctx := context.Background()

	mainnet := mintEvent("1", ALICE, "0xaaa", 100)
	mainnet.Network = domain.NetworkMainnet

	noRecipient := mintEvent("1", "", "0xaaa", 100)

	badToken := mintEvent("one", ALICE, "0xaaa", 100)

	unknown := mintEvent("1", ALICE, "0xaaa", 100)
	unknown.Kind = "burn_confirmed"

	tests := []struct {
		name  string
		apply func() (reconcile.Outcome, error)
	}{
		{"wrong network", func() (reconcile.Outcome, error) { return engine.Apply(ctx, mainnet) }},
		{"missing recipient", func() (reconcile.Outcome, error) { return engine.Apply(ctx, noRecipient) }},
		{"bad token id", func() (reconcile.Outcome, error) { return engine.Apply(ctx, badToken) }},
		{"unknown kind", func() (reconcile.Outcome, error) { return engine.Apply(ctx, unknown) }},
		{"kind mismatch", func() (reconcile.Outcome, error) {
			return engine.ApplyPurchaseConfirmed(ctx, mintEvent("1", ALICE, "0xaaa", 100))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.apply()
			assert.ErrorIs(t, err, domain.ErrInvalidEvent)
		})
	}
}

func TestEngine_EnrichesNewAssets(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := store.NewMemoryStore()
	resolver := mocks.NewMockMetadataResolver(ctrl)
	engine := reconcile.NewEngine(reconcile.Config{Network: domain.NetworkTestnet, EnrichMetadata: true}, st, resolver, adapter.NewJSON())
	ctx := context.Background()

	mint := mintEvent("3", ALICE, "0xaaa", 100)
	mint.URI = "https://cdn.example.com/nfts/metadata/3"

	resolver.EXPECT().Resolve(gomock.Any(), uint64(3), mint.URI).Return(&metadata.NormalizedMetadata{
		URI:         mint.URI,
		Name:        "Sunset",
		Description: "desc",
		Image:       "https://cdn.example.com/nfts/media/3",
	}, nil)

	_, err := engine.ApplyMintConfirmed(ctx, mint)
	require.NoError(t, err)

	asset := getAsset(t, st, "3")
	assert.Equal(t, "Sunset", asset.Title)
	assert.Equal(t, "desc", asset.Description)
	assert.Equal(t, "https://cdn.example.com/nfts/media/3", asset.MediaURL)
	assert.Equal(t, mint.URI, asset.MetadataURL)

	// a failing resolver never fails the apply
	resolver.EXPECT().Resolve(gomock.Any(), uint64(4), "").Return(nil, errors.New("timeout"))
	outcome, err := engine.ApplyMintConfirmed(ctx, mintEvent("4", ALICE, "0xddd", 101))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeApplied, outcome)
	assert.Empty(t, getAsset(t, st, "4").Title)
}

func TestEngine_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	engine := reconcile.NewEngine(reconcile.Config{Network: domain.NetworkTestnet}, st, nil, adapter.NewJSON())

	st.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn func(store.Store) error) error {
		return fn(st)
	})
	st.EXPECT().LockToken(gomock.Any(), "3").Return(nil)
	st.EXPECT().IsEventApplied(gomock.Any(), "0xaaa", int64(0)).Return(false, nil)
	st.EXPECT().GetAsset(gomock.Any(), "3").Return(nil, errors.New("connection reset"))

	_, err := engine.ApplyMintConfirmed(context.Background(), mintEvent("3", ALICE, "0xaaa", 100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotErrorIs(t, err, domain.ErrConsistency)
}

func TestEngine_JournalRaceRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	engine := reconcile.NewEngine(reconcile.Config{Network: domain.NetworkTestnet}, st, nil, adapter.NewJSON())

	st.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn func(store.Store) error) error {
		return fn(st)
	})
	st.EXPECT().LockToken(gomock.Any(), "3").Return(nil)
	st.EXPECT().IsEventApplied(gomock.Any(), "0xaaa", int64(0)).Return(false, nil)
	st.EXPECT().GetAsset(gomock.Any(), "3").Return(nil, nil)
	st.EXPECT().CreateAsset(gomock.Any(), gomock.Any()).Return(true, nil)
	st.EXPECT().RecordAppliedEvent(gomock.Any(), gomock.Any()).Return(false, nil)

	outcome, err := engine.ApplyMintConfirmed(context.Background(), mintEvent("3", ALICE, "0xaaa", 100))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeDuplicate, outcome)
}
