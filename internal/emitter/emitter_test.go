package emitter_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/emitter"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/messaging"
	"github.com/feral-file/ff-stacks-mint/internal/mocks"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// testEmitterMocks contains all the mocks needed for testing the emitter
type testEmitterMocks struct {
	ctrl       *gomock.Controller
	subscriber *mocks.MockSubscriber
	publisher  *mocks.MockPublisher
	store      *mocks.MockStore
	clock      *mocks.MockClock
}

// setupTestEmitter creates all the mocks for testing
func setupTestEmitter(t *testing.T) *testEmitterMocks {
	ctrl := gomock.NewController(t)

	return &testEmitterMocks{
		ctrl:       ctrl,
		subscriber: mocks.NewMockSubscriber(ctrl),
		publisher:  mocks.NewMockPublisher(ctrl),
		store:      mocks.NewMockStore(ctrl),
		clock:      mocks.NewMockClock(ctrl),
	}
}

func (tm *testEmitterMocks) newEmitter(startBlock, saveFreq uint64) emitter.Emitter {
	return emitter.NewEmitter(
		tm.subscriber,
		tm.publisher,
		tm.store,
		emitter.Config{
			Network:         domain.NetworkTestnet,
			StartBlock:      startBlock,
			CursorSaveFreq:  saveFreq,
			CursorSaveDelay: 5 * time.Second,
			CursorOverlap:   emitter.DEFAULT_CURSOR_OVERLAP,
		},
		tm.clock,
	)
}

func testEvent(height uint64) *domain.DomainEvent {
	return &domain.DomainEvent{
		Kind:        domain.EventKindMintConfirmed,
		Network:     domain.NetworkTestnet,
		ContractID:  "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.creator-nft",
		TokenID:     "1",
		Recipient:   "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG",
		TxID:        "0xtx",
		BlockHeight: height,
		Timestamp:   time.Now(),
	}
}

func TestEmitter_Run_WithStartBlock(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()
	tm.clock.EXPECT().Now().Return(now).MinTimes(1)
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()

	event := testEvent(1001)
	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
			_ = handler(event)

			// Cancel context to stop the emitter
			cancel()
			return nil
		})

	tm.publisher.
		EXPECT().
		PublishEvent(gomock.Any(), event).
		Return(nil)

	// 1001 - 0 >= 10, so the cursor is saved
	tm.store.
		EXPECT().
		SetBlockCursor(gomock.Any(), "testnet", uint64(1001)).
		Return(nil)

	err := tm.newEmitter(1000, 10).Run(ctx)

	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_ResumesWithOverlap(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()

	tm.store.
		EXPECT().
		GetBlockCursor(gomock.Any(), "testnet").
		Return(uint64(500), nil)

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(500-emitter.DEFAULT_CURSOR_OVERLAP), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
			cancel()
			return nil
		})

	err := tm.newEmitter(0, 10).Run(ctx)

	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_CursorBelowOverlap(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), "testnet").Return(uint64(3), nil)
	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
			cancel()
			return nil
		})

	err := tm.newEmitter(0, 10).Run(ctx)

	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_WithNoLastBlockCursor(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.store.
		EXPECT().
		GetBlockCursor(gomock.Any(), "testnet").
		Return(uint64(0), nil)

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()

	tm.subscriber.
		EXPECT().
		GetLatestBlock(gomock.Any()).
		Return(uint64(1000), nil)

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
			cancel()
			return nil
		})

	err := tm.newEmitter(0, 10).Run(ctx)

	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_CursorSaveByBlockFrequency(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
			// 1000, 1005 and 1010 are 5 blocks apart and save; 1002 does not; 1004 is
			// behind the saved cursor and is skipped
			for _, height := range []uint64{1000, 1002, 1005, 1004, 1010} {
				event := testEvent(height)
				tm.publisher.EXPECT().PublishEvent(gomock.Any(), event).Return(nil)
				if height%5 == 0 {
					tm.store.EXPECT().SetBlockCursor(gomock.Any(), "testnet", height).Return(nil)
				}
				if err := handler(event); err != nil {
					return err
				}
			}

			cancel()
			return nil
		})

	err := tm.newEmitter(1000, 5).Run(ctx)

	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_CursorSaveByDelay(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(10 * time.Second).AnyTimes()

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
			for _, height := range []uint64{1001, 1002} {
				event := testEvent(height)
				tm.publisher.EXPECT().PublishEvent(gomock.Any(), event).Return(nil)
				tm.store.EXPECT().SetBlockCursor(gomock.Any(), "testnet", height).Return(nil)
				if err := handler(event); err != nil {
					return err
				}
			}
			cancel()
			return nil
		})

	err := tm.newEmitter(1000, 100).Run(ctx)

	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_PublishErrorSkipsCursor(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()

	event := testEvent(1001)
	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
			err := handler(event)
			assert.ErrorIs(t, err, assert.AnError)
			assert.Contains(t, err.Error(), "0xtx:0")
			cancel()
			return nil
		})

	tm.publisher.EXPECT().PublishEvent(gomock.Any(), event).Return(assert.AnError)

	err := tm.newEmitter(1000, 1).Run(ctx)

	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_CursorHeldBelowFailedEvent(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()

	failing := testEvent(1001)
	failing.TxID = "0xa"
	later := testEvent(1005)
	later.TxID = "0xb"
	next := testEvent(1006)
	next.TxID = "0xc"

	gomock.InOrder(
		tm.publisher.EXPECT().PublishEvent(gomock.Any(), failing).Return(assert.AnError),
		tm.publisher.EXPECT().PublishEvent(gomock.Any(), later).Return(nil),
		tm.publisher.EXPECT().PublishEvent(gomock.Any(), failing).Return(nil),
		tm.publisher.EXPECT().PublishEvent(gomock.Any(), next).Return(nil),
	)
	gomock.InOrder(
		// 1005 succeeded but 1001 is still unpublished
		tm.store.EXPECT().SetBlockCursor(gomock.Any(), "testnet", uint64(1000)).Return(nil),
		tm.store.EXPECT().SetBlockCursor(gomock.Any(), "testnet", uint64(1001)).Return(nil),
		tm.store.EXPECT().SetBlockCursor(gomock.Any(), "testnet", uint64(1006)).Return(nil),
	)

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
			assert.Error(t, handler(failing))
			assert.NoError(t, handler(later))
			// redelivery of the failed event releases the cursor
			assert.NoError(t, handler(failing))
			assert.NoError(t, handler(next))
			cancel()
			return nil
		})

	err := tm.newEmitter(1000, 1).Run(ctx)

	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_GetBlockCursorError(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	tm.store.
		EXPECT().
		GetBlockCursor(gomock.Any(), "testnet").
		Return(uint64(0), assert.AnError)

	err := tm.newEmitter(0, 10).Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get block cursor")
}

func TestEmitter_Run_GetLatestBlockError(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	tm.store.
		EXPECT().
		GetBlockCursor(gomock.Any(), "testnet").
		Return(uint64(0), nil)

	tm.subscriber.
		EXPECT().
		GetLatestBlock(gomock.Any()).
		Return(uint64(0), assert.AnError)

	err := tm.newEmitter(0, 10).Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get latest block number")
}

func TestEmitter_Run_SubscribeError(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		Return(domain.ErrMaxRetriesExceeded)

	err := tm.newEmitter(1000, 10).Run(context.Background())

	assert.ErrorIs(t, err, domain.ErrMaxRetriesExceeded)
}

func TestEmitter_Close(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	tm.subscriber.EXPECT().Close()

	tm.newEmitter(1000, 10).Close()
}
