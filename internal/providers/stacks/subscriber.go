package stacks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/messaging"
)

const (
	DEFAULT_WORKER_POOL_SIZE   = 20
	DEFAULT_WORKER_QUEUE_SIZE  = 2048
	DEFAULT_MAX_RETRIES        = 10
	DEFAULT_INITIAL_BACKOFF    = time.Second
	DEFAULT_MAX_BACKOFF        = 30 * time.Second
	DEFAULT_CATCH_UP_PAGE_SIZE = 50
	DEFAULT_CATCH_UP_MAX_PAGES = 20

	SUBSCRIPTION_EVENT_ADDRESS_TX = "address_tx_update"
)

// State is the connection state of the subscriber
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// SubscriberConfig holds the configuration for the Stacks event subscription
type SubscriberConfig struct {
	WebSocketURL    string // e.g. wss://api.testnet.hiro.so/extended/v1/ws
	MaxRetries      uint64 // consecutive failed connections before giving up
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	WorkerPoolSize  int // Number of concurrent workers
	WorkerQueueSize int // Size of the task queue
	CatchUpPageSize int
	CatchUpMaxPages int
}

func (c *SubscriberConfig) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = DEFAULT_MAX_RETRIES
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = DEFAULT_INITIAL_BACKOFF
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = DEFAULT_MAX_BACKOFF
	}
	if c.WorkerPoolSize == 0 {
		c.WorkerPoolSize = DEFAULT_WORKER_POOL_SIZE
	}
	if c.WorkerQueueSize == 0 {
		c.WorkerQueueSize = DEFAULT_WORKER_QUEUE_SIZE
	}
	if c.CatchUpPageSize == 0 {
		c.CatchUpPageSize = DEFAULT_CATCH_UP_PAGE_SIZE
	}
	if c.CatchUpMaxPages == 0 {
		c.CatchUpMaxPages = DEFAULT_CATCH_UP_MAX_PAGES
	}
}

// Subscriber is a messaging.Subscriber that also reports its connection state
type Subscriber interface {
	messaging.Subscriber
	State() State
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// streamMessage covers JSON-RPC notifications and responses as well as flat transaction messages
type streamMessage struct {
	Method   string          `json:"method"`
	Params   json.RawMessage `json:"params"`
	Error    *rpcError       `json:"error"`
	TxID     string          `json:"tx_id"`
	TxStatus string          `json:"tx_status"`
}

type notificationParams struct {
	TxID     string       `json:"tx_id"`
	TxStatus string       `json:"tx_status"`
	Tx       *Transaction `json:"tx"`
}

type stacksSubscriber struct {
	ctx     context.Context
	cancel  context.CancelFunc
	config  SubscriberConfig
	dialer  adapter.WebSocketDialer
	client  Client
	decoder *Decoder
	clock   adapter.Clock
	handler messaging.EventHandler
	pool    pond.Pool

	state      atomic.Int32
	running    atomic.Bool
	lastHeight atomic.Uint64

	mu   sync.Mutex
	conn adapter.WebSocketConn

	// failed holds the block height of transactions whose events were not all handled,
	// keyed by tx id, until a redelivery succeeds
	failedMu sync.Mutex
	failed   map[string]uint64
}

// NewSubscriber creates a new Stacks API websocket subscriber
func NewSubscriber(cfg SubscriberConfig, dialer adapter.WebSocketDialer, client Client, decoder *Decoder, clock adapter.Clock) (Subscriber, error) {
	if cfg.WebSocketURL == "" {
		return nil, fmt.Errorf("%w: websocket url is required", domain.ErrInvalidConfig)
	}
	if decoder == nil {
		return nil, fmt.Errorf("%w: decoder is required", domain.ErrInvalidConfig)
	}
	cfg.applyDefaults()

	return &stacksSubscriber{
		config:  cfg,
		dialer:  dialer,
		client:  client,
		decoder: decoder,
		clock:   clock,
	}, nil
}

// State returns the current connection state
func (s *stacksSubscriber) State() State {
	return State(s.state.Load())
}

func (s *stacksSubscriber) setState(state State) {
	s.state.Store(int32(state))
}

// newBackOff returns the reconnect policy: exponential without jitter, capped, and
// limited to MaxRetries consecutive failures
func (s *stacksSubscriber) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.InitialBackoff
	b.MaxInterval = s.config.MaxBackoff
	b.Multiplier = 2.0
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, s.config.MaxRetries)
}

// SubscribeEvents connects to the Stacks API websocket and streams contract events.
// It reconnects with backoff and returns domain.ErrMaxRetriesExceeded once the
// policy gives up.
func (s *stacksSubscriber) SubscribeEvents(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
	if !s.running.CompareAndSwap(false, true) {
		logger.WarnCtx(ctx, "Already subscribed to Stacks events")
		return nil
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.ctx = ctx
	s.cancel = cancel
	s.mu.Unlock()
	s.handler = handler
	s.lastHeight.Store(fromBlock)
	s.failedMu.Lock()
	s.failed = make(map[string]uint64)
	s.failedMu.Unlock()

	// Create worker pool for concurrent transaction processing
	s.pool = pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(s.config.WorkerQueueSize),
		pond.WithContext(ctx),
	)

	logger.InfoCtx(ctx, "Stacks worker pool created",
		zap.Int("workers", s.config.WorkerPoolSize),
		zap.Int("queue_size", s.config.WorkerQueueSize))

	// Ensure graceful shutdown of worker pool
	defer func() {
		logger.InfoCtx(ctx, "Shutting down stacks worker pool",
			zap.Uint64("submitted", s.pool.SubmittedTasks()),
			zap.Uint64("waiting", s.pool.WaitingTasks()),
			zap.Uint64("successful", s.pool.SuccessfulTasks()),
			zap.Uint64("failed", s.pool.FailedTasks()))

		s.pool.StopAndWait()

		logger.InfoCtx(ctx, "Stacks worker pool shutdown complete",
			zap.Uint64("total_submitted", s.pool.SubmittedTasks()),
			zap.Uint64("total_completed", s.pool.CompletedTasks()),
			zap.Uint64("total_failed", s.pool.FailedTasks()))
	}()

	policy := s.newBackOff()
	for {
		s.setState(StateConnecting)
		err := s.runConnection(ctx, policy.Reset)
		s.setState(StateDisconnected)

		if ctx.Err() != nil {
			logger.InfoCtx(ctx, "Stacks websocket connection closed due to context done")
			return ctx.Err()
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return fmt.Errorf("%w: %d consecutive connection failures: %w", domain.ErrMaxRetriesExceeded, s.config.MaxRetries, err)
		}

		logger.WarnCtx(ctx, "Stacks websocket disconnected, reconnecting",
			zap.Error(err),
			zap.Duration("delay", delay),
			zap.Int64("running_workers", s.pool.RunningWorkers()),
			zap.Uint64("waiting_tasks", s.pool.WaitingTasks()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(delay):
		}
	}
}

// runConnection dials, subscribes, catches up and reads until the connection fails
func (s *stacksSubscriber) runConnection(ctx context.Context, onConnected func()) error {
	conn, err := s.dialer.Dial(ctx, s.config.WebSocketURL)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for i, contract := range s.decoder.Contracts() {
		req := rpcRequest{
			JSONRPC: "2.0",
			ID:      i + 1,
			Method:  "subscribe",
			Params: map[string]string{
				"event":   SUBSCRIPTION_EVENT_ADDRESS_TX,
				"address": contract,
			},
		}
		data, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to marshal subscription: %w", err)
		}
		if err := conn.Write(ctx, data); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", contract, err)
		}
	}

	s.setState(StateConnected)
	onConnected()
	logger.InfoCtx(ctx, "Connected to Stacks websocket",
		zap.String("url", s.config.WebSocketURL),
		zap.Strings("contracts", s.decoder.Contracts()))

	s.catchUp(ctx, s.resumeHeight())

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		s.handleMessage(ctx, data)
	}
}

// handleMessage parses one websocket message and queues its transaction.
// Messages that are not transaction updates are ignored.
func (s *stacksSubscriber) handleMessage(ctx context.Context, data []byte) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.WarnCtx(ctx, "Ignoring malformed websocket message", zap.Error(err))
		return
	}

	if msg.Error != nil {
		logger.ErrorCtx(ctx, errors.New("stacks websocket subscription error"),
			zap.Int("code", msg.Error.Code),
			zap.String("message", msg.Error.Message))
		return
	}

	var tx *Transaction
	switch {
	case msg.Method != "" && len(msg.Params) > 0:
		var params notificationParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			logger.WarnCtx(ctx, "Ignoring malformed notification", zap.String("method", msg.Method), zap.Error(err))
			return
		}
		if params.Tx != nil {
			tx = params.Tx
		} else if params.TxID != "" {
			tx = &Transaction{}
			if err := json.Unmarshal(msg.Params, tx); err != nil {
				logger.WarnCtx(ctx, "Ignoring malformed transaction", zap.Error(err))
				return
			}
		}
	case msg.TxStatus != "":
		tx = &Transaction{}
		if err := json.Unmarshal(data, tx); err != nil {
			logger.WarnCtx(ctx, "Ignoring malformed transaction", zap.Error(err))
			return
		}
	}

	if tx == nil || tx.TxStatus != TX_STATUS_SUCCESS {
		return
	}

	s.submit(tx)
}

// submit queues a transaction; its logs are dispatched in order by one worker
func (s *stacksSubscriber) submit(tx *Transaction) {
	if s.handler == nil || s.pool == nil {
		return
	}
	s.pool.SubmitErr(func() error {
		return s.processTransaction(s.ctx, tx)
	})
}

func (s *stacksSubscriber) processTransaction(ctx context.Context, tx *Transaction) error {
	if len(tx.Events) == 0 {
		full, err := s.client.GetTransaction(ctx, tx.TxID)
		if err != nil {
			logger.ErrorCtx(ctx, errors.New("error fetching transaction"), zap.Error(err), zap.String("tx_id", tx.TxID))
			s.markFailed(tx.TxID, tx.BlockHeight)
			return err
		}
		tx = full
	}

	events, decodeErrs := s.decoder.DecodeTransaction(tx)
	for _, err := range decodeErrs {
		logger.ErrorCtx(ctx, errors.New("error decoding contract log"), zap.Error(err), zap.String("tx_id", tx.TxID))
	}

	var errs []error
	for _, event := range events {
		if err := s.handler(event); err != nil {
			logger.ErrorCtx(ctx, errors.New("error handling contract event"),
				zap.Error(err),
				zap.String("tx_id", event.TxID),
				zap.Uint32("event_index", event.EventIndex),
				zap.Uint64("block", event.BlockHeight))
			errs = append(errs, err)
			continue
		}
		s.observeHeight(event.BlockHeight)
	}

	if len(errs) > 0 {
		s.markFailed(tx.TxID, tx.BlockHeight)
		return errors.Join(errs...)
	}
	s.clearFailed(tx.TxID)
	return nil
}

func (s *stacksSubscriber) markFailed(txID string, height uint64) {
	if height == 0 {
		return
	}
	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	if s.failed != nil {
		s.failed[txID] = height
	}
}

func (s *stacksSubscriber) clearFailed(txID string) {
	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	delete(s.failed, txID)
}

// resumeHeight is where catch-up starts: the highest handled block, or the lowest
// block with an unhandled transaction if that is older
func (s *stacksSubscriber) resumeHeight() uint64 {
	height := s.lastHeight.Load()

	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	for _, failed := range s.failed {
		if height == 0 || failed < height {
			height = failed
		}
	}
	return height
}

func (s *stacksSubscriber) observeHeight(height uint64) {
	for {
		current := s.lastHeight.Load()
		if height <= current || s.lastHeight.CompareAndSwap(current, height) {
			return
		}
	}
}

// catchUp re-dispatches confirmed contract transactions at or above fromHeight, oldest first.
// The listing is newest first, so paging stops at the first older transaction.
func (s *stacksSubscriber) catchUp(ctx context.Context, fromHeight uint64) {
	if fromHeight == 0 || s.client == nil {
		return
	}

	seen := make(map[string]struct{})
	var txs []Transaction

	for _, contract := range s.decoder.Contracts() {
	pages:
		for page := 0; page < s.config.CatchUpMaxPages; page++ {
			list, err := s.client.ListContractTransactions(ctx, contract, s.config.CatchUpPageSize, page*s.config.CatchUpPageSize)
			if err != nil {
				logger.ErrorCtx(ctx, errors.New("error listing contract transactions for catch-up"),
					zap.Error(err),
					zap.String("contract", contract))
				break
			}

			for _, tx := range list.Results {
				if tx.BlockHeight < fromHeight {
					break pages
				}
				if _, ok := seen[tx.TxID]; ok {
					continue
				}
				seen[tx.TxID] = struct{}{}
				txs = append(txs, tx)
			}

			if len(list.Results) < s.config.CatchUpPageSize {
				break
			}
		}
	}

	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].BlockHeight != txs[j].BlockHeight {
			return txs[i].BlockHeight < txs[j].BlockHeight
		}
		return txs[i].TxIndex < txs[j].TxIndex
	})

	logger.InfoCtx(ctx, "Catching up contract transactions",
		zap.Uint64("from_height", fromHeight),
		zap.Int("transactions", len(txs)))

	for i := range txs {
		if txs[i].TxStatus != TX_STATUS_SUCCESS {
			continue
		}
		s.submit(&txs[i])
	}
}

// GetLatestBlock returns the current stacks tip height
func (s *stacksSubscriber) GetLatestBlock(ctx context.Context) (uint64, error) {
	return s.client.GetChainTip(ctx)
}

// Close stops the subscription and closes the websocket connection
func (s *stacksSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
