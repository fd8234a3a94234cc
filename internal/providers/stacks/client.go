package stacks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/clarity"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/ratelimit"
)

const (
	EVENT_TYPE_SMART_CONTRACT_LOG = "smart_contract_log"
	EVENT_TYPE_CONTRACT_LOG       = "contract_log"

	TX_STATUS_SUCCESS = "success"

	// maxEventLimit is the largest page of events the API returns with a transaction
	maxEventLimit = 200
)

// ClarityValue is a Clarity value as printed by the Stacks API
type ClarityValue struct {
	Hex  string `json:"hex"`
	Repr string `json:"repr"`
}

// ContractLog is the payload of a print event
type ContractLog struct {
	ContractID string       `json:"contract_id"`
	Topic      string       `json:"topic"`
	Value      ClarityValue `json:"value"`
}

// TransactionEvent is one event emitted by a transaction
type TransactionEvent struct {
	EventIndex  uint32       `json:"event_index"`
	EventType   string       `json:"event_type"`
	TxID        string       `json:"tx_id,omitempty"`
	ContractLog *ContractLog `json:"contract_log,omitempty"`
}

// ContractCallInfo describes the contract call a transaction made
type ContractCallInfo struct {
	ContractID   string `json:"contract_id"`
	FunctionName string `json:"function_name"`
}

// Transaction is a transaction as returned by the Stacks API
type Transaction struct {
	TxID          string             `json:"tx_id"`
	TxStatus      string             `json:"tx_status"`
	TxType        string             `json:"tx_type"`
	TxIndex       uint32             `json:"tx_index"`
	BlockHeight   uint64             `json:"block_height"`
	BlockTime     int64              `json:"block_time"`
	BurnBlockTime int64              `json:"burn_block_time"`
	SenderAddress string             `json:"sender_address"`
	ContractCall  *ContractCallInfo  `json:"contract_call,omitempty"`
	EventCount    int                `json:"event_count"`
	Events        []TransactionEvent `json:"events"`
}

// TransactionList is a page of transactions
type TransactionList struct {
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Total   int           `json:"total"`
	Results []Transaction `json:"results"`
}

type readOnlyRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

type readOnlyResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

type infoResponse struct {
	StacksTipHeight uint64 `json:"stacks_tip_height"`
}

type accountResponse struct {
	Nonce uint64 `json:"nonce"`
}

type broadcastRejection struct {
	Error      string          `json:"error"`
	Reason     string          `json:"reason"`
	ReasonData json.RawMessage `json:"reason_data"`
	TxID       string          `json:"txid"`
}

// ClientConfig holds the configuration for the Stacks API client
type ClientConfig struct {
	APIURL          string // e.g. https://api.testnet.hiro.so
	CreatorContract string // address.name of the creator NFT contract
	// SenderAddress is the principal used as sender for read-only calls
	SenderAddress string
}

// Client defines an interface for Stacks API client operations to enable mocking
//
//go:generate mockgen -source=client.go -destination=../../mocks/stacks_client.go -package=mocks -mock_names=Client=MockStacksClient
type Client interface {
	// GetLastTokenID returns the last minted token id, nil when none has been minted
	GetLastTokenID(ctx context.Context) (*uint64, error)
	// GetTokenURI returns the SIP-009 token uri, empty when the contract has none
	GetTokenURI(ctx context.Context, tokenID uint64) (string, error)
	// GetAccountNonce returns the next nonce for an account
	GetAccountNonce(ctx context.Context, address string) (uint64, error)
	// Broadcast submits a signed transaction once and returns its id
	Broadcast(ctx context.Context, rawTx []byte) (string, error)
	// GetTransaction returns a transaction with its events
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)
	// ListContractTransactions returns transactions involving a contract, newest first
	ListContractTransactions(ctx context.Context, contractID string, limit, offset int) (*TransactionList, error)
	// GetChainTip returns the current stacks block height
	GetChainTip(ctx context.Context) (uint64, error)
}

// client is the concrete implementation of Client
type client struct {
	baseURL    string
	config     ClientConfig
	httpClient adapter.HTTPClient
	limiter    ratelimit.Limiter
}

// NewClient creates a new Stacks API client
func NewClient(cfg ClientConfig, httpClient adapter.HTTPClient, limiter ratelimit.Limiter) Client {
	return &client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		config:     cfg,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

func (c *client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// callReadOnly calls a read-only contract function and decodes the result
func (c *client) callReadOnly(ctx context.Context, contractID, function string, args ...clarity.Value) (clarity.Value, error) {
	address, name, ok := strings.Cut(contractID, ".")
	if !ok {
		return clarity.Value{}, fmt.Errorf("invalid contract id %q", contractID)
	}

	req := readOnlyRequest{Sender: c.config.SenderAddress, Arguments: []string{}}
	if req.Sender == "" {
		req.Sender = address
	}
	for _, arg := range args {
		encoded, err := clarity.SerializeHex(arg)
		if err != nil {
			return clarity.Value{}, fmt.Errorf("failed to encode argument: %w", err)
		}
		req.Arguments = append(req.Arguments, encoded)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return clarity.Value{}, fmt.Errorf("failed to marshal read-only request: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return clarity.Value{}, err
	}

	url := fmt.Sprintf("%s/v2/contracts/call-read/%s/%s/%s", c.baseURL, address, name, function)
	respBody, err := c.httpClient.Post(ctx, url, "application/json", body)
	if err != nil {
		return clarity.Value{}, fmt.Errorf("%w: failed to call %s: %w", domain.ErrLedgerUnavailable, function, err)
	}

	var resp readOnlyResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return clarity.Value{}, fmt.Errorf("failed to decode read-only response: %w", err)
	}
	if !resp.Okay {
		return clarity.Value{}, fmt.Errorf("read-only call %s failed: %s", function, resp.Cause)
	}

	value, err := clarity.DeserializeHex(resp.Result)
	if err != nil {
		return clarity.Value{}, fmt.Errorf("failed to decode %s result: %w", function, err)
	}
	return value, nil
}

// GetLastTokenID reads get-last-token-id from the creator contract
func (c *client) GetLastTokenID(ctx context.Context) (*uint64, error) {
	value, err := c.callReadOnly(ctx, c.config.CreatorContract, domain.FUNCTION_GET_LAST_TOKEN_ID)
	if err != nil {
		return nil, err
	}

	if value.Type == clarity.TypeResponseErr {
		return nil, fmt.Errorf("%s returned %s", domain.FUNCTION_GET_LAST_TOKEN_ID, value.Repr())
	}

	inner := value.Unwrap()
	if inner.Type == clarity.TypeNone {
		return nil, nil
	}

	last, err := inner.Uint64()
	if err != nil {
		return nil, fmt.Errorf("unexpected %s result %s: %w", domain.FUNCTION_GET_LAST_TOKEN_ID, value.Repr(), err)
	}
	return &last, nil
}

// GetTokenURI reads get-token-uri from the creator contract
func (c *client) GetTokenURI(ctx context.Context, tokenID uint64) (string, error) {
	value, err := c.callReadOnly(ctx, c.config.CreatorContract, domain.FUNCTION_GET_TOKEN_URI, clarity.UInt(tokenID))
	if err != nil {
		return "", err
	}

	if value.Type == clarity.TypeResponseErr {
		return "", fmt.Errorf("%s returned %s", domain.FUNCTION_GET_TOKEN_URI, value.Repr())
	}

	inner := value.Unwrap()
	switch inner.Type {
	case clarity.TypeNone:
		return "", nil
	case clarity.TypeStringASCII, clarity.TypeStringUTF8:
		return inner.Str, nil
	default:
		return "", fmt.Errorf("unexpected %s result %s", domain.FUNCTION_GET_TOKEN_URI, value.Repr())
	}
}

// GetAccountNonce fetches the account nonce, bypassing any cache
func (c *client) GetAccountNonce(ctx context.Context, address string) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/v2/accounts/%s?proof=0", c.baseURL, address)

	var account accountResponse
	if err := c.httpClient.Get(ctx, url, &account); err != nil {
		return 0, fmt.Errorf("%w: failed to get nonce for %s: %w", domain.ErrLedgerUnavailable, address, err)
	}
	return account.Nonce, nil
}

// Broadcast submits a signed transaction. It is never retried: a synchronous rejection is a
// *domain.RejectedError, anything else that prevents an answer is ErrLedgerUnavailable.
func (c *client) Broadcast(ctx context.Context, rawTx []byte) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v2/transactions", c.baseURL)
	resp, err := c.httpClient.PostOnce(ctx, url, "application/octet-stream", rawTx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to broadcast transaction: %w", domain.ErrLedgerUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		var txID string
		if err := json.Unmarshal(resp.Body, &txID); err != nil {
			txID = strings.TrimSpace(string(resp.Body))
		}
		if txID == "" {
			return "", fmt.Errorf("%w: empty broadcast response", domain.ErrLedgerUnavailable)
		}
		return NormalizeTxID(txID), nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: failed to broadcast transaction: %w", domain.ErrLedgerUnavailable,
			&adapter.HTTPStatusError{StatusCode: resp.StatusCode, Body: resp.Body})

	default:
		return "", parseRejection(resp)
	}
}

func parseRejection(resp *adapter.Response) error {
	var rejection broadcastRejection
	if err := json.Unmarshal(resp.Body, &rejection); err != nil || (rejection.Reason == "" && rejection.Error == "") {
		return &domain.RejectedError{
			Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(resp.Body))),
		}
	}

	reason := rejection.Reason
	if reason == "" {
		reason = rejection.Error
	}
	reasonData := ""
	if len(rejection.ReasonData) > 0 && string(rejection.ReasonData) != "null" {
		reasonData = string(rejection.ReasonData)
	}

	txID := ""
	if rejection.TxID != "" {
		txID = NormalizeTxID(rejection.TxID)
	}

	return &domain.RejectedError{TxID: txID, Reason: reason, ReasonData: reasonData}
}

// GetTransaction fetches a transaction with its events
func (c *client) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/extended/v1/tx/%s?event_limit=%d", c.baseURL, NormalizeTxID(txID), maxEventLimit)

	var tx Transaction
	if err := c.httpClient.Get(ctx, url, &tx); err != nil {
		var statusErr *adapter.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("transaction %s not found: %w", txID, err)
		}
		return nil, fmt.Errorf("%w: failed to get transaction %s: %w", domain.ErrLedgerUnavailable, txID, err)
	}
	return &tx, nil
}

// ListContractTransactions lists transactions involving a contract principal
func (c *client) ListContractTransactions(ctx context.Context, contractID string, limit, offset int) (*TransactionList, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/extended/v1/address/%s/transactions?limit=%d&offset=%d", c.baseURL, contractID, limit, offset)

	var list TransactionList
	if err := c.httpClient.Get(ctx, url, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to list transactions of %s: %w", domain.ErrLedgerUnavailable, contractID, err)
	}
	return &list, nil
}

// GetChainTip reads the node info for the current stacks tip height
func (c *client) GetChainTip(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	var info infoResponse
	if err := c.httpClient.Get(ctx, fmt.Sprintf("%s/v2/info", c.baseURL), &info); err != nil {
		return 0, fmt.Errorf("%w: failed to get chain tip: %w", domain.ErrLedgerUnavailable, err)
	}
	return info.StacksTipHeight, nil
}

// NormalizeTxID returns the 0x-prefixed lower-case form of a transaction id
func NormalizeTxID(txID string) string {
	txID = strings.ToLower(strings.Trim(strings.TrimSpace(txID), `"`))
	if !strings.HasPrefix(txID, "0x") {
		txID = "0x" + txID
	}
	return txID
}
