package stacks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/feral-file/ff-stacks-mint/internal/clarity"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
)

// Normalized names of the log fields the decoder understands
const (
	FieldEvent     = "event"
	FieldTokenID   = "token_id"
	FieldRecipient = "recipient"
	FieldBuyer     = "buyer"
	FieldSeller    = "seller"
	FieldPrice     = "price"
	FieldURI       = "uri"
)

// knownFields maps log keys to their normalized names
var knownFields = map[string]string{
	"event":        FieldEvent,
	"token-id":     FieldTokenID,
	"token_id":     FieldTokenID,
	"id":           FieldTokenID,
	"recipient":    FieldRecipient,
	"owner":        FieldRecipient,
	"buyer":        FieldBuyer,
	"seller":       FieldSeller,
	"price":        FieldPrice,
	"uri":          FieldURI,
	"token-uri":    FieldURI,
	"metadata-url": FieldURI,
}

// ErrNotDomainEvent is returned for logs that are not one of the contract's domain events
var ErrNotDomainEvent = errors.New("not a domain event")

// DecodedLog is a contract log flattened into fields
type DecodedLog struct {
	// Fields holds the known fields under their normalized names with plain values
	Fields map[string]string
	// Extra holds every other field under its original name with its raw value
	Extra map[string]string
}

// DecodeLog parses the repr of a printed Clarity value. Known keys are renamed and their
// values stripped of type markers (u5 -> 5, "x" -> x, 'SP.. -> SP..). Unknown keys and their
// raw values pass through unchanged.
func DecodeLog(repr string) (*DecodedLog, error) {
	value, err := clarity.ParseRepr(repr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log: %w", err)
	}

	decoded := &DecodedLog{
		Fields: make(map[string]string),
		Extra:  make(map[string]string),
	}

	// A bare string print carries only the event name
	if value.Type == clarity.TypeStringASCII || value.Type == clarity.TypeStringUTF8 {
		decoded.Fields[FieldEvent] = value.Str
		return decoded, nil
	}

	for _, field := range clarity.Flatten(value) {
		leaf := field.Name
		if i := strings.LastIndexByte(leaf, '.'); i >= 0 {
			leaf = leaf[i+1:]
		}

		name, known := knownFields[leaf]
		if !known {
			decoded.Extra[field.Name] = field.Value.Repr()
			continue
		}
		if _, dup := decoded.Fields[name]; dup {
			decoded.Extra[field.Name] = field.Value.Repr()
			continue
		}
		decoded.Fields[name] = field.Value.Unwrap().Plain()
	}

	return decoded, nil
}

// Decoder turns confirmed transactions of the watched contracts into domain events
type Decoder struct {
	network             domain.Network
	creatorContract     string
	marketplaceContract string
}

// NewDecoder creates a decoder for the creator and marketplace contracts
func NewDecoder(network domain.Network, creatorContract, marketplaceContract string) *Decoder {
	return &Decoder{
		network:             network,
		creatorContract:     creatorContract,
		marketplaceContract: marketplaceContract,
	}
}

// Contracts returns the watched contract ids
func (d *Decoder) Contracts() []string {
	contracts := []string{d.creatorContract}
	if d.marketplaceContract != "" && d.marketplaceContract != d.creatorContract {
		contracts = append(contracts, d.marketplaceContract)
	}
	return contracts
}

func (d *Decoder) watches(contractID string) bool {
	return contractID == d.creatorContract || (d.marketplaceContract != "" && contractID == d.marketplaceContract)
}

// DecodeTransaction returns one event per matching contract log, in event index order.
// Transactions that did not succeed produce nothing. Logs that fail to decode are
// reported in errs and skipped.
func (d *Decoder) DecodeTransaction(tx *Transaction) (events []*domain.DomainEvent, errs []error) {
	if tx == nil || tx.TxStatus != TX_STATUS_SUCCESS {
		return nil, nil
	}

	logs := make([]TransactionEvent, 0, len(tx.Events))
	for _, e := range tx.Events {
		if e.EventType != EVENT_TYPE_SMART_CONTRACT_LOG && e.EventType != EVENT_TYPE_CONTRACT_LOG {
			continue
		}
		if e.ContractLog == nil || !d.watches(e.ContractLog.ContractID) {
			continue
		}
		logs = append(logs, e)
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].EventIndex < logs[j].EventIndex })

	timestamp := transactionTime(tx)
	for _, e := range logs {
		event, err := d.decodeEvent(tx, e, timestamp)
		if err != nil {
			if !errors.Is(err, ErrNotDomainEvent) {
				errs = append(errs, fmt.Errorf("tx %s event %d: %w", tx.TxID, e.EventIndex, err))
			}
			continue
		}
		events = append(events, event)
	}

	return events, errs
}

func (d *Decoder) decodeEvent(tx *Transaction, e TransactionEvent, timestamp time.Time) (*domain.DomainEvent, error) {
	decoded, err := DecodeLog(e.ContractLog.Value.Repr)
	if err != nil {
		return nil, err
	}

	kind, ok := domain.KindForLogEvent(decoded.Fields[FieldEvent])
	if !ok {
		return nil, ErrNotDomainEvent
	}

	// Mints come from the creator contract, trades from the marketplace
	contractID := e.ContractLog.ContractID
	if kind == domain.EventKindMintConfirmed {
		if contractID != d.creatorContract {
			return nil, ErrNotDomainEvent
		}
	} else if d.marketplaceContract != "" && contractID != d.marketplaceContract {
		return nil, ErrNotDomainEvent
	}

	event := &domain.DomainEvent{
		Kind:        kind,
		Network:     d.network,
		ContractID:  contractID,
		TokenID:     decoded.Fields[FieldTokenID],
		Recipient:   decoded.Fields[FieldRecipient],
		Buyer:       decoded.Fields[FieldBuyer],
		Seller:      decoded.Fields[FieldSeller],
		URI:         decoded.Fields[FieldURI],
		TxID:        NormalizeTxID(tx.TxID),
		BlockHeight: tx.BlockHeight,
		TxIndex:     tx.TxIndex,
		EventIndex:  e.EventIndex,
		Timestamp:   timestamp,
	}
	if len(decoded.Extra) > 0 {
		event.Attributes = decoded.Extra
	}

	if raw, ok := decoded.Fields[FieldPrice]; ok && raw != "" {
		price, err := domain.MicroSTXToSTX(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", raw, err)
		}
		event.Price = &price
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

func transactionTime(tx *Transaction) time.Time {
	switch {
	case tx.BlockTime > 0:
		return time.Unix(tx.BlockTime, 0).UTC()
	case tx.BurnBlockTime > 0:
		return time.Unix(tx.BurnBlockTime, 0).UTC()
	default:
		return time.Time{}
	}
}
