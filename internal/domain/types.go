package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind represents the kind of a decoded contract event
type EventKind string

const (
	EventKindMintConfirmed      EventKind = "mint_confirmed"
	EventKindPurchaseConfirmed  EventKind = "purchase_confirmed"
	EventKindListingConfirmed   EventKind = "listing_confirmed"
	EventKindUnlistingConfirmed EventKind = "unlisting_confirmed"
)

// Contract log event names, as emitted in the `event` field of the print tuple
const (
	LogEventMint     = "nft_mint"
	LogEventPurchase = "nft_purchase"
	LogEventListing  = "nft_listing"
	LogEventUnlist   = "nft_unlisting"
)

// KindForLogEvent maps a contract log event name to its domain event kind
func KindForLogEvent(name string) (EventKind, bool) {
	switch name {
	case LogEventMint:
		return EventKindMintConfirmed, true
	case LogEventPurchase:
		return EventKindPurchaseConfirmed, true
	case LogEventListing, "nft_list":
		return EventKindListingConfirmed, true
	case LogEventUnlist, "nft_unlist":
		return EventKindUnlistingConfirmed, true
	default:
		return "", false
	}
}

// Position orders events on the chain: block height, then transaction index
// within the block, then event index within the transaction.
type Position struct {
	BlockHeight uint64 `json:"block_height"`
	TxIndex     uint32 `json:"tx_index"`
	EventIndex  uint32 `json:"event_index"`
}

const positionFieldMask = 0xFFFF

// Int64 packs the position into a single comparable value.
// Zero means the position is unknown.
func (p Position) Int64() int64 {
	tx := uint64(p.TxIndex)
	if tx > positionFieldMask {
		tx = positionFieldMask
	}
	ev := uint64(p.EventIndex)
	if ev > positionFieldMask {
		ev = positionFieldMask
	}
	return int64((p.BlockHeight&0x7FFFFFFF)<<32 | tx<<16 | ev) //nolint:gosec,G115
}

// Known reports whether the event carried chain coordinates
func (p Position) Known() bool {
	return p.BlockHeight > 0
}

// Newer reports whether an event at position p may overwrite a field last written at stored.
// Unknown positions on either side fall back to last-applied-wins.
func (p Position) Newer(stored int64) bool {
	if !p.Known() || stored == 0 {
		return true
	}
	return p.Int64() >= stored
}

// DomainEvent is a decoded, normalized contract event.
// This is the format published to NATS and consumed by the reconciliation engine.
type DomainEvent struct {
	Kind        EventKind         `json:"kind"`
	Network     Network           `json:"network"`
	ContractID  string            `json:"contract_id"`
	TokenID     string            `json:"token_id"`
	Recipient   string            `json:"recipient,omitempty"` // mint
	Buyer       string            `json:"buyer,omitempty"`     // purchase
	Seller      string            `json:"seller,omitempty"`    // purchase, listing
	Price       *decimal.Decimal  `json:"price,omitempty"`     // STX
	URI         string            `json:"uri,omitempty"`
	TxID        string            `json:"tx_id"`
	BlockHeight uint64            `json:"block_height"`
	TxIndex     uint32            `json:"tx_index"`
	EventIndex  uint32            `json:"event_index"`
	Timestamp   time.Time         `json:"timestamp"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Position returns the chain position of the event
func (e *DomainEvent) Position() Position {
	return Position{BlockHeight: e.BlockHeight, TxIndex: e.TxIndex, EventIndex: e.EventIndex}
}

// Key identifies the event across redeliveries
func (e *DomainEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.TxID, e.EventIndex)
}

// Validate checks the fields required by the event kind
func (e *DomainEvent) Validate() error {
	if e.TxID == "" {
		return fmt.Errorf("missing tx id")
	}
	if _, err := strconv.ParseUint(e.TokenID, 10, 64); err != nil {
		return fmt.Errorf("invalid token id %q", e.TokenID)
	}

	switch e.Kind {
	case EventKindMintConfirmed:
		if e.Recipient == "" {
			return fmt.Errorf("mint event without recipient")
		}
	case EventKindPurchaseConfirmed:
		if e.Buyer == "" {
			return fmt.Errorf("purchase event without buyer")
		}
	case EventKindListingConfirmed:
		if e.Price != nil && e.Price.IsNegative() {
			return fmt.Errorf("negative listing price")
		}
	case EventKindUnlistingConfirmed:
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}

	return nil
}

// MicroSTXToSTX converts an integer micro-STX amount to STX
func MicroSTXToSTX(micro string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(micro)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-6), nil
}
