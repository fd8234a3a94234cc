package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
)

func TestPosition_Ordering(t *testing.T) {
	a := domain.Position{BlockHeight: 10, TxIndex: 2, EventIndex: 1}
	b := domain.Position{BlockHeight: 10, TxIndex: 3, EventIndex: 0}
	c := domain.Position{BlockHeight: 11}

	assert.Less(t, a.Int64(), b.Int64())
	assert.Less(t, b.Int64(), c.Int64())
	assert.True(t, c.Newer(b.Int64()))
	assert.False(t, a.Newer(b.Int64()))
}

func TestPosition_UnknownIsLastAppliedWins(t *testing.T) {
	unknown := domain.Position{}
	stored := domain.Position{BlockHeight: 100}.Int64()

	assert.False(t, unknown.Known())
	assert.True(t, unknown.Newer(stored))
	assert.True(t, domain.Position{BlockHeight: 1}.Newer(0))
}

func TestDomainEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   domain.DomainEvent
		wantErr bool
	}{
		{
			name:  "valid mint",
			event: domain.DomainEvent{Kind: domain.EventKindMintConfirmed, TokenID: "3", Recipient: "ST1", TxID: "0x1"},
		},
		{
			name:    "mint without recipient",
			event:   domain.DomainEvent{Kind: domain.EventKindMintConfirmed, TokenID: "3", TxID: "0x1"},
			wantErr: true,
		},
		{
			name:    "non numeric token id",
			event:   domain.DomainEvent{Kind: domain.EventKindPurchaseConfirmed, TokenID: "abc", Buyer: "ST2", TxID: "0x1"},
			wantErr: true,
		},
		{
			name:    "purchase without buyer",
			event:   domain.DomainEvent{Kind: domain.EventKindPurchaseConfirmed, TokenID: "3", TxID: "0x1"},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			event:   domain.DomainEvent{Kind: "burn", TokenID: "3", TxID: "0x1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDomainEvent_Key(t *testing.T) {
	e := domain.DomainEvent{TxID: "0xabc", EventIndex: 4}
	assert.Equal(t, "0xabc:4", e.Key())
}

func TestMicroSTXToSTX(t *testing.T) {
	d, err := domain.MicroSTXToSTX("1500000")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("1.5")))

	_, err = domain.MicroSTXToSTX("u15")
	assert.Error(t, err)
}

func TestRejectedError_Is(t *testing.T) {
	err := fmt.Errorf("broadcast: %w", &domain.RejectedError{Reason: "BadNonce"})
	assert.True(t, errors.Is(err, domain.ErrMintRejected))

	var rejected *domain.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "BadNonce", rejected.Reason)
}

func TestParseNetwork(t *testing.T) {
	n, err := domain.ParseNetwork("testnet")
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkTestnet, n)
	assert.Equal(t, byte(0x80), n.TransactionVersion())
	assert.Equal(t, domain.AddressVersionTestnetSingleSig, n.SingleSigAddressVersion())

	_, err = domain.ParseNetwork("")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = domain.ParseNetwork("regtest")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
