package rest

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-stacks-mint/internal/minting"
	"github.com/feral-file/ff-stacks-mint/internal/store/schema"
)

// Mint statuses
const (
	MintStatusPending   = "pending"
	MintStatusConfirmed = "confirmed"
)

// NFT is the public view of an asset
type NFT struct {
	TokenID      string           `json:"token_id"`
	Network      string           `json:"network"`
	ContractID   string           `json:"contract_id"`
	Creator      string           `json:"creator"`
	Owner        string           `json:"owner"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	MediaURL     string           `json:"media_url"`
	MetadataURL  string           `json:"metadata_url"`
	Listed       bool             `json:"listed"`
	ListingPrice *decimal.Decimal `json:"listing_price,omitempty"`
	MintTxID     string           `json:"mint_tx_id"`
	LastTxID     string           `json:"last_tx_id"`
	Attributes   json.RawMessage  `json:"attributes,omitempty"`
	MintedAt     *time.Time       `json:"minted_at,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewNFT maps a stored asset to its public view
func NewNFT(a *schema.Asset) NFT {
	nft := NFT{
		TokenID:      a.TokenID,
		Network:      a.Network,
		ContractID:   a.ContractID,
		Creator:      a.CreatorAddress,
		Owner:        a.OwnerAddress,
		Title:        a.Title,
		Description:  a.Description,
		MediaURL:     a.MediaURL,
		MetadataURL:  a.MetadataURL,
		Listed:       a.Listed,
		ListingPrice: a.ListingPrice,
		MintTxID:     a.MintTxID,
		LastTxID:     a.LastTxID,
		MintedAt:     a.MintedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if len(a.Attributes) > 0 {
		nft.Attributes = json.RawMessage(a.Attributes)
	}
	return nft
}

// MintStatusResponse reports a mint transaction either as broadcast by this process or as
// confirmed on chain
type MintStatusResponse struct {
	TxID    string               `json:"tx_id"`
	Status  string               `json:"status"`
	Pending *minting.PendingMint `json:"pending,omitempty"`
	NFT     *NFT                 `json:"nft,omitempty"`
}

// ListNFTsResponse is a page of assets
type ListNFTsResponse struct {
	Items  []NFT `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status string `json:"status"`
}
