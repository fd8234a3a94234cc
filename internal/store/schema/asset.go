package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Asset represents the assets table - one row per minted token of the creator contract
type Asset struct {
	// TokenID is the on-chain token id in decimal form
	TokenID string `gorm:"column:token_id;primaryKey;type:text"`
	// Network is the Stacks network the token lives on
	Network string `gorm:"column:network;not null;type:text"`
	// ContractID is the creator contract principal (address.name)
	ContractID string `gorm:"column:contract_id;not null;type:text"`
	// CreatorAddress is the minting principal; never changes after creation
	CreatorAddress string `gorm:"column:creator_address;not null;type:text;index"`
	// OwnerAddress is the current owner; changes only on a confirmed purchase
	OwnerAddress string `gorm:"column:owner_address;not null;type:text;index"`
	Title        string `gorm:"column:title;not null;type:text;default:''"`
	Description  string `gorm:"column:description;not null;type:text;default:''"`
	MediaURL     string `gorm:"column:media_url;not null;type:text;default:''"`
	MetadataURL  string `gorm:"column:metadata_url;not null;type:text;default:''"`
	// ListingPrice is the marketplace price in STX while listed
	ListingPrice *decimal.Decimal `gorm:"column:listing_price;type:numeric(38,6)"`
	Listed       bool             `gorm:"column:listed;not null;default:false"`
	// MintTxID is the transaction that minted the token
	MintTxID string `gorm:"column:mint_tx_id;not null;type:text;index"`
	// LastTxID is the last transaction applied to this row
	LastTxID string `gorm:"column:last_tx_id;not null;type:text"`
	// OwnerPosition is the packed chain position of the event that last set the owner
	OwnerPosition int64 `gorm:"column:owner_position;not null;default:0"`
	// ListingPosition is the packed chain position of the event that last set listing state
	ListingPosition int64 `gorm:"column:listing_position;not null;default:0"`
	// Attributes holds extra fields decoded from the mint log
	Attributes datatypes.JSON `gorm:"column:attributes;type:jsonb"`
	MintedAt   *time.Time     `gorm:"column:minted_at"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (Asset) TableName() string {
	return "assets"
}
