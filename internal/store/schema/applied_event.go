package schema

import "time"

// AppliedEvent is the journal of contract events already applied to assets.
// The (tx_id, event_index) key makes redelivered events no-ops.
type AppliedEvent struct {
	TxID       string    `gorm:"column:tx_id;primaryKey;type:text"`
	EventIndex int64     `gorm:"column:event_index;primaryKey"`
	Kind       string    `gorm:"column:kind;not null;type:text"`
	TokenID    string    `gorm:"column:token_id;not null;type:text;index"`
	AppliedAt  time.Time `gorm:"column:applied_at;not null;autoCreateTime"`
}

func (AppliedEvent) TableName() string {
	return "applied_events"
}
