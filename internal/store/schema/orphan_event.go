package schema

import (
	"time"

	"gorm.io/datatypes"
)

// OrphanEvent holds an event that arrived before the mint of its token.
// It is replayed, in position order, once the mint is applied.
type OrphanEvent struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	TxID       string         `gorm:"column:tx_id;not null;type:text;uniqueIndex:idx_orphan_events_tx_event,priority:1"`
	EventIndex int64          `gorm:"column:event_index;not null;uniqueIndex:idx_orphan_events_tx_event,priority:2"`
	TokenID    string         `gorm:"column:token_id;not null;type:text;index"`
	Kind       string         `gorm:"column:kind;not null;type:text"`
	Position   int64          `gorm:"column:position;not null;default:0"`
	Payload    datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;autoCreateTime"`
}

func (OrphanEvent) TableName() string {
	return "orphan_events"
}
