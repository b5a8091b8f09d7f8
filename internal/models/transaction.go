package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one append-only ledger row. Amount is always positive; Type
// says which way it moved the balance. GatewayEventID carries the provider
// payment-intent id for webhook-driven rows; the composite unique index with
// Status is the redelivery dedup key (one completed and one failed row per
// intent at most).
type Transaction struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	BalanceID      uint            `gorm:"not null;index" json:"balance_id"`
	Application    string          `gorm:"size:50;not null" json:"application"` // e.g. 'speech', 'autodraft'
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Type           string          `gorm:"size:20;not null" json:"transaction_type"` // purchase | usage | refund
	Operation      string          `gorm:"size:50" json:"operation"`
	Status         string          `gorm:"size:20;not null;index;uniqueIndex:idx_gateway_event_status" json:"status"` // pending | completed | failed
	ReferenceID    *uint           `json:"reference_id"`
	Metadata       string          `gorm:"type:text" json:"transaction_metadata"` // JSON
	GatewayEventID *string         `gorm:"size:255;uniqueIndex:idx_gateway_event_status" json:"-"`
	CreatedAt      time.Time       `json:"created_at"`

	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Balance Balance `gorm:"foreignKey:BalanceID" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}
