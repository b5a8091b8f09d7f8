package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the authoritative per-user funds row. Only the billing service
// writes Amount; every change is paired with a Transaction in the same DB
// transaction. Never deleted.
type Balance struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Balance) TableName() string {
	return "balances"
}
