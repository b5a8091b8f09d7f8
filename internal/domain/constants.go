package domain

import "github.com/shopspring/decimal"

const (
	TxTypePurchase = "purchase"
	TxTypeUsage    = "usage"
	TxTypeRefund   = "refund"
)

const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// DefaultApplication tags ledger rows that no specific client app claimed.
const DefaultApplication = "platform"

// StartingGrant is the free credit every new balance opens with.
var StartingGrant = decimal.RequireFromString("5.00")

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)
