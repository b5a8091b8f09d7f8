package service

import (
	"encoding/json"
	"errors"

	"draftly/internal/domain"
	"draftly/internal/models"
	"draftly/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// BillingService is the only writer of Balance.Amount. Every mutation pairs
// the balance update with exactly one ledger row inside a single DB
// transaction: a failure anywhere aborts both.
type BillingService struct {
	db     *gorm.DB
	ledger *repository.LedgerRepository
	log    *logrus.Logger
}

func NewBillingService(db *gorm.DB, ledger *repository.LedgerRepository, log *logrus.Logger) *BillingService {
	return &BillingService{db: db, ledger: ledger, log: log}
}

func (s *BillingService) GetOrCreateBalance(userID uint) (*models.Balance, error) {
	return s.ledger.GetOrCreateBalance(userID)
}

func (s *BillingService) ListTransactions(userID uint, application string) ([]models.Transaction, error) {
	return s.ledger.ListTransactions(userID, application)
}

// Credit adds funds and appends a completed purchase row. gatewayEventID is
// set for webhook-driven credits and nil for direct top-ups; the ledger's
// unique index on it makes replayed gateway events surface as
// gorm.ErrDuplicatedKey before the balance is touched.
func (s *BillingService) Credit(userID uint, amount decimal.Decimal, application, operation string, metadata map[string]interface{}, gatewayEventID *string) (*models.Balance, *models.Transaction, error) {
	return s.credit(userID, amount, domain.TxTypePurchase, application, operation, metadata, gatewayEventID)
}

// Refund has credit shape but tags the row as a refund.
func (s *BillingService) Refund(userID uint, amount decimal.Decimal, application, operation string, metadata map[string]interface{}) (*models.Balance, *models.Transaction, error) {
	return s.credit(userID, amount, domain.TxTypeRefund, application, operation, metadata, nil)
}

func (s *BillingService) credit(userID uint, amount decimal.Decimal, txType, application, operation string, metadata map[string]interface{}, gatewayEventID *string) (*models.Balance, *models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrInvalidAmount
	}
	amount = amount.Round(2)
	if application == "" {
		application = domain.DefaultApplication
	}
	var (
		balance *models.Balance
		txn     models.Transaction
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.ledger.GetOrCreateBalanceTx(tx, userID)
		if err != nil {
			return err
		}
		txn = models.Transaction{
			UserID:         userID,
			BalanceID:      b.ID,
			Application:    application,
			Amount:         amount,
			Type:           txType,
			Operation:      operation,
			Status:         domain.TxStatusCompleted,
			Metadata:       encodeMetadata(metadata),
			GatewayEventID: gatewayEventID,
		}
		if err := s.ledger.Append(tx, &txn); err != nil {
			return err
		}
		if err := s.ledger.AddAmount(tx, b.ID, amount); err != nil {
			return err
		}
		balance, err = s.ledger.ReloadBalance(tx, b.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"amount":      amount.String(),
		"type":        txType,
		"application": application,
	}).Info("balance credited")
	return balance, &txn, nil
}

// Debit removes funds after a storage-level sufficiency check. A rejected
// debit leaves no ledger trace at all; only a successful one appends a
// completed usage row.
func (s *BillingService) Debit(userID uint, amount decimal.Decimal, application, operation string, metadata map[string]interface{}) (*models.Balance, *models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrInvalidAmount
	}
	amount = amount.Round(2)
	if application == "" {
		application = domain.DefaultApplication
	}
	var (
		balance *models.Balance
		txn     models.Transaction
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.ledger.GetOrCreateBalanceTx(tx, userID)
		if err != nil {
			return err
		}
		ok, err := s.ledger.TrySubtract(tx, b.ID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientBalance
		}
		txn = models.Transaction{
			UserID:      userID,
			BalanceID:   b.ID,
			Application: application,
			Amount:      amount,
			Type:        domain.TxTypeUsage,
			Operation:   operation,
			Status:      domain.TxStatusCompleted,
			Metadata:    encodeMetadata(metadata),
		}
		if err := s.ledger.Append(tx, &txn); err != nil {
			return err
		}
		balance, err = s.ledger.ReloadBalance(tx, b.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"amount":      amount.String(),
		"application": application,
	}).Info("balance debited")
	return balance, &txn, nil
}

// RecordFailedPurchase appends a failed purchase row for audit without
// touching the balance.
func (s *BillingService) RecordFailedPurchase(userID uint, amount decimal.Decimal, application string, metadata map[string]interface{}, gatewayEventID *string) (*models.Transaction, error) {
	if application == "" {
		application = domain.DefaultApplication
	}
	var txn models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.ledger.GetOrCreateBalanceTx(tx, userID)
		if err != nil {
			return err
		}
		txn = models.Transaction{
			UserID:         userID,
			BalanceID:      b.ID,
			Application:    application,
			Amount:         amount.Round(2),
			Type:           domain.TxTypePurchase,
			Status:         domain.TxStatusFailed,
			Metadata:       encodeMetadata(metadata),
			GatewayEventID: gatewayEventID,
		}
		return s.ledger.Append(tx, &txn)
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func encodeMetadata(metadata map[string]interface{}) string {
	if len(metadata) == 0 {
		return ""
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(raw)
}
