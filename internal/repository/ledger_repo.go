package repository

import (
	"errors"

	"draftly/internal/domain"
	"draftly/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerRepository is the storage layer for balances and their append-only
// transaction log. Mutations are expected to run inside one gorm transaction
// supplied by the caller so a balance update and its ledger row commit or roll
// back together.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) GetBalance(userID uint) (*models.Balance, error) {
	var b models.Balance
	if err := r.db.Where("user_id = ?", userID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetOrCreateBalance returns the user's balance row, creating it with the
// starting grant on first touch. A concurrent create for the same user loses
// on the user_id unique index and re-reads the winner's row.
func (r *LedgerRepository) GetOrCreateBalance(userID uint) (*models.Balance, error) {
	return r.getOrCreateBalance(r.db, userID)
}

// GetOrCreateBalanceTx is GetOrCreateBalance scoped to an open transaction.
func (r *LedgerRepository) GetOrCreateBalanceTx(tx *gorm.DB, userID uint) (*models.Balance, error) {
	return r.getOrCreateBalance(tx, userID)
}

func (r *LedgerRepository) getOrCreateBalance(db *gorm.DB, userID uint) (*models.Balance, error) {
	var b models.Balance
	err := db.Where("user_id = ?", userID).First(&b).Error
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	b = models.Balance{UserID: userID, Amount: domain.StartingGrant}
	err = db.Create(&b).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the race; someone else created it.
		err = db.Where("user_id = ?", userID).First(&b).Error
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Append inserts one ledger row. The store assigns the id; a duplicate gateway
// dedup key surfaces as gorm.ErrDuplicatedKey.
func (r *LedgerRepository) Append(tx *gorm.DB, txn *models.Transaction) error {
	return tx.Create(txn).Error
}

// AddAmount increases a balance unconditionally.
func (r *LedgerRepository) AddAmount(tx *gorm.DB, balanceID uint, amount decimal.Decimal) error {
	return tx.Model(&models.Balance{}).Where("id = ?", balanceID).
		Update("amount", gorm.Expr("amount + ?", amount)).Error
}

// TrySubtract decreases a balance only if the funds cover it. The conditional
// update is what serializes concurrent debits across process instances: of two
// overdrawing debits the storage engine lets exactly one row-match succeed.
func (r *LedgerRepository) TrySubtract(tx *gorm.DB, balanceID uint, amount decimal.Decimal) (bool, error) {
	res := tx.Model(&models.Balance{}).
		Where("id = ? AND amount >= ?", balanceID, amount).
		Update("amount", gorm.Expr("amount - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *LedgerRepository) ReloadBalance(tx *gorm.DB, balanceID uint) (*models.Balance, error) {
	var b models.Balance
	if err := tx.First(&b, balanceID).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListTransactions returns the user's ledger newest first, optionally filtered
// by originating application.
func (r *LedgerRepository) ListTransactions(userID uint, application string) ([]models.Transaction, error) {
	q := r.db.Where("user_id = ?", userID)
	if application != "" {
		q = q.Where("application = ?", application)
	}
	var txns []models.Transaction
	if err := q.Order("created_at DESC, id DESC").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
