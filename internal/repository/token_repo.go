package repository

import (
	"errors"

	"draftly/internal/models"

	"gorm.io/gorm"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Revoke adds a token id to the blocklist. Revoking the same id twice is fine.
func (r *TokenRepository) Revoke(jti string) error {
	err := r.db.Create(&models.TokenBlocklist{JTI: jti}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *TokenRepository) IsRevoked(jti string) bool {
	var count int64
	r.db.Model(&models.TokenBlocklist{}).Where("jti = ?", jti).Count(&count)
	return count > 0
}
