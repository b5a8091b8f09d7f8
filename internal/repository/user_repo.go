package repository

import (
	"draftly/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) Update(u *models.User) error {
	return r.db.Save(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByProviderID looks up a user by social login id. Unknown providers fall
// through to gorm.ErrRecordNotFound.
func (r *UserRepository) GetByProviderID(provider, socialID string) (*models.User, error) {
	var u models.User
	q := r.db
	switch provider {
	case "google":
		q = q.Where("google_id = ?", socialID)
	case "apple":
		q = q.Where("apple_id = ?", socialID)
	default:
		return nil, gorm.ErrRecordNotFound
	}
	if err := q.First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) SetStripeCustomerID(userID uint, customerID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Update("stripe_customer_id", customerID).Error
}
