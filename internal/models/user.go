package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Email            string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name             string         `gorm:"size:255" json:"name"`
	Image            string         `gorm:"size:512" json:"image"`
	PasswordHash     string         `gorm:"size:255" json:"-"`
	GoogleID         *string        `gorm:"uniqueIndex;size:255" json:"-"` // nil for email signups (avoids duplicate '' on unique index)
	AppleID          *string        `gorm:"uniqueIndex;size:255" json:"-"`
	StripeCustomerID *string        `gorm:"size:255" json:"-"`
	Group            string         `gorm:"size:50" json:"group"`
	EmailVerifiedAt  *time.Time     `json:"email_verified_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// ProviderID returns the stored social id for a known provider, nil otherwise.
func (u *User) ProviderID(provider string) *string {
	switch provider {
	case "google":
		return u.GoogleID
	case "apple":
		return u.AppleID
	}
	return nil
}
