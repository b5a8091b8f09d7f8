package models

import "time"

// TokenBlocklist stores revoked JWT ids. Rows only accumulate until the token
// would have expired anyway; a periodic cleanup can prune by CreatedAt.
type TokenBlocklist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JTI       string    `gorm:"column:jti;uniqueIndex;size:36;not null" json:"jti"`
	CreatedAt time.Time `json:"created_at"`
}

func (TokenBlocklist) TableName() string {
	return "token_blocklist"
}
