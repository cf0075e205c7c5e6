package user

import (
	"time"
)

// User is an account that owns tasks and steps.
type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Email        string `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// TokenPair holds the access and refresh tokens issued on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims is the authenticated identity extracted from a JWT. The
// UserID here is the owner identity threaded into every task
// operation.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
