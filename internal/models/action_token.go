package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionEmailVerification = "email_verification"
	ActionPasswordReset     = "password_reset"
)

// ActionToken is a single-use token mailed to the user for email verification
// or password reset. Stored hashed and consumed by setting RevokedAt.
type ActionToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	Type      string     `gorm:"not null;index"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}

func (t *ActionToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *ActionToken) IsValid() bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(time.Now())
}
