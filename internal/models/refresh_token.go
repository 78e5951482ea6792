package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken stores the hashed form of one refresh credential. The plaintext
// secret is returned to the client exactly once at issuance and never persisted.
// Every token descended from one login shares the same TokenFamily; rotation
// creates a new row in the family and revokes the row that was presented.
type RefreshToken struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	TokenHash   string     `gorm:"size:64;uniqueIndex;not null"`
	TokenFamily uuid.UUID  `gorm:"type:uuid;index;not null"`
	ExpiresAt   time.Time  `gorm:"index;not null"`
	RevokedAt   *time.Time `gorm:"index"`
	CreatedByIP string     `gorm:"size:45"`
	RevokedByIP *string    `gorm:"size:45"`
	CreatedAt   time.Time
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Active reports whether the token can still be exchanged.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
