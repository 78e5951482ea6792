package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is one brokerage account owned by a user. OpeningBalance is stored
// in minor units (cents) of Currency.
type Account struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;index:idx_accounts_user_name,unique;not null" json:"-"`
	Name           string    `gorm:"index:idx_accounts_user_name,unique;not null" json:"name"`
	Broker         string    `json:"broker"`
	Currency       string    `gorm:"size:3;not null;default:USD" json:"currency"`
	OpeningBalance int64     `gorm:"not null;default:0" json:"openingBalance"`
	Active         bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
