package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Trade is one journaled position. Prices and fees are minor units of the
// account currency; Quantity may be fractional (crypto, forex lots).
// ExitPrice/ExitAt are nil while the position is open.
type Trade struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;index;not null" json:"-"`
	AccountID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"accountId"`
	StrategyVersionID *uuid.UUID `gorm:"type:uuid;index" json:"strategyVersionId,omitempty"`
	Symbol            string     `gorm:"index;not null" json:"symbol"`
	Direction         string     `gorm:"not null" json:"direction"`
	Quantity          float64    `gorm:"not null" json:"quantity"`
	EntryPrice        int64      `gorm:"not null" json:"entryPrice"`
	ExitPrice         *int64     `json:"exitPrice,omitempty"`
	EntryAt           time.Time  `gorm:"index;not null" json:"entryAt"`
	ExitAt            *time.Time `json:"exitAt,omitempty"`
	Fees              int64      `gorm:"not null;default:0" json:"fees"`
	Notes             string     `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Trade) IsClosed() bool {
	return t.ExitPrice != nil && t.ExitAt != nil
}

// RealizedPnL returns the realized profit in minor units, net of fees, or
// (0, false) while the position is still open.
func (t *Trade) RealizedPnL() (int64, bool) {
	if t.ExitPrice == nil {
		return 0, false
	}
	diff := float64(*t.ExitPrice - t.EntryPrice)
	if t.Direction == DirectionShort {
		diff = -diff
	}
	return int64(math.Round(diff*t.Quantity)) - t.Fees, true
}
