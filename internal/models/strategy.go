package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Strategy struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;index:idx_strategies_user_name,unique;not null" json:"-"`
	Name        string            `gorm:"index:idx_strategies_user_name,unique;not null" json:"name"`
	Description string            `json:"description"`
	Versions    []StrategyVersion `gorm:"constraint:OnDelete:CASCADE" json:"versions,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (s *Strategy) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// StrategyVersion is an immutable snapshot of a strategy's rule set. Editing
// rules always appends a new version; trades reference the version they were
// taken under so later edits never rewrite history.
type StrategyVersion struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StrategyID uuid.UUID `gorm:"type:uuid;index:idx_strategy_versions_num,unique;not null" json:"strategyId"`
	Version    int       `gorm:"index:idx_strategy_versions_num,unique;not null" json:"version"`
	Rules      string    `gorm:"type:text;not null" json:"rules"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (v *StrategyVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
