package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
)

// Settlement records an out-of-band payment between two group members.
// Only completed settlements count towards group balances.
type Settlement struct {
	Base
	GroupID     string           `gorm:"type:uuid;not null;index" json:"group_id"`
	FromUserID  string           `gorm:"type:uuid;not null;index" json:"from_user_id"`
	ToUserID    string           `gorm:"type:uuid;not null;index" json:"to_user_id"`
	Amount      decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description string           `json:"description,omitempty"`
	Status      SettlementStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	CreatedBy   string           `gorm:"type:uuid;not null" json:"created_by"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}
