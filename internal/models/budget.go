package models

import "github.com/shopspring/decimal"

// DefaultAlertThresholdPct is used when a budget is created without a threshold.
const DefaultAlertThresholdPct = 80

// Budget caps one user's spending in a category for a calendar month.
// SpentThisPeriod is only changed by expense creation and deletion.
type Budget struct {
	Base
	UserID            string          `gorm:"type:uuid;not null;uniqueIndex:idx_budget_key" json:"user_id"`
	Category          ExpenseCategory `gorm:"type:varchar(32);not null;uniqueIndex:idx_budget_key" json:"category"`
	Period            string          `gorm:"type:varchar(7);not null;uniqueIndex:idx_budget_key" json:"period"`
	Limit             decimal.Decimal `gorm:"column:limit_amount;type:decimal(12,2);not null" json:"limit"`
	SpentThisPeriod   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"spent_this_period"`
	AlertsEnabled     bool            `gorm:"not null" json:"alerts_enabled"`
	AlertThresholdPct float64         `gorm:"not null" json:"alert_threshold_pct"`
}
