package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory is one of the fixed spending categories.
type ExpenseCategory string

const (
	CategoryFood          ExpenseCategory = "Food"
	CategoryTransport     ExpenseCategory = "Transport"
	CategoryEntertainment ExpenseCategory = "Entertainment"
	CategoryShopping      ExpenseCategory = "Shopping"
	CategoryBills         ExpenseCategory = "Bills"
	CategoryHealthcare    ExpenseCategory = "Healthcare"
	CategoryEducation     ExpenseCategory = "Education"
	CategoryOther         ExpenseCategory = "Other"
)

// ExpenseCategories lists every supported category in display order.
var ExpenseCategories = []ExpenseCategory{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryShopping,
	CategoryBills,
	CategoryHealthcare,
	CategoryEducation,
	CategoryOther,
}

// IsValid reports whether c is a supported category.
func (c ExpenseCategory) IsValid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Expense is a single spend paid by one user. Group expenses carry one share
// per obligated member; personal expenses have no shares.
type Expense struct {
	Base
	Title      string          `gorm:"not null" json:"title"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Category   ExpenseCategory `gorm:"type:varchar(32);not null;index" json:"category"`
	PayerID    string          `gorm:"type:uuid;not null;index" json:"payer_id"`
	GroupID    *string         `gorm:"type:uuid;index" json:"group_id,omitempty"`
	Period     string          `gorm:"type:varchar(7);not null;index" json:"period"`
	ReceiptURL *string         `json:"receipt_url,omitempty"`

	// Relationships
	Payer  *User          `gorm:"foreignKey:PayerID" json:"payer,omitempty"`
	Shares []ExpenseShare `gorm:"foreignKey:ExpenseID" json:"shares"`
}

// ExpenseShare is one member's owed portion of a group expense.
// Paid only ever moves from false to true.
type ExpenseShare struct {
	Base
	ExpenseID string          `gorm:"type:uuid;not null;uniqueIndex:idx_expense_share_member" json:"expense_id"`
	Position  int             `gorm:"not null" json:"position"`
	UserID    string          `gorm:"type:uuid;not null;uniqueIndex:idx_expense_share_member;index" json:"user_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Paid      bool            `gorm:"not null" json:"paid"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
}

// IsGroupExpense reports whether the expense belongs to a group.
func (e *Expense) IsGroupExpense() bool {
	return e.GroupID != nil && *e.GroupID != ""
}

// ObligatedMembers returns the share holders in share order.
func (e *Expense) ObligatedMembers() []string {
	members := make([]string, 0, len(e.Shares))
	for _, s := range e.Shares {
		members = append(members, s.UserID)
	}
	return members
}

// PaidMembers is the legacy "paid shares" list, derived from the share flags.
func (e *Expense) PaidMembers() []string {
	paid := make([]string, 0, len(e.Shares))
	for _, s := range e.Shares {
		if s.Paid {
			paid = append(paid, s.UserID)
		}
	}
	return paid
}

// MarshalJSON adds split_between and paid_shares, read-only views derived
// from the shares for clients of the older list-based shape.
func (e Expense) MarshalJSON() ([]byte, error) {
	type expenseJSON Expense
	return json.Marshal(struct {
		expenseJSON
		SplitBetween []string `json:"split_between"`
		PaidShares   []string `json:"paid_shares"`
	}{
		expenseJSON:  expenseJSON(e),
		SplitBetween: e.ObligatedMembers(),
		PaidShares:   e.PaidMembers(),
	})
}

// ShareFor returns the share held by userID, or nil.
func (e *Expense) ShareFor(userID string) *ExpenseShare {
	for i := range e.Shares {
		if e.Shares[i].UserID == userID {
			return &e.Shares[i]
		}
	}
	return nil
}

// IsParticipant reports whether userID paid for or owes part of the expense.
func (e *Expense) IsParticipant(userID string) bool {
	return e.PayerID == userID || e.ShareFor(userID) != nil
}
