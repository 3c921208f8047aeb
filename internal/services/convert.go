package services

import (
	"github.com/shopspring/decimal"

	"splitledger/internal/ledger"
	"splitledger/internal/models"
)

// toLedgerEntry reduces a loaded expense (with Shares) to ledger input.
func toLedgerEntry(e *models.Expense) ledger.ExpenseEntry {
	entry := ledger.ExpenseEntry{PayerID: e.PayerID, Amount: e.Amount}
	for _, s := range e.Shares {
		entry.Shares = append(entry.Shares, ledger.ShareEntry{Member: s.UserID, Amount: s.Amount, Paid: s.Paid})
	}
	return entry
}

// spendByCategory sums what each expense cost userID, keyed by category.
func spendByCategory(userID string, expenses []models.Expense) map[string]decimal.Decimal {
	actual := make(map[string]decimal.Decimal)
	for i := range expenses {
		e := &expenses[i]
		amt := ledger.PersonalAmount(userID, toLedgerEntry(e), e.IsGroupExpense())
		if !amt.IsPositive() {
			continue
		}
		cat := string(e.Category)
		actual[cat] = actual[cat].Add(amt)
	}
	return actual
}
