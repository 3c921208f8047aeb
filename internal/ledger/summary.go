package ledger

import "github.com/shopspring/decimal"

// DebtSummary is a user's outstanding position across every group.
type DebtSummary struct {
	YouOwe     decimal.Decimal `json:"you_owe"`
	YouAreOwed decimal.Decimal `json:"you_are_owed"`
	OweCount   int             `json:"owe_count"`
	OwedCount  int             `json:"owed_count"`
}

// SummarizeUserDebts looks only at expenses where userID holds a share. Unpaid
// own shares on someone else's expense count as owed; unpaid shares of others
// on the user's own expense count as receivable.
func SummarizeUserDebts(userID string, expenses []ExpenseEntry) DebtSummary {
	sum := DebtSummary{YouOwe: decimal.Zero, YouAreOwed: decimal.Zero}
	oweTo := map[string]bool{}
	owedBy := map[string]bool{}

	for _, e := range expenses {
		var mine *ShareEntry
		for i := range e.Shares {
			if e.Shares[i].Member == userID {
				mine = &e.Shares[i]
				break
			}
		}
		if mine == nil {
			continue
		}

		if e.PayerID != userID {
			if !mine.Paid {
				sum.YouOwe = sum.YouOwe.Add(mine.Amount)
				oweTo[e.PayerID] = true
			}
			continue
		}

		for _, s := range e.Shares {
			if s.Member == userID || s.Paid {
				continue
			}
			sum.YouAreOwed = sum.YouAreOwed.Add(s.Amount)
			owedBy[s.Member] = true
		}
	}

	sum.YouOwe = sum.YouOwe.Round(2)
	sum.YouAreOwed = sum.YouAreOwed.Round(2)
	sum.OweCount = len(oweTo)
	sum.OwedCount = len(owedBy)
	return sum
}
