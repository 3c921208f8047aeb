package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BudgetLine is a budget as budget-vs-actual needs it.
type BudgetLine struct {
	Category      string
	Limit         decimal.Decimal
	ThresholdPct  float64
	AlertsEnabled bool
}

// BudgetComparison is one row of a budget-vs-actual report.
type BudgetComparison struct {
	Category   string          `json:"category"`
	Budget     decimal.Decimal `json:"budget"`
	Actual     decimal.Decimal `json:"actual"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
	Status     string          `json:"status"`
	Alert      bool            `json:"alert"`
}

// PersonalAmount is what an expense costs userID: the full amount of a
// personal expense they paid, or their own share of a group expense.
func PersonalAmount(userID string, e ExpenseEntry, group bool) decimal.Decimal {
	if !group {
		if e.PayerID == userID {
			return e.Amount
		}
		return decimal.Zero
	}
	if len(e.Shares) > 0 {
		for _, s := range e.Shares {
			if s.Member == userID {
				return s.Amount
			}
		}
		return decimal.Zero
	}
	members := UniqueMembers(e.Members)
	for _, m := range members {
		if m == userID {
			return e.Amount.Div(decimal.NewFromInt(int64(len(members)))).Round(2)
		}
	}
	return decimal.Zero
}

// CompareBudgets lines up each budget with actual spend in its category.
// Categories with spend but no budget are appended, sorted by name, with
// status no-budget.
func CompareBudgets(budgets []BudgetLine, actual map[string]decimal.Decimal) []BudgetComparison {
	rows := make([]BudgetComparison, 0, len(budgets)+len(actual))
	budgeted := make(map[string]bool, len(budgets))

	for _, b := range budgets {
		budgeted[b.Category] = true
		spent, ok := actual[b.Category]
		if !ok {
			spent = decimal.Zero
		}
		pct := Percentage(spent, b.Limit)
		rows = append(rows, BudgetComparison{
			Category:   b.Category,
			Budget:     b.Limit,
			Actual:     spent.Round(2),
			Remaining:  b.Limit.Sub(spent).Round(2),
			Percentage: pct.Round(2),
			Status:     BudgetStatus(pct, b.ThresholdPct),
			Alert:      b.AlertsEnabled && pct.GreaterThanOrEqual(decimal.NewFromFloat(b.ThresholdPct)),
		})
	}

	var extra []string
	for category, spent := range actual {
		if !budgeted[category] && spent.IsPositive() {
			extra = append(extra, category)
		}
	}
	sort.Strings(extra)
	for _, category := range extra {
		spent := actual[category].Round(2)
		rows = append(rows, BudgetComparison{
			Category:   category,
			Budget:     decimal.Zero,
			Actual:     spent,
			Remaining:  spent.Neg(),
			Percentage: decimal.Zero,
			Status:     StatusNoBudget,
		})
	}
	return rows
}
