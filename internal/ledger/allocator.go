package ledger

import (
	apperrors "splitledger/internal/errors"

	"github.com/shopspring/decimal"
)

// Cent is the smallest amount the ledger tracks.
var Cent = decimal.New(1, -2)

// Share is one member's allocated portion of an expense.
type Share struct {
	Member string
	Amount decimal.Decimal
	Paid   bool
}

// UniqueMembers drops blank and repeated ids, keeping first-seen order.
func UniqueMembers(members []string) []string {
	seen := make(map[string]bool, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// AllocateShares splits amount equally across members. Each share is the
// per-member amount rounded to cents; the last member absorbs whatever is
// left so the shares always sum to amount exactly. The payer's own share
// starts paid.
func AllocateShares(amount decimal.Decimal, members []string, payer string) ([]Share, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	members = UniqueMembers(members)
	if len(members) == 0 {
		return nil, apperrors.ErrEmptySplit
	}

	n := decimal.NewFromInt(int64(len(members)))
	others := n.Sub(decimal.NewFromInt(1))

	each := amount.Div(n).Round(2)
	last := amount.Sub(each.Mul(others))
	if last.IsNegative() {
		// rounding up overshot on a tiny amount; truncating keeps every share >= 0
		each = amount.Div(n).Truncate(2)
		last = amount.Sub(each.Mul(others))
	}

	shares := make([]Share, len(members))
	for i, m := range members {
		amt := each
		if i == len(members)-1 {
			amt = last
		}
		shares[i] = Share{Member: m, Amount: amt, Paid: m == payer}
	}
	return shares, nil
}

// SumShares totals share amounts.
func SumShares(shares []Share) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Amount)
	}
	return total
}
