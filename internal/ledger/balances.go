package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ShareEntry is a stored share as the ledger needs it.
type ShareEntry struct {
	Member string
	Amount decimal.Decimal
	Paid   bool
}

// ExpenseEntry is a group expense reduced to what balance math needs.
// Members is only consulted when Shares is empty.
type ExpenseEntry struct {
	PayerID string
	Amount  decimal.Decimal
	Members []string
	Shares  []ShareEntry
}

// SettlementEntry is a completed payment from one member to another.
type SettlementEntry struct {
	FromUserID string
	ToUserID   string
	Amount     decimal.Decimal
}

// Transfer is a single "From pays To" instruction.
type Transfer struct {
	From   string          `json:"from_user_id"`
	To     string          `json:"to_user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// ComputeGroupBalances nets expenses and settlements per member. A positive
// balance means the member is owed money, negative means they owe.
//
// Stored shares are the source of truth. Expenses without shares fall back to
// an equal split of the raw amount over Members.
func ComputeGroupBalances(members []string, expenses []ExpenseEntry, settlements []SettlementEntry) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		balances[m] = decimal.Zero
	}
	add := func(id string, amt decimal.Decimal) {
		balances[id] = balances[id].Add(amt)
	}

	for _, e := range expenses {
		add(e.PayerID, e.Amount)
		if len(e.Shares) > 0 {
			for _, s := range e.Shares {
				add(s.Member, s.Amount.Neg())
			}
			continue
		}
		obligated := UniqueMembers(e.Members)
		if len(obligated) == 0 {
			// nobody owes anything, the payer simply covered it
			add(e.PayerID, e.Amount.Neg())
			continue
		}
		each := e.Amount.Div(decimal.NewFromInt(int64(len(obligated))))
		for _, m := range obligated {
			add(m, each.Neg())
		}
	}

	for _, s := range settlements {
		add(s.FromUserID, s.Amount)
		add(s.ToUserID, s.Amount.Neg())
	}

	for id, b := range balances {
		balances[id] = b.Round(2)
	}
	return balances
}

type position struct {
	id  string
	amt decimal.Decimal
}

// largest returns the index of the biggest open position, or -1.
func largest(ps []position) int {
	best := -1
	for i, p := range ps {
		if p.amt.LessThan(Cent) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		if c := p.amt.Cmp(ps[best].amt); c > 0 || (c == 0 && p.id < ps[best].id) {
			best = i
		}
	}
	return best
}

// ReduceToPairwiseDebts turns net balances into transfers by repeatedly
// matching the largest debtor with the largest creditor and decrementing both.
// Amounts under one cent are dropped. Output order is deterministic.
func ReduceToPairwiseDebts(balances map[string]decimal.Decimal) []Transfer {
	var debtors, creditors []position
	for id, b := range balances {
		b = b.Round(2)
		switch {
		case b.IsNegative():
			debtors = append(debtors, position{id: id, amt: b.Neg()})
		case b.IsPositive():
			creditors = append(creditors, position{id: id, amt: b})
		}
	}
	byID := func(ps []position) {
		sort.Slice(ps, func(i, j int) bool { return ps[i].id < ps[j].id })
	}
	byID(debtors)
	byID(creditors)

	transfers := []Transfer{}
	for {
		d, c := largest(debtors), largest(creditors)
		if d == -1 || c == -1 {
			break
		}
		amt := decimal.Min(debtors[d].amt, creditors[c].amt)
		transfers = append(transfers, Transfer{From: debtors[d].id, To: creditors[c].id, Amount: amt})
		debtors[d].amt = debtors[d].amt.Sub(amt)
		creditors[c].amt = creditors[c].amt.Sub(amt)
	}
	return transfers
}
