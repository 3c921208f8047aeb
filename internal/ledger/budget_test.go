package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPersonalAmount(t *testing.T) {
	dinner := ExpenseEntry{
		PayerID: "alice",
		Amount:  dec("100"),
		Shares: []ShareEntry{
			{Member: "alice", Amount: dec("33.33"), Paid: true},
			{Member: "bob", Amount: dec("33.33")},
			{Member: "carol", Amount: dec("33.34")},
		},
	}

	tests := []struct {
		name  string
		user  string
		entry ExpenseEntry
		group bool
		want  string
	}{
		{"personal_payer", "alice", ExpenseEntry{PayerID: "alice", Amount: dec("42")}, false, "42"},
		{"personal_other", "bob", ExpenseEntry{PayerID: "alice", Amount: dec("42")}, false, "0"},
		{"group_payer_share", "alice", dinner, true, "33.33"},
		{"group_last_share", "carol", dinner, true, "33.34"},
		{"group_outsider", "dave", dinner, true, "0"},
		{"legacy_equal_split", "bob", ExpenseEntry{PayerID: "alice", Amount: dec("10"), Members: []string{"alice", "bob", "carol"}}, true, "3.33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PersonalAmount(tt.user, tt.entry, tt.group)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCompareBudgets(t *testing.T) {
	budgets := []BudgetLine{
		{Category: "Food", Limit: dec("1000"), ThresholdPct: 80, AlertsEnabled: true},
		{Category: "Bills", Limit: dec("200"), ThresholdPct: 80, AlertsEnabled: false},
		{Category: "Transport", Limit: dec("300"), ThresholdPct: 50, AlertsEnabled: true},
	}
	actual := map[string]decimal.Decimal{
		"Food":      dec("850"),
		"Bills":     dec("250"),
		"Shopping":  dec("40"),
		"Education": dec("10"),
	}

	rows := CompareBudgets(budgets, actual)
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}

	food := rows[0]
	if food.Status != StatusWarning || !food.Alert {
		t.Errorf("expected Food warning with alert, got %+v", food)
	}
	if !food.Remaining.Equal(dec("150")) || !food.Percentage.Equal(dec("85")) {
		t.Errorf("unexpected Food figures %+v", food)
	}

	bills := rows[1]
	if bills.Status != StatusExceeded || bills.Alert {
		t.Errorf("expected Bills exceeded without alert, got %+v", bills)
	}
	if !bills.Remaining.Equal(dec("-50")) {
		t.Errorf("expected Bills remaining -50, got %s", bills.Remaining)
	}

	transport := rows[2]
	if transport.Status != StatusNormal || !transport.Actual.IsZero() {
		t.Errorf("expected untouched Transport to be normal, got %+v", transport)
	}

	if rows[3].Category != "Education" || rows[4].Category != "Shopping" {
		t.Errorf("expected no-budget rows sorted by category, got %s, %s", rows[3].Category, rows[4].Category)
	}
	for _, r := range rows[3:] {
		if r.Status != StatusNoBudget || !r.Remaining.Equal(r.Actual.Neg()) {
			t.Errorf("unexpected no-budget row %+v", r)
		}
	}
}
