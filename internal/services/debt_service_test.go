package services

import (
	"context"
	"testing"

	"splitledger/internal/models"
	"splitledger/internal/testutil"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestMarkSharePaid(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (DebtServicer, *models.Expense, []*models.User, func()) {
		db := testutil.SetupTestDB(t)
		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)
		carol := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, alice.ID, bob.ID, carol.ID)
		expense := testutil.CreateTestGroupExpense(t, db, group.ID, alice.ID, "300", alice.ID, bob.ID, carol.ID)
		return NewDebtService(db, NewAuditService(db)), expense, []*models.User{alice, bob, carol}, func() { testutil.TeardownTestDB(t, db) }
	}

	t.Run("member_marks_own_share", func(t *testing.T) {
		svc, expense, users, done := setup(t)
		defer done()
		bob := users[1]

		got, err := svc.MarkSharePaid(ctx, bob.ID, expense.ID, ShareSelector{})
		testutil.AssertNoError(t, err)
		if share := got.ShareFor(bob.ID); share == nil || !share.Paid || share.PaidAt == nil {
			t.Errorf("expected bob's share paid, got %+v", share)
		}
		if got.ShareFor(users[2].ID).Paid {
			t.Error("carol's share should be untouched")
		}

		_, err = svc.MarkSharePaid(ctx, bob.ID, expense.ID, ShareSelector{})
		testutil.AssertAppError(t, err, "SHARE_ALREADY_PAID")
	})

	t.Run("payer_marks_by_index", func(t *testing.T) {
		svc, expense, users, done := setup(t)
		defer done()

		got, err := svc.MarkSharePaid(ctx, users[0].ID, expense.ID, ShareSelector{Index: intPtr(2), UserID: strPtr(users[1].ID)})
		testutil.AssertNoError(t, err)
		if !got.ShareFor(users[2].ID).Paid {
			t.Error("index should win over user id")
		}
		if got.ShareFor(users[1].ID).Paid {
			t.Error("bob's share should be untouched")
		}
	})

	t.Run("payer_marks_by_user", func(t *testing.T) {
		svc, expense, users, done := setup(t)
		defer done()

		got, err := svc.MarkSharePaid(ctx, users[0].ID, expense.ID, ShareSelector{UserID: strPtr(users[1].ID)})
		testutil.AssertNoError(t, err)
		if !got.ShareFor(users[1].ID).Paid {
			t.Error("expected bob's share paid")
		}
	})

	t.Run("other_member_forbidden", func(t *testing.T) {
		svc, expense, users, done := setup(t)
		defer done()

		_, err := svc.MarkSharePaid(ctx, users[2].ID, expense.ID, ShareSelector{UserID: strPtr(users[1].ID)})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("missing_share", func(t *testing.T) {
		svc, expense, users, done := setup(t)
		defer done()

		_, err := svc.MarkSharePaid(ctx, users[0].ID, expense.ID, ShareSelector{Index: intPtr(7)})
		testutil.AssertAppError(t, err, "SHARE_NOT_FOUND")
	})

	t.Run("missing_expense", func(t *testing.T) {
		svc, _, users, done := setup(t)
		defer done()

		_, err := svc.MarkSharePaid(ctx, users[0].ID, "01900000-0000-7000-8000-000000000000", ShareSelector{})
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
	})
}

func TestMarkSharePaidPersonalExpense(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewDebtService(db, NewAuditService(db))
	user := testutil.CreateTestUser(t, db)
	expense := testutil.CreateTestExpense(t, db, user.ID, models.CategoryFood, "10")

	_, err := svc.MarkSharePaid(ctx, user.ID, expense.ID, ShareSelector{})
	testutil.AssertAppError(t, err, "NOT_GROUP_EXPENSE")
}

func TestGroupDebts(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewDebtService(db, NewAuditService(db))
	settlements := NewSettlementService(db, NewAuditService(db))
	alice := testutil.CreateTestUserWithEmail(t, db, "alice@test.com", "Alice")
	bob := testutil.CreateTestUserWithEmail(t, db, "bob@test.com", "Bob")
	carol := testutil.CreateTestUserWithEmail(t, db, "carol@test.com", "Carol")
	outsider := testutil.CreateTestUser(t, db)
	group := testutil.CreateTestGroup(t, db, alice.ID, bob.ID, carol.ID)

	testutil.CreateTestGroupExpense(t, db, group.ID, alice.ID, "300", alice.ID, bob.ID, carol.ID)
	testutil.CreateTestGroupExpense(t, db, group.ID, bob.ID, "60", alice.ID, bob.ID, carol.ID)

	t.Run("balances", func(t *testing.T) {
		balances, err := svc.GetGroupBalances(ctx, alice.ID, group.ID)
		testutil.AssertNoError(t, err)
		if len(balances) != 3 {
			t.Fatalf("expected 3 balances, got %d", len(balances))
		}
		want := map[string]string{alice.ID: "180", bob.ID: "-60", carol.ID: "-120"}
		for _, b := range balances {
			testutil.AssertDecimal(t, b.Name, b.Balance, want[b.UserID])
		}
		if balances[0].UserID != alice.ID || balances[0].Name != "Alice" {
			t.Errorf("expected creator first with name, got %+v", balances[0])
		}
	})

	t.Run("debts", func(t *testing.T) {
		debts, err := svc.GetGroupDebts(ctx, bob.ID, group.ID)
		testutil.AssertNoError(t, err)
		if len(debts) != 2 {
			t.Fatalf("expected 2 transfers, got %+v", debts)
		}
		if debts[0].FromUserID != carol.ID || debts[0].ToName != "Alice" {
			t.Errorf("expected carol to pay alice first, got %+v", debts[0])
		}
		testutil.AssertDecimal(t, "carol->alice", debts[0].Amount, "120")
		testutil.AssertDecimal(t, "bob->alice", debts[1].Amount, "60")
	})

	t.Run("completed_settlement_counts", func(t *testing.T) {
		s, err := settlements.CreateSettlement(ctx, bob.ID, group.ID, alice.ID, decimalOf("60"), "")
		testutil.AssertNoError(t, err)

		debts, err := svc.GetGroupDebts(ctx, bob.ID, group.ID)
		testutil.AssertNoError(t, err)
		if len(debts) != 2 {
			t.Fatalf("pending settlement must not count, got %+v", debts)
		}

		_, err = settlements.CompleteSettlement(ctx, alice.ID, s.ID)
		testutil.AssertNoError(t, err)

		debts, err = svc.GetGroupDebts(ctx, bob.ID, group.ID)
		testutil.AssertNoError(t, err)
		if len(debts) != 1 || debts[0].FromUserID != carol.ID {
			t.Errorf("expected only carol to owe, got %+v", debts)
		}
	})

	t.Run("outsider_forbidden", func(t *testing.T) {
		_, err := svc.GetGroupDebts(ctx, outsider.ID, group.ID)
		testutil.AssertAppError(t, err, "NOT_GROUP_MEMBER")
	})

	t.Run("unknown_group", func(t *testing.T) {
		_, err := svc.GetGroupBalances(ctx, alice.ID, "01900000-0000-7000-8000-000000000000")
		testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")
	})
}

// Alice pays 300 for dinner split three ways; Bob owes 100 to one person.
func TestGetUserDebtSummary(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewDebtService(db, NewAuditService(db))
	expenses := newExpenseService(db)
	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	carol := testutil.CreateTestUser(t, db)
	group := testutil.CreateTestGroup(t, db, alice.ID, bob.ID, carol.ID)

	in := personal("Dinner", "300")
	in.GroupID = &group.ID
	in.Members = []string{alice.ID, bob.ID, carol.ID}
	_, err := expenses.CreateExpense(ctx, alice.ID, in)
	testutil.AssertNoError(t, err)

	bobSummary, err := svc.GetUserDebtSummary(ctx, bob.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, "bob owes", bobSummary.YouOwe, "100")
	if bobSummary.OweCount != 1 {
		t.Errorf("expected bob to owe 1 person, got %d", bobSummary.OweCount)
	}

	aliceSummary, err := svc.GetUserDebtSummary(ctx, alice.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, "alice is owed", aliceSummary.YouAreOwed, "200")
	if aliceSummary.OwedCount != 2 {
		t.Errorf("expected alice to be owed by 2, got %d", aliceSummary.OwedCount)
	}
}
