package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"splitledger/internal/models"
	"splitledger/internal/testutil"
)

func newGroupService(db *gorm.DB) *groupService {
	return NewGroupService(db, NewAuditService(db)).(*groupService)
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("creator_is_admin_member", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)

		group, err := svc.CreateGroup(ctx, user.ID, "Flatmates", "rent and bills", "")
		testutil.AssertNoError(t, err)

		if !groupCodePattern.MatchString(group.Code) {
			t.Errorf("generated code %q does not match [A-Z0-9]{6}", group.Code)
		}
		if len(group.Members) != 1 || group.Members[0].Role != models.MemberRoleAdmin {
			t.Fatalf("expected creator as the only admin member, got %+v", group.Members)
		}
		if !group.IsAdmin(user.ID) {
			t.Error("expected creator to be admin")
		}
	})

	t.Run("custom_code_is_upper_cased", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)

		group, err := svc.CreateGroup(ctx, user.ID, "Trip", "", "goa24x")
		testutil.AssertNoError(t, err)
		if group.Code != "GOA24X" {
			t.Errorf("expected code GOA24X, got %s", group.Code)
		}
	})

	t.Run("invalid_code", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)

		for _, code := range []string{"ABC", "ABCDEFG", "AB-12C"} {
			_, err := svc.CreateGroup(ctx, user.ID, "Trip", "", code)
			testutil.AssertAppError(t, err, "INVALID_GROUP_CODE")
		}
	})

	t.Run("duplicate_code", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateGroup(ctx, user.ID, "One", "", "SAME01")
		testutil.AssertNoError(t, err)
		_, err = svc.CreateGroup(ctx, user.ID, "Two", "", "SAME01")
		testutil.AssertAppError(t, err, "DUPLICATE_GROUP_CODE")
	})

	t.Run("blank_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateGroup(ctx, user.ID, "   ", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGroupCodeGeneration(t *testing.T) {
	ctx := context.Background()

	t.Run("retries_past_collisions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)
		_, err := svc.CreateGroup(ctx, user.ID, "Taken", "", "TAKEN1")
		testutil.AssertNoError(t, err)

		codes := []string{"TAKEN1", "TAKEN1", "FRESH1"}
		calls := 0
		svc.generateCode = func() (string, error) {
			c := codes[calls]
			calls++
			return c, nil
		}

		group, err := svc.CreateGroup(ctx, user.ID, "New", "", "")
		testutil.AssertNoError(t, err)
		if group.Code != "FRESH1" {
			t.Errorf("expected FRESH1, got %s", group.Code)
		}
		if calls != 3 {
			t.Errorf("expected 3 attempts, got %d", calls)
		}
	})

	t.Run("gives_up_after_ten_attempts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)
		_, err := svc.CreateGroup(ctx, user.ID, "Taken", "", "TAKEN1")
		testutil.AssertNoError(t, err)

		calls := 0
		svc.generateCode = func() (string, error) {
			calls++
			return "TAKEN1", nil
		}

		_, err = svc.CreateGroup(ctx, user.ID, "New", "", "")
		testutil.AssertAppError(t, err, "CODE_GENERATION_FAILED")
		testutil.AssertErrorKind(t, err, "persistence")
		if calls != maxCodeAttempts {
			t.Errorf("expected %d attempts, got %d", maxCodeAttempts, calls)
		}
	})

	t.Run("generator_error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)
		svc.generateCode = func() (string, error) { return "", errors.New("entropy exhausted") }

		_, err := svc.CreateGroup(ctx, user.ID, "New", "", "")
		testutil.AssertAppError(t, err, "CODE_GENERATION_FAILED")
	})
}

func TestRandomGroupCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := RandomGroupCode()
		testutil.AssertNoError(t, err)
		if !groupCodePattern.MatchString(code) {
			t.Fatalf("code %q does not match [A-Z0-9]{6}", code)
		}
	}
}

func TestGroupMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("join_by_code_and_leave", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		joiner := testutil.CreateTestUser(t, db)
		group, err := svc.CreateGroup(ctx, owner.ID, "Club", "", "CLUB01")
		testutil.AssertNoError(t, err)

		joined, err := svc.JoinGroupByCode(ctx, joiner.ID, "club01")
		testutil.AssertNoError(t, err)
		if !joined.IsMember(joiner.ID) || joined.IsAdmin(joiner.ID) {
			t.Error("expected joiner to be a plain member")
		}

		_, err = svc.JoinGroup(ctx, joiner.ID, group.ID)
		testutil.AssertAppError(t, err, "ALREADY_MEMBER")

		testutil.AssertNoError(t, svc.LeaveGroup(ctx, joiner.ID, group.ID))
		err = svc.LeaveGroup(ctx, joiner.ID, group.ID)
		testutil.AssertAppError(t, err, "NOT_GROUP_MEMBER")
	})

	t.Run("unknown_code", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.JoinGroupByCode(ctx, user.ID, "NOPE00")
		testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")
	})

	t.Run("creator_cannot_leave_or_be_removed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		admin := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		_, err := svc.AddMember(ctx, owner.ID, group.ID, admin.ID, models.MemberRoleAdmin)
		testutil.AssertNoError(t, err)

		testutil.AssertAppError(t, svc.LeaveGroup(ctx, owner.ID, group.ID), "CREATOR_IMMUTABLE")
		_, err = svc.RemoveMember(ctx, admin.ID, group.ID, owner.ID)
		testutil.AssertAppError(t, err, "CREATOR_IMMUTABLE")
	})

	t.Run("add_and_remove_require_admin", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		newcomer := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID, member.ID)

		_, err := svc.AddMember(ctx, member.ID, group.ID, newcomer.ID, models.MemberRoleMember)
		testutil.AssertAppError(t, err, "NOT_GROUP_ADMIN")

		updated, err := svc.AddMember(ctx, owner.ID, group.ID, newcomer.ID, "")
		testutil.AssertNoError(t, err)
		if !updated.IsMember(newcomer.ID) {
			t.Error("expected newcomer to be added")
		}

		_, err = svc.AddMember(ctx, owner.ID, group.ID, newcomer.ID, models.MemberRoleMember)
		testutil.AssertAppError(t, err, "ALREADY_MEMBER")

		_, err = svc.RemoveMember(ctx, member.ID, group.ID, newcomer.ID)
		testutil.AssertAppError(t, err, "NOT_GROUP_ADMIN")

		updated, err = svc.RemoveMember(ctx, owner.ID, group.ID, newcomer.ID)
		testutil.AssertNoError(t, err)
		if updated.IsMember(newcomer.ID) {
			t.Error("expected newcomer to be removed")
		}

		_, err = svc.RemoveMember(ctx, owner.ID, group.ID, newcomer.ID)
		testutil.AssertAppError(t, err, "MEMBER_NOT_FOUND")
	})

	t.Run("add_unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)

		_, err := svc.AddMember(ctx, owner.ID, group.ID, "01900000-0000-7000-8000-000000000000", models.MemberRoleMember)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestGetGroupAccess(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newGroupService(db)
	owner := testutil.CreateTestUser(t, db)
	member := testutil.CreateTestUser(t, db)
	outsider := testutil.CreateTestUser(t, db)
	group := testutil.CreateTestGroup(t, db, owner.ID, member.ID)
	testutil.CreateTestGroup(t, db, outsider.ID)
	testutil.CreateTestGroupExpense(t, db, group.ID, owner.ID, "20", owner.ID, member.ID)

	t.Run("member_reads", func(t *testing.T) {
		got, err := svc.GetGroupByID(ctx, member.ID, group.ID)
		testutil.AssertNoError(t, err)
		if got.Creator == nil || got.Creator.ID != owner.ID {
			t.Error("expected creator to be loaded")
		}

		expenses, err := svc.GetGroupExpenses(ctx, member.ID, group.ID)
		testutil.AssertNoError(t, err)
		if len(expenses) != 1 {
			t.Errorf("expected 1 expense, got %d", len(expenses))
		}
	})

	t.Run("outsider_forbidden", func(t *testing.T) {
		_, err := svc.GetGroupByID(ctx, outsider.ID, group.ID)
		testutil.AssertAppError(t, err, "NOT_GROUP_MEMBER")
		_, err = svc.GetGroupExpenses(ctx, outsider.ID, group.ID)
		testutil.AssertAppError(t, err, "NOT_GROUP_MEMBER")
	})

	t.Run("user_groups", func(t *testing.T) {
		groups, err := svc.GetUserGroups(ctx, member.ID)
		testutil.AssertNoError(t, err)
		if len(groups) != 1 || groups[0].ID != group.ID {
			t.Errorf("expected only the joined group, got %d groups", len(groups))
		}
	})
}

func TestUpdateGroup(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newGroupService(db)
	owner := testutil.CreateTestUser(t, db)
	member := testutil.CreateTestUser(t, db)
	group := testutil.CreateTestGroup(t, db, owner.ID, member.ID)

	name := "Renamed"
	_, err := svc.UpdateGroup(ctx, member.ID, group.ID, &name, nil)
	testutil.AssertAppError(t, err, "NOT_GROUP_ADMIN")

	got, err := svc.UpdateGroup(ctx, owner.ID, group.ID, &name, nil)
	testutil.AssertNoError(t, err)
	if got.Name != name {
		t.Errorf("expected name %s, got %s", name, got.Name)
	}
}

func TestDeleteGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades_and_debits_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		expenses := newExpenseService(db)
		settlements := NewSettlementService(db, NewAuditService(db))
		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID, member.ID)
		budget := testutil.CreateTestBudget(t, db, owner.ID, models.CategoryFood, testutil.TestPeriod, "500")

		in := personal("Pizza", "90")
		in.GroupID = &group.ID
		in.Members = []string{owner.ID, member.ID}
		_, err := expenses.CreateExpense(ctx, owner.ID, in)
		testutil.AssertNoError(t, err)
		_, err = settlements.CreateSettlement(ctx, member.ID, group.ID, owner.ID, decimalOf("45"), "")
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "spent before", spent(t, db, budget.ID), "90")

		testutil.AssertAppError(t, svc.DeleteGroup(ctx, member.ID, group.ID), "NOT_GROUP_CREATOR")
		testutil.AssertNoError(t, svc.DeleteGroup(ctx, owner.ID, group.ID))

		for _, model := range []interface{}{&models.Group{}, &models.GroupMember{}, &models.Expense{}, &models.ExpenseShare{}, &models.Settlement{}} {
			var n int64
			if err := db.Model(model).Count(&n).Error; err != nil {
				t.Fatalf("count failed: %v", err)
			}
			if n != 0 {
				t.Errorf("%T: expected 0 rows after delete, got %d", model, n)
			}
		}
		testutil.AssertDecimal(t, "spent after", spent(t, db, budget.ID), "0")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newGroupService(db)
		user := testutil.CreateTestUser(t, db)

		err := svc.DeleteGroup(ctx, user.ID, "01900000-0000-7000-8000-000000000000")
		testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")
	})
}
