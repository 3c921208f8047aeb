package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"splitledger/internal/ledger"
	"splitledger/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPeriod is the budget period fixtures use unless told otherwise.
var TestPeriod = ledger.PeriodOf(time.Now())

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	n := nextID()
	return CreateTestUserWithEmail(t, db, fmt.Sprintf("user%d@test.com", n), fmt.Sprintf("User %d", n))
}

// CreateTestUserWithEmail creates a user with the given email and name.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email, name string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     name,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestGroup creates a group owned by creatorID with the given extra members.
func CreateTestGroup(t *testing.T, db *gorm.DB, creatorID string, memberIDs ...string) *models.Group {
	t.Helper()

	now := time.Now()
	group := &models.Group{
		Name:      fmt.Sprintf("Group %d", nextID()),
		Code:      fmt.Sprintf("T%05d", nextID()%100000),
		CreatorID: creatorID,
		Members:   []models.GroupMember{{UserID: creatorID, Role: models.MemberRoleAdmin, JoinedAt: now}},
	}
	for _, id := range memberIDs {
		group.Members = append(group.Members, models.GroupMember{UserID: id, Role: models.MemberRoleMember, JoinedAt: now})
	}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create test group: %v", err)
	}
	return group
}

// CreateTestBudget creates a budget with alerts on at the default threshold.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, category models.ExpenseCategory, period, limit string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:            userID,
		Category:          category,
		Period:            period,
		Limit:             decimal.RequireFromString(limit),
		SpentThisPeriod:   decimal.Zero,
		AlertsEnabled:     true,
		AlertThresholdPct: models.DefaultAlertThresholdPct,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestExpense inserts a personal expense directly, bypassing budget tracking.
func CreateTestExpense(t *testing.T, db *gorm.DB, payerID string, category models.ExpenseCategory, amount string) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		Title:    fmt.Sprintf("Expense %d", nextID()),
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		PayerID:  payerID,
		Period:   TestPeriod,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestGroupExpense inserts a group expense split equally between members,
// the last member taking the rounding remainder. Budgets are not touched.
func CreateTestGroupExpense(t *testing.T, db *gorm.DB, groupID, payerID, amount string, members ...string) *models.Expense {
	t.Helper()

	total := decimal.RequireFromString(amount)
	n := decimal.NewFromInt(int64(len(members)))
	each := total.Div(n).Round(2)

	expense := &models.Expense{
		Title:    fmt.Sprintf("Group expense %d", nextID()),
		Amount:   total,
		Category: models.CategoryFood,
		PayerID:  payerID,
		GroupID:  &groupID,
		Period:   TestPeriod,
	}
	for i, m := range members {
		amt := each
		if i == len(members)-1 {
			amt = total.Sub(each.Mul(decimal.NewFromInt(int64(len(members) - 1))))
		}
		expense.Shares = append(expense.Shares, models.ExpenseShare{
			Position: i,
			UserID:   m,
			Amount:   amt,
			Paid:     m == payerID,
		})
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test group expense: %v", err)
	}
	return expense
}
