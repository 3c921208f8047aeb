package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/ledger"
	"splitledger/internal/models"
	"splitledger/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, name string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
}

// CreateExpenseInput carries a new expense. Members is the obligated set and
// must be non-empty when GroupID is set.
type CreateExpenseInput struct {
	Title      string
	Amount     decimal.Decimal
	Category   models.ExpenseCategory
	GroupID    *string
	Members    []string
	ReceiptURL *string
}

// ExpenseDateLayout is the day format of expense date filters and exports.
const ExpenseDateLayout = "2006-01-02"

// ExpenseFilter holds optional filter parameters for listing expenses.
// StartDate and EndDate bound created_at by whole UTC days, both inclusive.
type ExpenseFilter struct {
	Category  *models.ExpenseCategory
	GroupID   *string
	Period    *string
	StartDate *time.Time
	EndDate   *time.Time
}

// ExpenseServicer defines the contract for recording and reading expenses.
type ExpenseServicer interface {
	CreateExpense(ctx context.Context, payerID string, in CreateExpenseInput) (*models.Expense, error)
	GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error)
	GetUserExpenses(ctx context.Context, userID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error)
	UpdateExpense(ctx context.Context, userID, expenseID string, title *string, receiptURL *string) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) error
	ExportCSV(ctx context.Context, userID string, filter ExpenseFilter) ([]byte, error)
}

// Direction says whether an expense adds to or removes from a budget counter.
type Direction int

const (
	Credit Direction = iota
	Debit
)

// BudgetInput carries budget fields for create and update. Nil fields are
// left unchanged on update and defaulted on create.
type BudgetInput struct {
	Category          models.ExpenseCategory
	Period            string
	Limit             *decimal.Decimal
	AlertsEnabled     *bool
	AlertThresholdPct *float64
}

// BudgetAlert is a budget whose spend has reached its alert threshold.
type BudgetAlert struct {
	Category   string          `json:"category"`
	Budget     decimal.Decimal `json:"budget"`
	Actual     decimal.Decimal `json:"actual"`
	Percentage decimal.Decimal `json:"percentage"`
	Threshold  float64         `json:"threshold"`
	Type       string          `json:"type"`
}

// MonthlySummary totals a user's budgets and spend for one period.
type MonthlySummary struct {
	Period            string                    `json:"period"`
	TotalBudget       decimal.Decimal           `json:"total_budget"`
	TotalSpent        decimal.Decimal           `json:"total_spent"`
	TotalRemaining    decimal.Decimal           `json:"total_remaining"`
	CategoryBreakdown []ledger.BudgetComparison `json:"category_breakdown"`
	BudgetCount       int                       `json:"budget_count"`
	ExpenseCount      int                       `json:"expense_count"`
}

// BudgetServicer defines the contract for budgets and the spend counter.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error)
	GetUserBudgets(ctx context.Context, userID string, period *string) ([]models.Budget, error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetInput) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	GetBudgetVsActual(ctx context.Context, userID, period string) ([]ledger.BudgetComparison, error)
	GetBudgetAlerts(ctx context.Context, userID, period string) ([]BudgetAlert, error)
	GetMonthlySummary(ctx context.Context, userID, period string) (*MonthlySummary, error)
}

// GroupServicer defines the contract for groups and their membership.
type GroupServicer interface {
	CreateGroup(ctx context.Context, userID, name, description, code string) (*models.Group, error)
	GetGroupByID(ctx context.Context, userID, groupID string) (*models.Group, error)
	GetUserGroups(ctx context.Context, userID string) ([]models.Group, error)
	UpdateGroup(ctx context.Context, userID, groupID string, name, description *string) (*models.Group, error)
	DeleteGroup(ctx context.Context, userID, groupID string) error
	JoinGroup(ctx context.Context, userID, groupID string) (*models.Group, error)
	JoinGroupByCode(ctx context.Context, userID, code string) (*models.Group, error)
	LeaveGroup(ctx context.Context, userID, groupID string) error
	AddMember(ctx context.Context, requesterID, groupID, memberID string, role models.MemberRole) (*models.Group, error)
	RemoveMember(ctx context.Context, requesterID, groupID, memberID string) (*models.Group, error)
	GetGroupExpenses(ctx context.Context, userID, groupID string) ([]models.Expense, error)
}

// SettlementServicer defines the contract for out-of-band payments.
type SettlementServicer interface {
	CreateSettlement(ctx context.Context, fromUserID, groupID, toUserID string, amount decimal.Decimal, description string) (*models.Settlement, error)
	GetGroupSettlements(ctx context.Context, userID, groupID string) ([]models.Settlement, error)
	GetUserSettlements(ctx context.Context, userID string) ([]models.Settlement, error)
	CompleteSettlement(ctx context.Context, userID, settlementID string) (*models.Settlement, error)
}

// ShareSelector picks the share to mark paid. Index wins over UserID; when
// both are nil the acting user's own share is used.
type ShareSelector struct {
	Index  *int
	UserID *string
}

// DebtTransfer is a resolved "who pays whom" line for a group.
type DebtTransfer struct {
	FromUserID string          `json:"from_user_id"`
	FromName   string          `json:"from_name"`
	ToUserID   string          `json:"to_user_id"`
	ToName     string          `json:"to_name"`
	Amount     decimal.Decimal `json:"amount"`
}

// MemberBalance is a member's net position in a group.
type MemberBalance struct {
	UserID  string          `json:"user_id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// DebtServicer defines the contract for balances, debts and share payment.
type DebtServicer interface {
	MarkSharePaid(ctx context.Context, actorID, expenseID string, sel ShareSelector) (*models.Expense, error)
	GetGroupBalances(ctx context.Context, userID, groupID string) ([]MemberBalance, error)
	GetGroupDebts(ctx context.Context, userID, groupID string) ([]DebtTransfer, error)
	GetUserDebtSummary(ctx context.Context, userID string) (*ledger.DebtSummary, error)
}

// NotificationInput is one pending notification.
type NotificationInput struct {
	UserID  string
	Message string
	Kind    models.NotificationKind
}

// NotificationServicer defines the contract for the notification sink and inbox.
type NotificationServicer interface {
	Emit(ctx context.Context, in NotificationInput) error
	EmitBatch(ctx context.Context, batch []NotificationInput) error
	GetUserNotifications(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (*models.Notification, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
