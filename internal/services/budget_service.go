package services

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "splitledger/internal/errors"
	"splitledger/internal/ledger"
	"splitledger/internal/metrics"
	"splitledger/internal/models"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

func validatePeriod(period string) error {
	if _, _, err := ledger.ParsePeriod(period); err != nil {
		return apperrors.ErrInvalidPeriod
	}
	return nil
}

func validateBudgetFields(limit *decimal.Decimal, threshold *float64) error {
	if limit != nil && limit.IsNegative() {
		return apperrors.ErrInvalidLimit
	}
	if threshold != nil && (*threshold < 0 || *threshold > 100) {
		return apperrors.ErrInvalidThreshold
	}
	return nil
}

// CreateBudget creates a budget for (user, category, period). Spend starts at
// zero; expenses recorded before the budget existed are not counted.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error) {
	if !in.Category.IsValid() {
		return nil, apperrors.ErrInvalidCategory
	}
	if err := validatePeriod(in.Period); err != nil {
		return nil, err
	}
	if in.Limit == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit is required")
	}
	if err := validateBudgetFields(in.Limit, in.AlertThresholdPct); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:            userID,
		Category:          in.Category,
		Period:            in.Period,
		Limit:             in.Limit.Round(2),
		SpentThisPeriod:   decimal.Zero,
		AlertsEnabled:     true,
		AlertThresholdPct: models.DefaultAlertThresholdPct,
	}
	if in.AlertsEnabled != nil {
		budget.AlertsEnabled = *in.AlertsEnabled
	}
	if in.AlertThresholdPct != nil {
		budget.AlertThresholdPct = *in.AlertThresholdPct
	}

	if err := s.db.WithContext(ctx).Create(budget).Error; err != nil {
		return nil, storeErr(err, nil, apperrors.ErrDuplicateBudget)
	}
	return budget, nil
}

// GetUserBudgets lists the user's budgets, optionally for a single period.
func (s *budgetService) GetUserBudgets(ctx context.Context, userID string, period *string) ([]models.Budget, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if period != nil {
		if err := validatePeriod(*period); err != nil {
			return nil, err
		}
		q = q.Where("period = ?", *period)
	}

	budgets := []models.Budget{}
	if err := q.Order("period DESC").Order("category ASC").Find(&budgets).Error; err != nil {
		return nil, storeErr(err, nil, nil)
	}
	return budgets, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error
	if err != nil {
		return nil, storeErr(err, apperrors.ErrBudgetNotFound, nil)
	}
	return &budget, nil
}

// UpdateBudget changes the limit and alert settings. Category and period
// identify the counter and cannot change.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetInput) (*models.Budget, error) {
	if err := validateBudgetFields(in.Limit, in.AlertThresholdPct); err != nil {
		return nil, err
	}

	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Limit != nil {
		updates["limit_amount"] = in.Limit.Round(2)
	}
	if in.AlertsEnabled != nil {
		updates["alerts_enabled"] = *in.AlertsEnabled
	}
	if in.AlertThresholdPct != nil {
		updates["alert_threshold_pct"] = *in.AlertThresholdPct
	}
	if len(updates) == 0 {
		return budget, nil
	}

	if err := s.db.WithContext(ctx).Model(budget).Updates(updates).Error; err != nil {
		return nil, storeErr(err, nil, nil)
	}
	return s.GetBudgetByID(ctx, userID, budgetID)
}

// DeleteBudget removes a budget owned by the user.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", budgetID, userID).Delete(&models.Budget{})
	if res.Error != nil {
		return storeErr(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrBudgetNotFound
	}
	return nil
}

// budgetDelta is the outcome of moving a budget counter.
type budgetDelta struct {
	Budget models.Budget
	Event  ledger.CrossingEvent
}

// applyBudgetDelta moves the (user, category, period) counter inside tx with a
// single UPDATE expression, so concurrent credits and debits never lose each
// other. A missing budget is a no-op and returns nil. Crossings are only
// evaluated on credit.
func applyBudgetDelta(tx *gorm.DB, userID string, category models.ExpenseCategory, period string, amount decimal.Decimal, dir Direction) (*budgetDelta, error) {
	key := tx.Model(&models.Budget{}).Where("user_id = ? AND category = ? AND period = ?", userID, category, period)

	var expr interface{}
	switch dir {
	case Credit:
		expr = gorm.Expr("spent_this_period + ?", amount)
	case Debit:
		expr = gorm.Expr("CASE WHEN spent_this_period - ? < 0 THEN 0 ELSE spent_this_period - ? END", amount, amount)
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown budget direction")
	}

	res := key.Update("spent_this_period", expr)
	if res.Error != nil {
		return nil, storeErr(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var budget models.Budget
	err := tx.Where("user_id = ? AND category = ? AND period = ?", userID, category, period).First(&budget).Error
	if err != nil {
		return nil, storeErr(err, nil, nil)
	}
	budget.SpentThisPeriod = budget.SpentThisPeriod.Round(2)

	delta := &budgetDelta{Budget: budget}
	if dir == Credit {
		prev := budget.SpentThisPeriod.Sub(amount)
		delta.Event = ledger.DetectCrossing(prev, budget.SpentThisPeriod, budget.Limit, budget.AlertThresholdPct, budget.AlertsEnabled)
		if delta.Event.Fired() {
			metrics.BudgetCrossings.WithLabelValues(string(delta.Event.Crossing)).Inc()
		}
	}
	return delta, nil
}

// periodData loads the user's budgets and the expenses they took part in for
// one period, concurrently.
func (s *budgetService) periodData(ctx context.Context, userID, period string) ([]models.Budget, []models.Expense, error) {
	if err := validatePeriod(period); err != nil {
		return nil, nil, err
	}

	var (
		budgets  []models.Budget
		expenses []models.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("user_id = ? AND period = ?", userID, period).
			Order("category ASC").
			Find(&budgets).Error
	})
	g.Go(func() error {
		db := s.db.WithContext(gctx)
		shared := db.Model(&models.ExpenseShare{}).Select("expense_id").Where("user_id = ?", userID)
		return db.Preload("Shares").
			Where("period = ?", period).
			Where("payer_id = ? OR id IN (?)", userID, shared).
			Find(&expenses).Error
	})
	if err := g.Wait(); err != nil {
		return nil, nil, storeErr(err, nil, nil)
	}
	return budgets, expenses, nil
}

func budgetLines(budgets []models.Budget) []ledger.BudgetLine {
	lines := make([]ledger.BudgetLine, len(budgets))
	for i, b := range budgets {
		lines[i] = ledger.BudgetLine{
			Category:      string(b.Category),
			Limit:         b.Limit,
			ThresholdPct:  b.AlertThresholdPct,
			AlertsEnabled: b.AlertsEnabled,
		}
	}
	return lines
}

// GetBudgetVsActual compares each budget with the user's own spend in its
// category: full amount for personal expenses, their share for group ones.
func (s *budgetService) GetBudgetVsActual(ctx context.Context, userID, period string) ([]ledger.BudgetComparison, error) {
	budgets, expenses, err := s.periodData(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	return ledger.CompareBudgets(budgetLines(budgets), spendByCategory(userID, expenses)), nil
}

// GetBudgetAlerts returns the alert-enabled budgets at or past their threshold.
func (s *budgetService) GetBudgetAlerts(ctx context.Context, userID, period string) ([]BudgetAlert, error) {
	budgets, expenses, err := s.periodData(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	rows := ledger.CompareBudgets(budgetLines(budgets), spendByCategory(userID, expenses))
	alerts := []BudgetAlert{}
	for i, b := range budgets {
		row := rows[i]
		if !row.Alert {
			continue
		}
		kind := ledger.CrossingWarning
		if row.Status == ledger.StatusExceeded {
			kind = ledger.CrossingExceeded
		}
		alerts = append(alerts, BudgetAlert{
			Category:   row.Category,
			Budget:     row.Budget,
			Actual:     row.Actual,
			Percentage: row.Percentage,
			Threshold:  b.AlertThresholdPct,
			Type:       string(kind),
		})
	}
	return alerts, nil
}

// GetMonthlySummary totals budgets and the user's spend for the period.
func (s *budgetService) GetMonthlySummary(ctx context.Context, userID, period string) (*MonthlySummary, error) {
	budgets, expenses, err := s.periodData(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	actual := spendByCategory(userID, expenses)
	rows := ledger.CompareBudgets(budgetLines(budgets), actual)

	summary := &MonthlySummary{
		Period:            period,
		TotalBudget:       decimal.Zero,
		TotalSpent:        decimal.Zero,
		CategoryBreakdown: rows[:len(budgets)],
		BudgetCount:       len(budgets),
		ExpenseCount:      len(expenses),
	}
	for _, b := range budgets {
		summary.TotalBudget = summary.TotalBudget.Add(b.Limit)
	}
	for _, amt := range actual {
		summary.TotalSpent = summary.TotalSpent.Add(amt)
	}
	summary.TotalSpent = summary.TotalSpent.Round(2)
	summary.TotalRemaining = summary.TotalBudget.Sub(summary.TotalSpent)
	return summary, nil
}
