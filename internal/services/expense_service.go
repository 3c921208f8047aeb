package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "splitledger/internal/errors"
	"splitledger/internal/ledger"
	"splitledger/internal/logger"
	"splitledger/internal/metrics"
	"splitledger/internal/models"
	"splitledger/internal/pagination"
)

// expenseService handles expense-related business logic.
type expenseService struct {
	db            *gorm.DB
	notifications NotificationServicer
	audit         AuditServicer
	currency      string
}

// NewExpenseService creates a new ExpenseServicer. currency prefixes amounts
// in reminder and budget notifications.
func NewExpenseService(db *gorm.DB, notifications NotificationServicer, audit AuditServicer, currency string) ExpenseServicer {
	return &expenseService{db: db, notifications: notifications, audit: audit, currency: currency}
}

func orderedShares(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// findGroup loads a group with its creator and members.
func findGroup(db *gorm.DB, groupID string) (*models.Group, error) {
	var group models.Group
	err := db.Preload("Creator").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		Preload("Members.User").
		Where("id = ?", groupID).
		First(&group).Error
	if err != nil {
		return nil, storeErr(err, apperrors.ErrGroupNotFound, nil)
	}
	return &group, nil
}

// CreateExpense records an expense, allocates group shares and credits the
// payer's budget in one transaction. Reminders and budget alerts are sent
// after commit; failing to send them does not fail the expense.
func (s *expenseService) CreateExpense(ctx context.Context, payerID string, in CreateExpenseInput) (*models.Expense, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if !in.Category.IsValid() {
		return nil, apperrors.ErrInvalidCategory
	}

	var (
		group  *models.Group
		shares []ledger.Share
	)
	if in.GroupID != nil && *in.GroupID != "" {
		var err error
		group, err = findGroup(s.db.WithContext(ctx), *in.GroupID)
		if err != nil {
			return nil, err
		}
		if !group.IsMember(payerID) {
			return nil, apperrors.ErrNotGroupMember
		}
		members := ledger.UniqueMembers(in.Members)
		for _, m := range members {
			if !group.IsMember(m) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "every split member must belong to the group")
			}
		}
		shares, err = ledger.AllocateShares(amount, members, payerID)
		if err != nil {
			return nil, err
		}
	} else if len(in.Members) > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "split members require a group")
	}

	now := time.Now().UTC()
	expense := &models.Expense{
		Title:      title,
		Amount:     amount,
		Category:   in.Category,
		PayerID:    payerID,
		Period:     ledger.PeriodOf(now),
		ReceiptURL: in.ReceiptURL,
	}
	expense.CreatedAt = now
	if group != nil {
		expense.GroupID = &group.ID
	}
	for i, sh := range shares {
		share := models.ExpenseShare{Position: i, UserID: sh.Member, Amount: sh.Amount, Paid: sh.Paid}
		if sh.Paid {
			share.PaidAt = &now
		}
		expense.Shares = append(expense.Shares, share)
	}

	var delta *budgetDelta
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(expense).Error; err != nil {
			return err
		}
		var err error
		delta, err = applyBudgetDelta(tx, payerID, expense.Category, expense.Period, amount, Credit)
		return err
	})
	if err != nil {
		return nil, storeErr(err, nil, nil)
	}

	scope := "personal"
	if group != nil {
		scope = "group"
	}
	metrics.ExpensesCreated.WithLabelValues(scope).Inc()

	s.notifyShareholders(ctx, expense, group)
	s.notifyCrossing(ctx, payerID, delta)
	s.audit.Log(ctx, payerID, AuditCreateExpense, "expense", expense.ID, "", map[string]any{
		"amount":   amount.String(),
		"category": expense.Category,
		"shares":   len(expense.Shares),
	})

	return expense, nil
}

// notifyShareholders sends one reminder per obligated member other than the payer.
func (s *expenseService) notifyShareholders(ctx context.Context, expense *models.Expense, group *models.Group) {
	if group == nil {
		return
	}
	payerName := group.MemberName(expense.PayerID)

	var batch []NotificationInput
	for _, sh := range expense.Shares {
		if sh.UserID == expense.PayerID {
			continue
		}
		batch = append(batch, NotificationInput{
			UserID:  sh.UserID,
			Message: ledger.ReminderMessage(s.currency, sh.Amount, payerName, expense.Title, group.Name),
			Kind:    models.NotificationReminder,
		})
	}
	if err := s.notifications.EmitBatch(ctx, batch); err != nil {
		logger.Get().Errorw("failed to create expense reminders",
			"error", err,
			"expense_id", expense.ID,
			"group_id", group.ID,
		)
	}
}

// notifyCrossing turns a fired budget crossing into a notification for the payer.
func (s *expenseService) notifyCrossing(ctx context.Context, userID string, delta *budgetDelta) {
	if delta == nil || !delta.Event.Fired() {
		return
	}
	kind := models.NotificationReminder
	if delta.Event.Crossing == ledger.CrossingExceeded {
		kind = models.NotificationAlert
	}
	msg := ledger.CrossingMessage(s.currency, delta.Event, string(delta.Budget.Category), delta.Budget.Period)
	if err := s.notifications.Emit(ctx, NotificationInput{UserID: userID, Message: msg, Kind: kind}); err != nil {
		logger.Get().Errorw("failed to create budget notification",
			"error", err,
			"budget_id", delta.Budget.ID,
			"crossing", delta.Event.Crossing,
		)
	}
}

// GetExpenseByID returns an expense the user paid for or holds a share in.
func (s *expenseService) GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	err := s.db.WithContext(ctx).
		Preload("Shares", orderedShares).
		Preload("Payer").
		Where("id = ?", expenseID).
		First(&expense).Error
	if err != nil {
		return nil, storeErr(err, apperrors.ErrExpenseNotFound, nil)
	}
	if !expense.IsParticipant(userID) {
		return nil, apperrors.ErrExpenseNotFound
	}
	return &expense, nil
}

// participantExpenses scopes a query to expenses the user paid for or holds a
// share in, narrowed by filter.
func participantExpenses(db *gorm.DB, userID string, filter ExpenseFilter) (*gorm.DB, error) {
	shared := db.Model(&models.ExpenseShare{}).Select("expense_id").Where("user_id = ?", userID)
	base := db.Model(&models.Expense{}).Where("payer_id = ? OR id IN (?)", userID, shared)

	if filter.Category != nil {
		if !filter.Category.IsValid() {
			return nil, apperrors.ErrInvalidCategory
		}
		base = base.Where("category = ?", *filter.Category)
	}
	if filter.GroupID != nil {
		base = base.Where("group_id = ?", *filter.GroupID)
	}
	if filter.Period != nil {
		if err := validatePeriod(*filter.Period); err != nil {
			return nil, err
		}
		base = base.Where("period = ?", *filter.Period)
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_date must not be before start_date")
	}
	if filter.StartDate != nil {
		base = base.Where("created_at >= ?", startOfDay(*filter.StartDate))
	}
	if filter.EndDate != nil {
		// end_date is inclusive of the whole day
		base = base.Where("created_at < ?", startOfDay(*filter.EndDate).AddDate(0, 0, 1))
	}
	return base, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GetUserExpenses lists expenses the user paid for or holds a share in, newest first.
func (s *expenseService) GetUserExpenses(ctx context.Context, userID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error) {
	page.Defaults()

	base, err := participantExpenses(s.db.WithContext(ctx), userID, filter)
	if err != nil {
		return nil, err
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, storeErr(err, nil, nil)
	}

	var expenses []models.Expense
	err = base.Preload("Shares", orderedShares).Preload("Payer").
		Order("created_at DESC").Order("id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&expenses).Error
	if err != nil {
		return nil, storeErr(err, nil, nil)
	}

	result := pagination.NewPageResponse(expenses, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// csvHeader is the column order of an expense export.
var csvHeader = []string{"Date", "Title", "Category", "Amount", "Group", "PaidBy"}

// ExportCSV writes every expense matching filter that the user paid for or
// shares in, newest first. Personal expenses show "Personal" as their group.
func (s *expenseService) ExportCSV(ctx context.Context, userID string, filter ExpenseFilter) ([]byte, error) {
	db := s.db.WithContext(ctx)
	base, err := participantExpenses(db, userID, filter)
	if err != nil {
		return nil, err
	}

	var expenses []models.Expense
	if err := base.Preload("Payer").Order("created_at DESC").Order("id DESC").Find(&expenses).Error; err != nil {
		return nil, storeErr(err, nil, nil)
	}

	groupNames := make(map[string]string)
	var groupIDs []string
	for _, e := range expenses {
		if e.IsGroupExpense() {
			if _, ok := groupNames[*e.GroupID]; !ok {
				groupNames[*e.GroupID] = ""
				groupIDs = append(groupIDs, *e.GroupID)
			}
		}
	}
	if len(groupIDs) > 0 {
		var groups []models.Group
		if err := db.Select("id", "name").Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
			return nil, storeErr(err, nil, nil)
		}
		for _, g := range groups {
			groupNames[g.ID] = g.Name
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range expenses {
		group := "Personal"
		if e.IsGroupExpense() {
			group = groupNames[*e.GroupID]
		}
		record := []string{
			e.CreatedAt.UTC().Format(ExpenseDateLayout),
			e.Title,
			string(e.Category),
			e.Amount.StringFixed(2),
			group,
			e.Payer.DisplayName(),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UpdateExpense changes the title or receipt. Amount and category feed the
// budget counter and stay fixed; delete and re-create to change them.
func (s *expenseService) UpdateExpense(ctx context.Context, userID, expenseID string, title *string, receiptURL *string) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.WithContext(ctx).Where("id = ?", expenseID).First(&expense).Error; err != nil {
		return nil, storeErr(err, apperrors.ErrExpenseNotFound, nil)
	}
	if expense.PayerID != userID {
		return nil, apperrors.ErrNotExpensePayer
	}

	updates := make(map[string]interface{})
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title cannot be empty")
		}
		updates["title"] = t
	}
	if receiptURL != nil {
		updates["receipt_url"] = *receiptURL
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&expense).Updates(updates).Error; err != nil {
			return nil, storeErr(err, nil, nil)
		}
		s.audit.Log(ctx, userID, AuditUpdateExpense, "expense", expense.ID, "", updates)
	}

	return s.GetExpenseByID(ctx, userID, expenseID)
}

// DeleteExpense removes an expense and its shares and debits the budget it
// credited. Only the payer may delete; nothing is notified.
func (s *expenseService) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	var deleted models.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", expenseID).First(&deleted).Error; err != nil {
			return storeErr(err, apperrors.ErrExpenseNotFound, nil)
		}
		if deleted.PayerID != userID {
			return apperrors.ErrNotExpensePayer
		}
		if err := tx.Where("expense_id = ?", deleted.ID).Delete(&models.ExpenseShare{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&deleted).Error; err != nil {
			return err
		}
		_, err := applyBudgetDelta(tx, deleted.PayerID, deleted.Category, deleted.Period, deleted.Amount, Debit)
		return err
	})
	if err != nil {
		return storeErr(err, nil, nil)
	}

	s.audit.Log(ctx, userID, AuditDeleteExpense, "expense", deleted.ID, "", map[string]any{
		"amount":   deleted.Amount.String(),
		"category": deleted.Category,
	})
	return nil
}
