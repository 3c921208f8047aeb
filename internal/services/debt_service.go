package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "splitledger/internal/errors"
	"splitledger/internal/ledger"
	"splitledger/internal/models"
)

// debtService answers who owes whom and flips share paid flags.
type debtService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewDebtService creates a new DebtServicer.
func NewDebtService(db *gorm.DB, audit AuditServicer) DebtServicer {
	return &debtService{db: db, audit: audit}
}

// pickShare resolves the selector against the expense's shares.
func pickShare(e *models.Expense, actorID string, sel ShareSelector) *models.ExpenseShare {
	switch {
	case sel.Index != nil:
		for i := range e.Shares {
			if e.Shares[i].Position == *sel.Index {
				return &e.Shares[i]
			}
		}
		return nil
	case sel.UserID != nil:
		return e.ShareFor(*sel.UserID)
	default:
		return e.ShareFor(actorID)
	}
}

// MarkSharePaid flips one share of a group expense to paid. Only the payer or
// the share's own member may do it, and a paid share stays paid.
func (s *debtService) MarkSharePaid(ctx context.Context, actorID, expenseID string, sel ShareSelector) (*models.Expense, error) {
	var expense models.Expense
	err := s.db.WithContext(ctx).
		Preload("Shares", orderedShares).
		Where("id = ?", expenseID).
		First(&expense).Error
	if err != nil {
		return nil, storeErr(err, apperrors.ErrExpenseNotFound, nil)
	}
	if !expense.IsGroupExpense() {
		return nil, apperrors.ErrNotGroupExpense
	}

	share := pickShare(&expense, actorID, sel)
	if share == nil {
		return nil, apperrors.ErrShareNotFound
	}
	if actorID != expense.PayerID && actorID != share.UserID {
		return nil, apperrors.ErrForbidden
	}
	if share.Paid {
		return nil, apperrors.ErrShareAlreadyPaid
	}

	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.ExpenseShare{}).
		Where("id = ? AND paid = ?", share.ID, false).
		Updates(map[string]interface{}{"paid": true, "paid_at": now})
	if res.Error != nil {
		return nil, storeErr(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrShareAlreadyPaid
	}
	share.Paid = true
	share.PaidAt = &now

	s.audit.Log(ctx, actorID, AuditMarkSharePaid, "expense", expense.ID, "", map[string]any{
		"member":   share.UserID,
		"position": share.Position,
		"amount":   share.Amount.String(),
	})
	return &expense, nil
}

// groupBalances nets a group's expenses and completed settlements. Members only.
func (s *debtService) groupBalances(ctx context.Context, userID, groupID string) (*models.Group, map[string]decimal.Decimal, error) {
	group, err := findGroup(s.db.WithContext(ctx), groupID)
	if err != nil {
		return nil, nil, err
	}
	if !group.IsMember(userID) {
		return nil, nil, apperrors.ErrNotGroupMember
	}

	var (
		expenses    []models.Expense
		settlements []models.Settlement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Preload("Shares", orderedShares).
			Where("group_id = ?", groupID).
			Find(&expenses).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("group_id = ? AND status = ?", groupID, models.SettlementCompleted).
			Find(&settlements).Error
	})
	if err := g.Wait(); err != nil {
		return nil, nil, storeErr(err, nil, nil)
	}

	entries := make([]ledger.ExpenseEntry, 0, len(expenses))
	for i := range expenses {
		entries = append(entries, toLedgerEntry(&expenses[i]))
	}
	paid := make([]ledger.SettlementEntry, 0, len(settlements))
	for _, st := range settlements {
		paid = append(paid, ledger.SettlementEntry{FromUserID: st.FromUserID, ToUserID: st.ToUserID, Amount: st.Amount})
	}

	return group, ledger.ComputeGroupBalances(group.MemberIDs(), entries, paid), nil
}

// memberNames resolves display names for ids, falling back to the users
// table for people who have since left the group.
func (s *debtService) memberNames(ctx context.Context, group *models.Group, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	var missing []string
	for _, id := range ids {
		if n := group.MemberName(id); n != "" {
			names[id] = n
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return names, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", missing).Find(&users).Error; err != nil {
		return nil, storeErr(err, nil, nil)
	}
	for i := range users {
		names[users[i].ID] = users[i].DisplayName()
	}
	for _, id := range missing {
		if names[id] == "" {
			names[id] = ledger.UnknownPayerName
		}
	}
	return names, nil
}

// GetGroupBalances returns every member's net position. Current members come
// first in membership order, then former members by id.
func (s *debtService) GetGroupBalances(ctx context.Context, userID, groupID string) ([]MemberBalance, error) {
	group, balances, err := s.groupBalances(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	ids := group.MemberIDs()
	current := make(map[string]bool, len(ids))
	for _, id := range ids {
		current[id] = true
	}
	var former []string
	for id := range balances {
		if !current[id] {
			former = append(former, id)
		}
	}
	sort.Strings(former)
	ids = append(ids, former...)

	names, err := s.memberNames(ctx, group, ids)
	if err != nil {
		return nil, err
	}

	out := make([]MemberBalance, 0, len(ids))
	for _, id := range ids {
		out = append(out, MemberBalance{UserID: id, Name: names[id], Balance: balances[id]})
	}
	return out, nil
}

// GetGroupDebts reduces the group's balances to a short list of transfers.
func (s *debtService) GetGroupDebts(ctx context.Context, userID, groupID string) ([]DebtTransfer, error) {
	group, balances, err := s.groupBalances(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	transfers := ledger.ReduceToPairwiseDebts(balances)
	ids := make([]string, 0, 2*len(transfers))
	for _, t := range transfers {
		ids = append(ids, t.From, t.To)
	}
	names, err := s.memberNames(ctx, group, ids)
	if err != nil {
		return nil, err
	}

	debts := make([]DebtTransfer, 0, len(transfers))
	for _, t := range transfers {
		debts = append(debts, DebtTransfer{
			FromUserID: t.From,
			FromName:   names[t.From],
			ToUserID:   t.To,
			ToName:     names[t.To],
			Amount:     t.Amount,
		})
	}
	return debts, nil
}

// GetUserDebtSummary totals what the user owes and is owed across all groups.
func (s *debtService) GetUserDebtSummary(ctx context.Context, userID string) (*ledger.DebtSummary, error) {
	db := s.db.WithContext(ctx)
	held := db.Model(&models.ExpenseShare{}).Select("expense_id").Where("user_id = ?", userID)

	var expenses []models.Expense
	err := db.Preload("Shares", orderedShares).
		Where("group_id IS NOT NULL AND id IN (?)", held).
		Find(&expenses).Error
	if err != nil {
		return nil, storeErr(err, nil, nil)
	}

	entries := make([]ledger.ExpenseEntry, 0, len(expenses))
	for i := range expenses {
		entries = append(entries, toLedgerEntry(&expenses[i]))
	}
	summary := ledger.SummarizeUserDebts(userID, entries)
	return &summary, nil
}
