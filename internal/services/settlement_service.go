package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "splitledger/internal/errors"
	"splitledger/internal/models"
)

// settlementService records payments made outside the app between group members.
type settlementService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewSettlementService creates a new SettlementServicer.
func NewSettlementService(db *gorm.DB, audit AuditServicer) SettlementServicer {
	return &settlementService{db: db, audit: audit}
}

// CreateSettlement records a pending payment from fromUserID to toUserID.
// Both must belong to the group.
func (s *settlementService) CreateSettlement(ctx context.Context, fromUserID, groupID, toUserID string, amount decimal.Decimal, description string) (*models.Settlement, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if fromUserID == toUserID {
		return nil, apperrors.ErrSelfSettlement
	}

	group, err := findGroup(s.db.WithContext(ctx), groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(fromUserID) {
		return nil, apperrors.ErrNotGroupMember
	}
	if !group.IsMember(toUserID) {
		return nil, apperrors.ErrMemberNotFound
	}

	settlement := &models.Settlement{
		GroupID:     groupID,
		FromUserID:  fromUserID,
		ToUserID:    toUserID,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		Status:      models.SettlementPending,
		CreatedBy:   fromUserID,
	}
	if err := s.db.WithContext(ctx).Create(settlement).Error; err != nil {
		return nil, storeErr(err, nil, nil)
	}
	return settlement, nil
}

// GetGroupSettlements lists a group's settlements, newest first. Members only.
func (s *settlementService) GetGroupSettlements(ctx context.Context, userID, groupID string) ([]models.Settlement, error) {
	group, err := findGroup(s.db.WithContext(ctx), groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, apperrors.ErrNotGroupMember
	}

	settlements := []models.Settlement{}
	err = s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC").Order("id DESC").
		Find(&settlements).Error
	if err != nil {
		return nil, storeErr(err, nil, nil)
	}
	return settlements, nil
}

// GetUserSettlements lists settlements the user sent or received, newest first.
func (s *settlementService) GetUserSettlements(ctx context.Context, userID string) ([]models.Settlement, error) {
	settlements := []models.Settlement{}
	err := s.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").Order("id DESC").
		Find(&settlements).Error
	if err != nil {
		return nil, storeErr(err, nil, nil)
	}
	return settlements, nil
}

// CompleteSettlement moves a pending settlement to completed. Either party may
// complete it. The status guard in the UPDATE makes a concurrent second
// completion fail with ErrSettlementCompleted.
func (s *settlementService) CompleteSettlement(ctx context.Context, userID, settlementID string) (*models.Settlement, error) {
	var settlement models.Settlement
	if err := s.db.WithContext(ctx).Where("id = ?", settlementID).First(&settlement).Error; err != nil {
		return nil, storeErr(err, apperrors.ErrSettlementNotFound, nil)
	}
	if settlement.FromUserID != userID && settlement.ToUserID != userID {
		return nil, apperrors.ErrForbidden
	}
	if settlement.Status == models.SettlementCompleted {
		return nil, apperrors.ErrSettlementCompleted
	}

	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("id = ? AND status = ?", settlementID, models.SettlementPending).
		Updates(map[string]interface{}{
			"status":       models.SettlementCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return nil, storeErr(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrSettlementCompleted
	}

	settlement.Status = models.SettlementCompleted
	settlement.CompletedAt = &now

	s.audit.Log(ctx, userID, AuditCompleteSettlement, "settlement", settlement.ID, "", map[string]any{
		"amount": settlement.Amount.String(),
		"from":   settlement.FromUserID,
		"to":     settlement.ToUserID,
		"group":  settlement.GroupID,
	})
	return &settlement, nil
}
