package services

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "splitledger/internal/errors"
	"splitledger/internal/models"
)

const (
	groupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	groupCodeLength   = 6
	maxCodeAttempts   = 10
)

var groupCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// CodeGenerator produces a candidate group code.
type CodeGenerator func() (string, error)

// RandomGroupCode draws a code uniformly from [A-Z0-9]{6}.
func RandomGroupCode() (string, error) {
	max := big.NewInt(int64(len(groupCodeAlphabet)))
	var b strings.Builder
	b.Grow(groupCodeLength)
	for i := 0; i < groupCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(groupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// groupService handles groups and their membership.
type groupService struct {
	db           *gorm.DB
	audit        AuditServicer
	generateCode CodeGenerator
}

// NewGroupService creates a new GroupServicer.
func NewGroupService(db *gorm.DB, audit AuditServicer) GroupServicer {
	return &groupService{db: db, audit: audit, generateCode: RandomGroupCode}
}

// uniqueCode generates codes until one is unused, giving up after maxCodeAttempts.
func (s *groupService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return "", apperrors.Wrap(apperrors.ErrCodeGeneration, err)
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", storeErr(err, nil, nil)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", apperrors.ErrCodeGeneration
}

// CreateGroup creates a group with the caller as its admin creator. A blank
// code is generated; a supplied one must be six characters of [A-Z0-9].
func (s *groupService) CreateGroup(ctx context.Context, userID, name, description, code string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "group name is required")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		var err error
		if code, err = s.uniqueCode(ctx); err != nil {
			return nil, err
		}
	} else if !groupCodePattern.MatchString(code) {
		return nil, apperrors.ErrInvalidGroupCode
	}

	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(description),
		Code:        code,
		CreatorID:   userID,
		Members: []models.GroupMember{{
			UserID:   userID,
			Role:     models.MemberRoleAdmin,
			JoinedAt: time.Now().UTC(),
		}},
	}
	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return nil, storeErr(err, nil, apperrors.ErrDuplicateGroupCode)
	}
	return findGroup(s.db.WithContext(ctx), group.ID)
}

// GetGroupByID returns a group the user belongs to.
func (s *groupService) GetGroupByID(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := findGroup(s.db.WithContext(ctx), groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, apperrors.ErrNotGroupMember
	}
	return group, nil
}

// GetUserGroups lists every group the user created or joined, newest first.
func (s *groupService) GetUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	db := s.db.WithContext(ctx)
	joined := db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)

	groups := []models.Group{}
	err := db.Preload("Creator").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		Preload("Members.User").
		Where("creator_id = ? OR id IN (?)", userID, joined).
		Order("created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, storeErr(err, nil, nil)
	}
	return groups, nil
}

// UpdateGroup renames or re-describes a group. Admins only.
func (s *groupService) UpdateGroup(ctx context.Context, userID, groupID string, name, description *string) (*models.Group, error) {
	group, err := findGroup(s.db.WithContext(ctx), groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(userID) {
		return nil, apperrors.ErrNotGroupAdmin
	}

	updates := make(map[string]interface{})
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "group name cannot be empty")
		}
		updates["name"] = n
	}
	if description != nil {
		updates["description"] = strings.TrimSpace(*description)
	}
	if len(updates) == 0 {
		return group, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", groupID).Updates(updates).Error; err != nil {
		return nil, storeErr(err, nil, nil)
	}
	return findGroup(s.db.WithContext(ctx), groupID)
}

// DeleteGroup removes a group and everything hanging off it. Only the creator
// may delete. Children go first, in order: shares, expenses (debiting the
// budgets they credited), settlements, memberships, then the group. Every
// step deletes by filter, so re-running it over a half-deleted group is safe.
func (s *groupService) DeleteGroup(ctx context.Context, userID, groupID string) error {
	var group models.Group
	if err := s.db.WithContext(ctx).Where("id = ?", groupID).First(&group).Error; err != nil {
		return storeErr(err, apperrors.ErrGroupNotFound, nil)
	}
	if group.CreatorID != userID {
		return apperrors.ErrNotGroupCreator
	}

	var removed int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var expenses []models.Expense
		if err := tx.Where("group_id = ?", groupID).Find(&expenses).Error; err != nil {
			return err
		}
		removed = len(expenses)

		groupExpenses := tx.Model(&models.Expense{}).Select("id").Where("group_id = ?", groupID)
		if err := tx.Where("expense_id IN (?)", groupExpenses).Delete(&models.ExpenseShare{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.Expense{}).Error; err != nil {
			return err
		}
		for _, e := range expenses {
			if _, err := applyBudgetDelta(tx, e.PayerID, e.Category, e.Period, e.Amount, Debit); err != nil {
				return err
			}
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.Settlement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", groupID).Delete(&models.Group{}).Error
	})
	if err != nil {
		return storeErr(err, nil, nil)
	}

	s.audit.Log(ctx, userID, AuditDeleteGroup, "group", groupID, "", map[string]any{
		"code":     group.Code,
		"expenses": removed,
	})
	return nil
}

func (s *groupService) addMembership(ctx context.Context, group *models.Group, userID string, role models.MemberRole) (*models.Group, error) {
	if group.IsMember(userID) {
		return nil, apperrors.ErrAlreadyMember
	}
	member := &models.GroupMember{
		GroupID:  group.ID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, storeErr(err, nil, apperrors.ErrAlreadyMember)
	}
	return findGroup(s.db.WithContext(ctx), group.ID)
}

// JoinGroup adds the caller to a group as a regular member.
func (s *groupService) JoinGroup(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := findGroup(s.db.WithContext(ctx), groupID)
	if err != nil {
		return nil, err
	}
	return s.addMembership(ctx, group, userID, models.MemberRoleMember)
}

// JoinGroupByCode adds the caller to the group with the given code.
func (s *groupService) JoinGroupByCode(ctx context.Context, userID, code string) (*models.Group, error) {
	var found models.Group
	err := s.db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&found).Error
	if err != nil {
		return nil, storeErr(err, apperrors.ErrGroupNotFound, nil)
	}
	group, err := findGroup(s.db.WithContext(ctx), found.ID)
	if err != nil {
		return nil, err
	}
	return s.addMembership(ctx, group, userID, models.MemberRoleMember)
}

// LeaveGroup removes the caller from a group. The creator cannot leave.
func (s *groupService) LeaveGroup(ctx context.Context, userID, groupID string) error {
	group, err := findGroup(s.db.WithContext(ctx), groupID)
	if err != nil {
		return err
	}
	if group.CreatorID == userID {
		return apperrors.ErrCreatorImmutable
	}
	if !group.IsMember(userID) {
		return apperrors.ErrNotGroupMember
	}
	err = s.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{}).Error
	return storeErr(err, nil, nil)
}

// AddMember lets an admin add another user with the given role.
func (s *groupService) AddMember(ctx context.Context, requesterID, groupID, memberID string, role models.MemberRole) (*models.Group, error) {
	if role == "" {
		role = models.MemberRoleMember
	}
	if role != models.MemberRoleAdmin && role != models.MemberRoleMember {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "role must be admin or member")
	}

	group, err := findGroup(s.db.WithContext(ctx), groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(requesterID) {
		return nil, apperrors.ErrNotGroupAdmin
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", memberID).First(&user).Error; err != nil {
		return nil, storeErr(err, apperrors.ErrUserNotFound, nil)
	}
	return s.addMembership(ctx, group, memberID, role)
}

// RemoveMember lets an admin remove a member. The creator cannot be removed.
func (s *groupService) RemoveMember(ctx context.Context, requesterID, groupID, memberID string) (*models.Group, error) {
	group, err := findGroup(s.db.WithContext(ctx), groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(requesterID) {
		return nil, apperrors.ErrNotGroupAdmin
	}
	if memberID == group.CreatorID {
		return nil, apperrors.ErrCreatorImmutable
	}

	res := s.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, memberID).Delete(&models.GroupMember{})
	if res.Error != nil {
		return nil, storeErr(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrMemberNotFound
	}
	return findGroup(s.db.WithContext(ctx), groupID)
}

// GetGroupExpenses lists a group's expenses, newest first. Members only.
func (s *groupService) GetGroupExpenses(ctx context.Context, userID, groupID string) ([]models.Expense, error) {
	if _, err := s.GetGroupByID(ctx, userID, groupID); err != nil {
		return nil, err
	}

	expenses := []models.Expense{}
	err := s.db.WithContext(ctx).
		Preload("Shares", orderedShares).
		Preload("Payer").
		Where("group_id = ?", groupID).
		Order("created_at DESC").Order("id DESC").
		Find(&expenses).Error
	if err != nil {
		return nil, storeErr(err, nil, nil)
	}
	return expenses, nil
}
