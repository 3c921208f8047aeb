package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"splitledger/internal/models"
	"splitledger/internal/services"
)

// GroupHandler handles group, membership and group ledger requests.
type GroupHandler struct {
	groupService services.GroupServicer
	debtService  services.DebtServicer
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupService services.GroupServicer, debtService services.DebtServicer) *GroupHandler {
	return &GroupHandler{groupService: groupService, debtService: debtService}
}

// CreateGroupRequest represents the request payload for creating a group.
// Code is optional; a random one is generated when omitted.
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
	Code        string `json:"code" binding:"omitempty,group_code"`
}

// UpdateGroupRequest represents the request payload for updating a group.
type UpdateGroupRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// JoinByCodeRequest represents the request payload for joining with a code.
type JoinByCodeRequest struct {
	Code string `json:"code" binding:"required,group_code"`
}

// AddMemberRequest represents the request payload for adding a member.
type AddMemberRequest struct {
	UserID string            `json:"user_id" binding:"required,uuid"`
	Role   models.MemberRole `json:"role" binding:"omitempty,member_role"`
}

// CreateGroup handles creating a group owned by the caller.
// @Summary     Create a group
// @Description Create a group. The caller becomes its creator and first admin.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGroupRequest true "Group details"
// @Success     201 {object} models.Group "Group created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Group code already exists"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups [post]
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	group, err := h.groupService.CreateGroup(c.Request.Context(), userID, req.Name, req.Description, req.Code)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// GetGroups handles listing the caller's groups.
// @Summary     List groups
// @Description Groups the caller created or belongs to, newest first
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.Group "Groups"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups [get]
func (h *GroupHandler) GetGroups(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groups, err := h.groupService.GetUserGroups(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup handles retrieving a single group.
// @Summary     Get group by ID
// @Description Get a group with its members. Only members may view it.
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {object} models.Group "Group details"
// @Failure     400 {object} ErrorResponse "Invalid group ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id} [get]
func (h *GroupHandler) GetGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.GetGroupByID(c.Request.Context(), userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// UpdateGroup handles renaming or redescribing a group.
// @Summary     Update group
// @Description Change a group's name or description. Admins only.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Group ID"
// @Param       request body UpdateGroupRequest true "Fields to change"
// @Success     200 {object} models.Group "Updated group"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group admin"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id} [put]
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	group, err := h.groupService.UpdateGroup(c.Request.Context(), userID, groupID, req.Name, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// DeleteGroup handles deleting a group and everything recorded in it.
// @Summary     Delete group
// @Description Delete a group with its expenses, shares and settlements. Creator only.
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {object} map[string]string "Group deleted"
// @Failure     400 {object} ErrorResponse "Invalid group ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not the group creator"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id} [delete]
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.groupService.DeleteGroup(c.Request.Context(), userID, groupID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted successfully"})
}

// JoinGroupByCode handles joining a group with its share code.
// @Summary     Join group by code
// @Description Join a group using its six character code
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body JoinByCodeRequest true "Group code"
// @Success     200 {object} models.Group "Joined group"
// @Failure     400 {object} ErrorResponse "Invalid code"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/join [post]
func (h *GroupHandler) JoinGroupByCode(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req JoinByCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	group, err := h.groupService.JoinGroupByCode(c.Request.Context(), userID, req.Code)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// JoinGroup handles joining a group by ID.
// @Summary     Join group
// @Description Join a group by its ID
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {object} models.Group "Joined group"
// @Failure     400 {object} ErrorResponse "Invalid group ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/join [post]
func (h *GroupHandler) JoinGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.JoinGroup(c.Request.Context(), userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// LeaveGroup handles the caller leaving a group.
// @Summary     Leave group
// @Description Leave a group. The creator cannot leave.
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {object} map[string]string "Left group"
// @Failure     400 {object} ErrorResponse "Invalid group ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Creator cannot leave or not a member"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/leave [post]
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.groupService.LeaveGroup(c.Request.Context(), userID, groupID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left group successfully"})
}

// AddMember handles an admin adding a user to a group.
// @Summary     Add member
// @Description Add a registered user to the group. Admins only.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string           true "Group ID"
// @Param       request body AddMemberRequest true "Member details"
// @Success     200 {object} models.Group "Updated group"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group admin"
// @Failure     404 {object} ErrorResponse "Group or user not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	group, err := h.groupService.AddMember(c.Request.Context(), userID, groupID, req.UserID, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// RemoveMember handles an admin removing a member.
// @Summary     Remove member
// @Description Remove a member from the group. Admins only; the creator cannot be removed.
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       id     path string true "Group ID"
// @Param       userId path string true "Member user ID"
// @Success     200 {object} models.Group "Updated group"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group admin"
// @Failure     404 {object} ErrorResponse "Group or member not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/members/{userId} [delete]
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	memberID, err := parsePathID(c, "userId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.RemoveMember(c.Request.Context(), userID, groupID, memberID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// GetGroupExpenses handles listing a group's expenses.
// @Summary     Group expenses
// @Description Expenses recorded in the group, newest first
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {array}  models.Expense "Expenses"
// @Failure     400 {object} ErrorResponse "Invalid group ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/expenses [get]
func (h *GroupHandler) GetGroupExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenses, err := h.groupService.GetGroupExpenses(c.Request.Context(), userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

// GetGroupBalances handles the members' net positions.
// @Summary     Group balances
// @Description Net balance per member. Positive means the member is owed money.
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {array}  services.MemberBalance "Balances"
// @Failure     400 {object} ErrorResponse "Invalid group ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/balances [get]
func (h *GroupHandler) GetGroupBalances(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	balances, err := h.debtService.GetGroupBalances(c.Request.Context(), userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// GetGroupDebts handles the simplified who-pays-whom list.
// @Summary     Group debts
// @Description Pairwise transfers that settle every balance in the group
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {array}  services.DebtTransfer "Debts"
// @Failure     400 {object} ErrorResponse "Invalid group ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/debts [get]
func (h *GroupHandler) GetGroupDebts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	debts, err := h.debtService.GetGroupDebts(c.Request.Context(), userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"debts": debts})
}
