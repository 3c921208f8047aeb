package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"splitledger/internal/services"
)

// SettlementHandler handles settlement requests.
type SettlementHandler struct {
	settlementService services.SettlementServicer
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementService services.SettlementServicer) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService}
}

// CreateSettlementRequest represents a payment the caller made to another member.
type CreateSettlementRequest struct {
	GroupID     string          `json:"group_id" binding:"required,uuid"`
	ToUserID    string          `json:"to_user_id" binding:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=500"`
}

// CreateSettlement handles recording a pending settlement.
// @Summary     Create a settlement
// @Description Record a payment from the caller to another group member
// @Tags        settlements
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateSettlementRequest true "Settlement details"
// @Success     201 {object} models.Settlement "Settlement created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     404 {object} ErrorResponse "Group or recipient not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /settlements [post]
func (h *SettlementHandler) CreateSettlement(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	settlement, err := h.settlementService.CreateSettlement(
		c.Request.Context(), userID, req.GroupID, req.ToUserID, req.Amount, req.Description,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"settlement": settlement})
}

// GetSettlements handles listing settlements the caller sent or received.
// @Summary     List settlements
// @Description Settlements involving the caller across all groups
// @Tags        settlements
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.Settlement "Settlements"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /settlements [get]
func (h *SettlementHandler) GetSettlements(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	settlements, err := h.settlementService.GetUserSettlements(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settlements": settlements})
}

// GetGroupSettlements handles listing a group's settlements.
// @Summary     Group settlements
// @Description Settlements recorded in a group
// @Tags        settlements
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {array}  models.Settlement "Settlements"
// @Failure     400 {object} ErrorResponse "Invalid group ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/settlements [get]
func (h *SettlementHandler) GetGroupSettlements(c *gin.Context) {
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

	settlements, err := h.settlementService.GetGroupSettlements(c.Request.Context(), userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settlements": settlements})
}

// CompleteSettlement handles confirming a pending settlement.
// @Summary     Complete settlement
// @Description Mark a pending settlement completed so it counts towards balances
// @Tags        settlements
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Settlement ID"
// @Success     200 {object} models.Settlement "Completed settlement"
// @Failure     400 {object} ErrorResponse "Invalid settlement ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a party to the settlement"
// @Failure     404 {object} ErrorResponse "Settlement not found"
// @Failure     409 {object} ErrorResponse "Already completed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /settlements/{id}/complete [patch]
func (h *SettlementHandler) CompleteSettlement(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	settlementID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	settlement, err := h.settlementService.CompleteSettlement(c.Request.Context(), userID, settlementID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settlement": settlement})
}
