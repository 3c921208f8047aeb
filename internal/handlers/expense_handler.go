package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "splitledger/internal/errors"
	"splitledger/internal/models"
	"splitledger/internal/pagination"
	"splitledger/internal/services"
)

// ExpenseHandler handles expense, share payment and debt summary requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	debtService    services.DebtServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer, debtService services.DebtServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, debtService: debtService}
}

// CreateExpenseRequest represents the request payload for recording an expense.
// Members is required when GroupID is set and lists who shares the cost.
type CreateExpenseRequest struct {
	Title      string                 `json:"title" binding:"required,min=1,max=200"`
	Amount     decimal.Decimal        `json:"amount"`
	Category   models.ExpenseCategory `json:"category" binding:"required,expense_category"`
	GroupID    *string                `json:"group_id" binding:"omitempty,uuid"`
	Members    []string               `json:"members" binding:"omitempty,dive,uuid"`
	ReceiptURL *string                `json:"receipt_url" binding:"omitempty,url"`
}

// UpdateExpenseRequest represents the request payload for editing an expense.
type UpdateExpenseRequest struct {
	Title      *string `json:"title" binding:"omitempty,min=1,max=200"`
	ReceiptURL *string `json:"receipt_url" binding:"omitempty,url"`
}

// MarkPaidRequest selects the share to mark paid. Index wins over user_id;
// an empty body marks the caller's own share.
type MarkPaidRequest struct {
	Index  *int    `json:"index" binding:"omitempty,min=0"`
	UserID *string `json:"user_id" binding:"omitempty,uuid"`
}

// CreateExpense handles recording a personal or group expense.
// @Summary     Create an expense
// @Description Record an expense paid by the caller. Group expenses are split equally between members.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), userID, services.CreateExpenseInput{
		Title:      req.Title,
		Amount:     req.Amount,
		Category:   req.Category,
		GroupID:    req.GroupID,
		Members:    req.Members,
		ReceiptURL: req.ReceiptURL,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetExpenses handles listing the caller's expenses.
// @Summary     List expenses
// @Description List expenses the caller paid for or shares in, newest first
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       category  query string false "Filter by category"
// @Param       group_id  query string false "Filter by group"
// @Param       period    query string false "Filter by month (YYYY-MM)"
// @Param       start_date query string false "Created on or after (YYYY-MM-DD)"
// @Param       end_date  query string false "Created on or before (YYYY-MM-DD)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [get]
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter, err := expenseFilterQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.GetUserExpenses(c.Request.Context(), userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetExpense handles retrieving a single expense.
// @Summary     Get expense by ID
// @Description Get an expense the caller paid for or shares in
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} models.Expense "Expense details"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// UpdateExpense handles editing the title or receipt of an expense.
// @Summary     Update expense
// @Description Change the title or receipt URL. Only the payer may edit.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Expense ID"
// @Param       request body UpdateExpenseRequest true "Fields to change"
// @Success     200 {object} models.Expense "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not the payer"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [patch]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), userID, expenseID, req.Title, req.ReceiptURL)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense handles deleting an expense.
// @Summary     Delete expense
// @Description Delete an expense and its shares. Only the payer may delete.
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} map[string]string "Expense deleted"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not the payer"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), userID, expenseID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}

// MarkSharePaid handles flipping one share of a group expense to paid.
// @Summary     Mark a share paid
// @Description Mark a share of a group expense as paid. The payer may mark any share; members may mark their own.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string          true  "Expense ID"
// @Param       request body MarkPaidRequest false "Share selector"
// @Success     200 {object} models.Expense "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not allowed to mark this share"
// @Failure     404 {object} ErrorResponse "Expense or share not found"
// @Failure     409 {object} ErrorResponse "Share already paid"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id}/mark-paid [patch]
func (h *ExpenseHandler) MarkSharePaid(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(c, bindError(err))
		return
	}

	expense, err := h.debtService.MarkSharePaid(c.Request.Context(), userID, expenseID, services.ShareSelector{
		Index:  req.Index,
		UserID: req.UserID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// ExportExpensesCSV handles downloading the caller's expenses as CSV.
// @Summary     Export expenses
// @Description Download expenses the caller paid for or shares in as CSV, newest first
// @Tags        expenses
// @Produce     text/csv
// @Security    BearerAuth
// @Param       category   query string false "Filter by category"
// @Param       group_id   query string false "Filter by group"
// @Param       period     query string false "Filter by month (YYYY-MM)"
// @Param       start_date query string false "Created on or after (YYYY-MM-DD)"
// @Param       end_date   query string false "Created on or before (YYYY-MM-DD)"
// @Success     200 {file}   file "expenses.csv"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/export/csv [get]
func (h *ExpenseHandler) ExportExpensesCSV(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := expenseFilterQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	data, err := h.expenseService.ExportCSV(c.Request.Context(), userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=expenses.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// expenseFilterQuery reads the list and export filters from the query string.
func expenseFilterQuery(c *gin.Context) (services.ExpenseFilter, error) {
	var filter services.ExpenseFilter
	if v := c.Query("category"); v != "" {
		cat := models.ExpenseCategory(v)
		filter.Category = &cat
	}
	if v := c.Query("group_id"); v != "" {
		filter.GroupID = &v
	}
	if v := c.Query("period"); v != "" {
		filter.Period = &v
	}
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{
		{"start_date", &filter.StartDate},
		{"end_date", &filter.EndDate},
	} {
		v := c.Query(q.name)
		if v == "" {
			continue
		}
		day, err := time.Parse(services.ExpenseDateLayout, v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, q.name+" must be formatted as YYYY-MM-DD")
		}
		*q.dst = &day
	}
	return filter, nil
}

// GetDebtSummary handles the caller's cross-group debt totals.
// @Summary     Debt summary
// @Description Totals of what the caller owes and is owed across all groups
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} ledger.DebtSummary "Debt summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/debt-summary [get]
func (h *ExpenseHandler) GetDebtSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.debtService.GetUserDebtSummary(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
