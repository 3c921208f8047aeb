// Package errors provides custom error types for the splitledger API.
// All service-layer errors should use AppError so that responses are consistent
// and never leak storage details to clients.
//
// Sentinels are grouped by the taxonomy the ledger core reports:
// validation, not found, conflict, authorization and persistence.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Kind classifies an AppError into one of the ledger's failure families.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindAuthorization Kind = "authorization"
	KindPersistence   Kind = "persistence"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Kind       Kind   `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target carries the same code, so wrapped copies of a
// sentinel still match it with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Kind:       sentinel.Kind,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Kind:       sentinel.Kind,
		Internal:   sentinel.Internal,
	}
}

// KindOf returns the Kind of err, or KindPersistence for anything that is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}

func validation(code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, StatusCode: http.StatusBadRequest, Kind: KindValidation}
}

func notFound(code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, StatusCode: http.StatusNotFound, Kind: KindNotFound}
}

func conflict(code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, StatusCode: http.StatusConflict, Kind: KindConflict}
}

func forbidden(code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, StatusCode: http.StatusForbidden, Kind: KindAuthorization}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized, Kind: KindAuthorization}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized, Kind: KindAuthorization}
	ErrForbidden          = forbidden("FORBIDDEN", "Access denied")
)

// General errors.
var (
	ErrInvalidInput = validation("INVALID_INPUT", "Invalid input")
	ErrNotFound     = notFound("NOT_FOUND", "Resource not found")
	ErrConflict     = conflict("CONFLICT", "Resource already exists")
	ErrPersistence  = &AppError{Code: "PERSISTENCE_ERROR", Message: "A storage error occurred", StatusCode: http.StatusInternalServerError, Kind: KindPersistence}

	// ErrInternalServer is kept as the generic fallback used by the HTTP layer.
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError, Kind: KindPersistence}
)

// User errors.
var (
	ErrUserNotFound   = notFound("USER_NOT_FOUND", "User not found")
	ErrDuplicateEmail = conflict("DUPLICATE_EMAIL", "A user with this email already exists")
)

// Expense and share errors.
var (
	ErrExpenseNotFound  = notFound("EXPENSE_NOT_FOUND", "Expense not found")
	ErrShareNotFound    = notFound("SHARE_NOT_FOUND", "User is not part of this expense split")
	ErrNotGroupExpense  = notFound("NOT_GROUP_EXPENSE", "This is not a group expense")
	ErrShareAlreadyPaid = conflict("SHARE_ALREADY_PAID", "Share is already marked as paid")
	ErrInvalidAmount    = validation("INVALID_AMOUNT", "Amount must be greater than zero")
	ErrInvalidCategory  = validation("INVALID_CATEGORY", "Unsupported expense category")
	ErrEmptySplit       = validation("EMPTY_SPLIT", "Group expenses must be split between at least one member")
	ErrNotExpensePayer  = forbidden("NOT_EXPENSE_PAYER", "Only the payer can modify this expense")
)

// Budget errors.
var (
	ErrBudgetNotFound   = notFound("BUDGET_NOT_FOUND", "Budget not found")
	ErrDuplicateBudget  = conflict("DUPLICATE_BUDGET", "Budget already exists for this category and month")
	ErrInvalidPeriod    = validation("INVALID_PERIOD", "Period must be formatted as YYYY-MM")
	ErrInvalidLimit     = validation("INVALID_LIMIT", "Budget limit must not be negative")
	ErrInvalidThreshold = validation("INVALID_THRESHOLD", "Alert threshold must be between 0 and 100")
)

// Group errors.
var (
	ErrGroupNotFound      = notFound("GROUP_NOT_FOUND", "Group not found")
	ErrNotGroupMember     = forbidden("NOT_GROUP_MEMBER", "Not a member of this group")
	ErrNotGroupAdmin      = forbidden("NOT_GROUP_ADMIN", "Only group admins can perform this action")
	ErrNotGroupCreator    = forbidden("NOT_GROUP_CREATOR", "Only the group creator can delete the group")
	ErrCreatorImmutable   = forbidden("CREATOR_IMMUTABLE", "The group creator cannot leave or be removed")
	ErrAlreadyMember      = conflict("ALREADY_MEMBER", "User is already a member of this group")
	ErrMemberNotFound     = notFound("MEMBER_NOT_FOUND", "User is not a member of this group")
	ErrDuplicateGroupCode = conflict("DUPLICATE_GROUP_CODE", "Group code already exists. Please choose a different code.")
	ErrInvalidGroupCode   = validation("INVALID_GROUP_CODE", "Group code must be exactly 6 alphanumeric characters")
	ErrCodeGeneration     = &AppError{Code: "CODE_GENERATION_FAILED", Message: "unable to generate unique code", StatusCode: http.StatusInternalServerError, Kind: KindPersistence}
)

// Settlement errors.
var (
	ErrSettlementNotFound  = notFound("SETTLEMENT_NOT_FOUND", "Settlement not found")
	ErrSettlementCompleted = conflict("SETTLEMENT_COMPLETED", "Settlement is already completed")
	ErrSelfSettlement      = validation("SELF_SETTLEMENT", "Cannot settle with yourself")
)

// Notification errors.
var (
	ErrNotificationNotFound = notFound("NOTIFICATION_NOT_FOUND", "Notification not found")
)
