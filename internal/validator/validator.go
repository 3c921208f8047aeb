// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"splitledger/internal/ledger"
	"splitledger/internal/models"
)

var groupCodeRegex = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn adds the custom tags to v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("expense_category", validateExpenseCategory)
	_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
	_ = v.RegisterValidation("group_code", validateGroupCode)
	_ = v.RegisterValidation("member_role", validateMemberRole)
}

func validateExpenseCategory(fl validator.FieldLevel) bool {
	return models.ExpenseCategory(fl.Field().String()).IsValid()
}

// validateBudgetPeriod accepts YYYY-MM.
func validateBudgetPeriod(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != len(ledger.PeriodLayout) {
		return false
	}
	_, _, err := ledger.ParsePeriod(s)
	return err == nil
}

// validateGroupCode is case-insensitive; the service upper-cases codes.
func validateGroupCode(fl validator.FieldLevel) bool {
	return groupCodeRegex.MatchString(fl.Field().String())
}

func validateMemberRole(fl validator.FieldLevel) bool {
	switch models.MemberRole(fl.Field().String()) {
	case models.MemberRoleAdmin, models.MemberRoleMember:
		return true
	}
	return false
}
