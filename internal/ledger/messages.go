package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fallback names used when the payer or group could not be resolved.
const (
	UnknownPayerName = "a group member"
	UnknownGroupName = "Group"
)

// ReminderMessage tells a member what they owe for a new group expense.
func ReminderMessage(currency string, share decimal.Decimal, payerName, title, groupName string) string {
	if payerName == "" {
		payerName = UnknownPayerName
	}
	if groupName == "" {
		groupName = UnknownGroupName
	}
	return fmt.Sprintf("You owe %s%s to %s for \"%s\" in %s.", currency, share.StringFixed(2), payerName, title, groupName)
}

// CrossingMessage renders the notification text for a fired crossing.
func CrossingMessage(currency string, ev CrossingEvent, category, period string) string {
	switch ev.Crossing {
	case CrossingWarning:
		return fmt.Sprintf("Heads up! You've used %s%% of your %s budget for %s. Only %s%s left.",
			ev.NewPct.Round(0).String(), category, period, currency, ev.Remaining.StringFixed(2))
	case CrossingExceeded:
		return fmt.Sprintf("Alert! You've exceeded your %s budget for %s by %s%s.",
			category, period, currency, ev.Overage.StringFixed(2))
	}
	return ""
}
