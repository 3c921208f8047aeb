package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Crossing names a budget threshold event.
type Crossing string

const (
	CrossingNone     Crossing = ""
	CrossingWarning  Crossing = "warning"
	CrossingExceeded Crossing = "exceeded"
)

// CrossingEvent describes the outcome of one credit against a budget.
type CrossingEvent struct {
	Crossing  Crossing
	PrevPct   decimal.Decimal
	NewPct    decimal.Decimal
	Remaining decimal.Decimal
	Overage   decimal.Decimal
}

// Fired reports whether a notification should be raised.
func (e CrossingEvent) Fired() bool { return e.Crossing != CrossingNone }

// Percentage returns spent as a percentage of limit. A non-positive limit has
// no percentage and yields zero.
func Percentage(spent, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return spent.Mul(hundred).Div(limit)
}

// DetectCrossing compares the spend before and after a credit. Exceeded wins
// whenever the spend reaches 100%, so warning and exceeded never fire together.
func DetectCrossing(prevSpent, newSpent, limit decimal.Decimal, thresholdPct float64, alertsEnabled bool) CrossingEvent {
	if !alertsEnabled || !limit.IsPositive() {
		return CrossingEvent{}
	}

	ev := CrossingEvent{
		PrevPct: Percentage(prevSpent, limit),
		NewPct:  Percentage(newSpent, limit),
	}
	threshold := decimal.NewFromFloat(thresholdPct)

	switch {
	case ev.PrevPct.LessThan(hundred) && ev.NewPct.GreaterThanOrEqual(hundred):
		ev.Crossing = CrossingExceeded
		ev.Overage = decimal.Max(decimal.Zero, newSpent.Sub(limit)).Round(2)
	case ev.PrevPct.LessThan(threshold) && ev.NewPct.GreaterThanOrEqual(threshold) && ev.NewPct.LessThan(hundred):
		ev.Crossing = CrossingWarning
		ev.Remaining = decimal.Max(decimal.Zero, limit.Sub(newSpent)).Round(2)
	}
	return ev
}

// Budget statuses reported by budget-vs-actual.
const (
	StatusNormal   = "normal"
	StatusWarning  = "warning"
	StatusExceeded = "exceeded"
	StatusNoBudget = "no-budget"
)

// BudgetStatus classifies a usage percentage with the same rule DetectCrossing uses.
func BudgetStatus(pct decimal.Decimal, thresholdPct float64) string {
	switch {
	case pct.GreaterThanOrEqual(hundred):
		return StatusExceeded
	case pct.GreaterThanOrEqual(decimal.NewFromFloat(thresholdPct)):
		return StatusWarning
	default:
		return StatusNormal
	}
}

// PeriodLayout is the time layout of a period token ("2024-06").
const PeriodLayout = "2006-01"

// PeriodOf returns the YYYY-MM period token for t in UTC.
func PeriodOf(t time.Time) string {
	return t.UTC().Format(PeriodLayout)
}

// ParsePeriod validates a YYYY-MM token and returns the half-open UTC range it covers.
func ParsePeriod(period string) (start, end time.Time, err error) {
	start, err = time.Parse(PeriodLayout, period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}
