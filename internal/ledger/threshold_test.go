package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDetectCrossing(t *testing.T) {
	tests := []struct {
		name      string
		prev      string
		next      string
		limit     string
		threshold float64
		enabled   bool
		want      Crossing
		remaining string
		overage   string
	}{
		{name: "below_threshold", prev: "0", next: "750", limit: "1000", threshold: 80, enabled: true, want: CrossingNone},
		{name: "crosses_warning", prev: "750", next: "850", limit: "1000", threshold: 80, enabled: true, want: CrossingWarning, remaining: "150.00"},
		{name: "crosses_exceeded_only", prev: "850", next: "1050", limit: "1000", threshold: 80, enabled: true, want: CrossingExceeded, overage: "50.00"},
		{name: "jumps_both_reports_exceeded", prev: "0", next: "1200", limit: "1000", threshold: 80, enabled: true, want: CrossingExceeded, overage: "200.00"},
		{name: "exactly_at_threshold", prev: "700", next: "800", limit: "1000", threshold: 80, enabled: true, want: CrossingWarning, remaining: "200.00"},
		{name: "exactly_at_limit", prev: "900", next: "1000", limit: "1000", threshold: 80, enabled: true, want: CrossingExceeded, overage: "0.00"},
		{name: "already_above_threshold", prev: "850", next: "900", limit: "1000", threshold: 80, enabled: true, want: CrossingNone},
		{name: "already_exceeded", prev: "1100", next: "1200", limit: "1000", threshold: 80, enabled: true, want: CrossingNone},
		{name: "alerts_disabled", prev: "750", next: "850", limit: "1000", threshold: 80, enabled: false, want: CrossingNone},
		{name: "zero_limit", prev: "0", next: "10", limit: "0", threshold: 80, enabled: true, want: CrossingNone},
		{name: "threshold_100_never_warns", prev: "900", next: "990", limit: "1000", threshold: 100, enabled: true, want: CrossingNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := DetectCrossing(dec(tt.prev), dec(tt.next), dec(tt.limit), tt.threshold, tt.enabled)
			if ev.Crossing != tt.want {
				t.Fatalf("expected crossing %q, got %q", tt.want, ev.Crossing)
			}
			if tt.remaining != "" && ev.Remaining.StringFixed(2) != tt.remaining {
				t.Errorf("expected remaining %s, got %s", tt.remaining, ev.Remaining.StringFixed(2))
			}
			if tt.overage != "" && ev.Overage.StringFixed(2) != tt.overage {
				t.Errorf("expected overage %s, got %s", tt.overage, ev.Overage.StringFixed(2))
			}
		})
	}
}

func TestDetectCrossingFiresAtMostOnce(t *testing.T) {
	limit := dec("200")
	for prev := 0; prev <= 260; prev += 5 {
		for next := prev; next <= 300; next += 5 {
			ev := DetectCrossing(decimal.NewFromInt(int64(prev)), decimal.NewFromInt(int64(next)), limit, 80, true)
			if ev.Crossing != CrossingNone && ev.Crossing != CrossingWarning && ev.Crossing != CrossingExceeded {
				t.Fatalf("unexpected crossing %q", ev.Crossing)
			}
			prevPct := float64(prev) / 2
			newPct := float64(next) / 2
			crossesThreshold := prevPct < 80 && newPct >= 80
			crossesLimit := prevPct < 100 && newPct >= 100
			if (crossesThreshold || crossesLimit) && !ev.Fired() {
				t.Errorf("prev=%d next=%d: expected a crossing", prev, next)
			}
			if !crossesThreshold && !crossesLimit && ev.Fired() {
				t.Errorf("prev=%d next=%d: unexpected crossing %q", prev, next, ev.Crossing)
			}
		}
	}
}

func TestBudgetStatus(t *testing.T) {
	tests := []struct {
		pct  string
		want string
	}{
		{"0", StatusNormal},
		{"79.99", StatusNormal},
		{"80", StatusWarning},
		{"99.99", StatusWarning},
		{"100", StatusExceeded},
		{"150", StatusExceeded},
	}
	for _, tt := range tests {
		if got := BudgetStatus(dec(tt.pct), 80); got != tt.want {
			t.Errorf("BudgetStatus(%s) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		start, end, err := ParsePeriod("2024-12")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !start.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected start %v", start)
		}
		if !end.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected end %v", end)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, p := range []string{"", "2024", "2024-13", "24-06", "2024-06-01"} {
			if _, _, err := ParsePeriod(p); err == nil {
				t.Errorf("expected error for %q", p)
			}
		}
	})

	t.Run("period_of_round_trips", func(t *testing.T) {
		period := PeriodOf(time.Date(2031, 2, 14, 9, 0, 0, 0, time.UTC))
		if len(period) != len(PeriodLayout) {
			t.Fatalf("expected a %d character token, got %q", len(PeriodLayout), period)
		}
		start, _, err := ParsePeriod(period)
		if err != nil {
			t.Fatalf("period %q does not parse: %v", period, err)
		}
		if !start.Equal(time.Date(2031, 2, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected start %v", start)
		}
	})

	t.Run("period_of_uses_utc", func(t *testing.T) {
		loc := time.FixedZone("UTC+5", 5*3600)
		ts := time.Date(2024, 7, 1, 2, 0, 0, 0, loc)
		if got := PeriodOf(ts); got != "2024-06" {
			t.Errorf("expected 2024-06, got %s", got)
		}
	})
}
