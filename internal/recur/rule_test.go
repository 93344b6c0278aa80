package recur

import (
	"testing"

	"denaro/internal/core"
)

func template(unit core.RecurrenceUnit, interval int) core.Expense {
	return core.Expense{
		ID:                 "tpl-1",
		Date:               core.NewDate(2024, 1, 1),
		Amount:             core.Money{Cents: 80000},
		Category:           "Casa",
		Frequency:          core.Recurring,
		Recurrence:         unit,
		RecurrenceInterval: interval,
	}
}

func TestNextDue(t *testing.T) {
	tests := []struct {
		name     string
		unit     core.RecurrenceUnit
		interval int
		from     core.Date
		want     core.Date
	}{
		{
			name:     "daily advances one day",
			unit:     core.Daily,
			interval: 1,
			from:     core.NewDate(2024, 1, 1),
			want:     core.NewDate(2024, 1, 2),
		},
		{
			name:     "daily with interval 3",
			unit:     core.Daily,
			interval: 3,
			from:     core.NewDate(2024, 1, 1),
			want:     core.NewDate(2024, 1, 4),
		},
		{
			name:     "weekly advances seven days",
			unit:     core.Weekly,
			interval: 1,
			from:     core.NewDate(2024, 1, 1),
			want:     core.NewDate(2024, 1, 8),
		},
		{
			name:     "weekly with interval 2",
			unit:     core.Weekly,
			interval: 2,
			from:     core.NewDate(2024, 1, 1),
			want:     core.NewDate(2024, 1, 15),
		},
		{
			name:     "monthly advances one month",
			unit:     core.Monthly,
			interval: 1,
			from:     core.NewDate(2024, 1, 15),
			want:     core.NewDate(2024, 2, 15),
		},
		{
			name:     "monthly from Jan 31 rolls into March",
			unit:     core.Monthly,
			interval: 1,
			from:     core.NewDate(2024, 1, 31),
			want:     core.NewDate(2024, 3, 2),
		},
		{
			name:     "yearly advances one year",
			unit:     core.Yearly,
			interval: 1,
			from:     core.NewDate(2024, 3, 15),
			want:     core.NewDate(2025, 3, 15),
		},
		{
			name:     "yearly from Feb 29 normalizes to Mar 1",
			unit:     core.Yearly,
			interval: 1,
			from:     core.NewDate(2024, 2, 29),
			want:     core.NewDate(2025, 3, 1),
		},
		{
			name:     "zero interval defaults to 1",
			unit:     core.Daily,
			interval: 0,
			from:     core.NewDate(2024, 1, 1),
			want:     core.NewDate(2024, 1, 2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextDue(template(tt.unit, tt.interval), tt.from)
			if !ok {
				t.Fatalf("NextDue() ok = false, want true")
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextDue() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextDueInvalid(t *testing.T) {
	from := core.NewDate(2024, 1, 1)

	t.Run("not a template", func(t *testing.T) {
		e := template(core.Daily, 1)
		e.Frequency = core.Single
		if _, ok := NextDue(e, from); ok {
			t.Error("NextDue() ok = true for non-recurring record")
		}
	})

	t.Run("unrecognized unit", func(t *testing.T) {
		e := template("fortnightly", 1)
		if _, ok := NextDue(e, from); ok {
			t.Error("NextDue() ok = true for unrecognized unit")
		}
	})

	t.Run("absent unit", func(t *testing.T) {
		e := template("", 1)
		if _, ok := NextDue(e, from); ok {
			t.Error("NextDue() ok = true for absent unit")
		}
	})
}
