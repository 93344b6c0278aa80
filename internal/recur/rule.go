// Package recur implements the recurring-expense scheduling engine.
//
// The engine turns recurring templates into concrete dated expense
// instances. It is pure: every function reads an immutable snapshot of
// templates, expenses and "today" and returns new data without mutating
// its inputs, so re-running a computation with the same inputs always
// produces an empty delta.
package recur

import (
	"denaro/internal/core"
)

// NextDue advances from by one recurrence step of the template and returns
// the next due date. The second return value is false when the template is
// not recurring or its recurrence unit is unrecognized.
//
// Calendar arithmetic follows time.Time.AddDate normalization: adding a
// month to Jan 31 rolls into March. This is accepted behavior, not
// corrected.
func NextDue(t core.Expense, from core.Date) (core.Date, bool) {
	if t.Frequency != core.Recurring {
		return core.Date{}, false
	}
	n := t.Interval()
	switch t.Recurrence {
	case core.Daily:
		return from.AddDate(0, 0, n), true
	case core.Weekly:
		return from.AddDate(0, 0, 7*n), true
	case core.Monthly:
		return from.AddDate(0, n, 0), true
	case core.Yearly:
		return from.AddDate(n, 0, 0), true
	default:
		return core.Date{}, false
	}
}
