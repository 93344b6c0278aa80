package recur

import (
	"denaro/internal/core"
)

// IsActive re-derives, for display purposes, whether a template should
// still be considered live. It mirrors the termination rules but works
// from stored expense data instead of in-flight generation state, so list
// views can evaluate it without running generation. It never stops
// generation itself.
func IsActive(t core.Expense, expenses []core.Expense) bool {
	if t.Frequency != core.Recurring {
		return false
	}

	switch t.EndTypeOrDefault() {
	case core.EndCount:
		if t.RecurrenceCount <= 0 {
			return true
		}
		generated := 0
		for _, e := range expenses {
			if e.RecurringExpenseID == t.ID {
				generated++
			}
		}
		return generated < t.RecurrenceCount

	case core.EndDate:
		if t.RecurrenceEndDate.IsZero() {
			return true
		}
		// Last known position: the cursor, or the start date if nothing
		// was generated yet.
		pos := t.LastGeneratedDate
		if pos.IsZero() {
			pos = t.Date
		}
		if pos.String() > t.RecurrenceEndDate.String() {
			return false
		}
		var next core.Date
		ok := true
		if t.LastGeneratedDate.IsZero() {
			next = t.Date
		} else {
			next, ok = NextDue(t, pos)
		}
		if !ok {
			return false
		}
		return next.String() <= t.RecurrenceEndDate.String()

	default:
		return true
	}
}
