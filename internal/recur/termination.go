package recur

import (
	"denaro/internal/core"
)

// ShouldStop decides whether generation for the template must stop before
// materializing the candidate occurrence. generatedSoFar is the number of
// instances already referencing the template, counting both stored ones
// and those queued earlier in the same generation pass, so a single pass
// never overshoots a count-bounded template.
func ShouldStop(t core.Expense, candidate core.Date, generatedSoFar int) bool {
	switch t.EndTypeOrDefault() {
	case core.EndDate:
		if t.RecurrenceEndDate.IsZero() {
			return false
		}
		return candidate.String() > t.RecurrenceEndDate.String()
	case core.EndCount:
		// A non-positive count is treated as unlimited.
		if t.RecurrenceCount <= 0 {
			return false
		}
		return generatedSoFar >= t.RecurrenceCount
	default:
		// Forever, unset, or unrecognized: never stops.
		return false
	}
}
