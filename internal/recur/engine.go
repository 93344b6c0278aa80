package recur

import (
	"context"
	"log/slog"

	"denaro/internal/core"
)

// Result is the delta produced by one generation pass. NewInstances are
// appended to the expense collection by the caller; UpdatedTemplates are
// merged into the template collection by id. An empty Result means the
// pass was a no-op.
type Result struct {
	NewInstances     []core.Expense
	UpdatedTemplates []core.Expense
}

// Empty reports whether the pass produced no changes.
func (r Result) Empty() bool {
	return len(r.NewInstances) == 0 && len(r.UpdatedTemplates) == 0
}

// Generate walks every template from its last-known cursor forward to
// today, materializing any missing occurrence up to and including today
// and advancing the cursor. Occurrences that already exist for a
// (template, date) pair are silently skipped; that duplicate check is the
// idempotence guarantee, not a failure path. Inputs are never mutated.
func Generate(ctx context.Context, templates, expenses []core.Expense, today core.Date) Result {
	var res Result

	// Existing instances per template: dates for the duplicate check and
	// record counts for count-bounded termination.
	existingDates := make(map[string]map[string]bool)
	existingCounts := make(map[string]int)
	for _, e := range expenses {
		if e.RecurringExpenseID == "" {
			continue
		}
		existingCounts[e.RecurringExpenseID]++
		dates := existingDates[e.RecurringExpenseID]
		if dates == nil {
			dates = make(map[string]bool)
			existingDates[e.RecurringExpenseID] = dates
		}
		dates[e.Date.String()] = true
	}

	for _, t := range templates {
		if t.Frequency != core.Recurring {
			continue
		}
		if t.Date.IsZero() {
			// Malformed template: no start date. Skipped for this pass,
			// no cursor change.
			slog.WarnContext(ctx, "Skipping template without start date", "template_id", t.ID)
			continue
		}

		seen := existingDates[t.ID]
		if seen == nil {
			seen = make(map[string]bool)
			existingDates[t.ID] = seen
		}
		queued := 0

		// The first-ever occurrence is the template's own start date;
		// after that, occurrences are computed from the cursor.
		var next core.Date
		ok := true
		cursor := t.LastGeneratedDate
		if cursor.IsZero() {
			next = t.Date
		} else {
			next, ok = NextDue(t, cursor)
		}

		for ok && !next.After(today) {
			if ShouldStop(t, next, existingCounts[t.ID]+queued) {
				break
			}
			if !seen[next.String()] {
				inst := Materialize(t, next)
				res.NewInstances = append(res.NewInstances, inst)
				seen[next.String()] = true
				queued++
			}
			cursor = next
			next, ok = NextDue(t, cursor)
		}

		if !cursor.IsZero() && !cursor.Equal(t.LastGeneratedDate) {
			updated := t
			updated.LastGeneratedDate = cursor
			res.UpdatedTemplates = append(res.UpdatedTemplates, updated)
		}
	}

	return res
}
