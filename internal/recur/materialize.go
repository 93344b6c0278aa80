package recur

import (
	"github.com/google/uuid"

	"denaro/internal/core"
)

// Materialize creates a standalone expense record for one due date of the
// template. The instance copies the template's payload, gets a fresh id,
// is tagged single, and points back at the template; it never carries
// recurrence fields. The template itself is not modified.
func Materialize(t core.Expense, due core.Date) core.Expense {
	return core.Expense{
		ID:                 uuid.NewString(),
		Date:               due,
		Amount:             t.Amount,
		Category:           t.Category,
		Account:            t.Account,
		Note:               t.Note,
		Frequency:          core.Single,
		RecurringExpenseID: t.ID,
	}
}
