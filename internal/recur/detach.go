package recur

import (
	"errors"

	"denaro/internal/core"
)

var (
	ErrNotInstance   = errors.New("expense is not a generated instance")
	ErrWrongTemplate = errors.New("instance does not reference this template")
)

// Detach turns a materialized instance into a fully independent single
// expense and names the template to delete so that all future occurrences
// cease. The returned expense keeps the instance's id and payload with
// every recurrence field and the template back-reference cleared. Other
// already-materialized instances of the same template are left untouched.
func Detach(instance, template core.Expense) (core.Expense, string, error) {
	if instance.RecurringExpenseID == "" {
		return core.Expense{}, "", ErrNotInstance
	}
	if instance.RecurringExpenseID != template.ID {
		return core.Expense{}, "", ErrWrongTemplate
	}

	detached := core.Expense{
		ID:        instance.ID,
		Date:      instance.Date,
		Amount:    instance.Amount,
		Category:  instance.Category,
		Account:   instance.Account,
		Note:      instance.Note,
		Frequency: core.Single,
	}
	return detached, template.ID, nil
}
