package sheets

import (
	"context"

	"denaro/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseExporter appends an expense row to the external spreadsheet.
	ExpenseExporter interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}
)
