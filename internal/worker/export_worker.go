package worker

import (
	"context"
	"fmt"
	"log/slog"

	"denaro/internal/amqp"
	"denaro/internal/core"
	"denaro/internal/sheets"
)

// ExportStore is the storage surface the export worker needs.
type ExportStore interface {
	GetExpense(ctx context.Context, id string) (*core.Expense, error)
	PendingExport(ctx context.Context, limit int) ([]core.Expense, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string) error
}

// ExportWorker pushes expenses from SQLite to the spreadsheet. It
// normally reacts to AMQP messages; the pending-export scan is a backup
// mechanism in case messages are lost.
type ExportWorker struct {
	store     ExportStore
	exporter  sheets.ExpenseExporter
	batchSize int
}

func NewExportWorker(store ExportStore, exporter sheets.ExpenseExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single export message from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExpenseExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"id", msg.ID,
		"template_id", msg.TemplateID)

	expense, err := w.store.GetExpense(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	if err := w.exportExpense(ctx, *expense); err != nil {
		return fmt.Errorf("export expense: %w", err)
	}

	return nil
}

// ProcessPendingExpenses exports any expenses that never made it to the
// sheet, typically after broker downtime.
func (w *ExportWorker) ProcessPendingExpenses(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	for _, expense := range pending {
		if err := w.exportExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense", "id", expense.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupExportCheck drains the pending backlog once at worker startup.
// Useful to recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending expenses on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, expense := range pending {
		if err := w.exportExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense during startup",
				"id", expense.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportExpense(ctx context.Context, expense core.Expense) error {
	ref, err := w.exporter.Append(ctx, expense)
	if err != nil {
		// Mark as export error so the backstop stops retrying it blindly
		if markErr := w.store.MarkExportError(ctx, expense.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", expense.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkExported(ctx, expense.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", expense.ID, "error", err)
		// Don't return error here - the export actually worked
	}

	slog.InfoContext(ctx, "Expense exported",
		"id", expense.ID,
		"sheets_ref", ref,
		"amount_cents", expense.Amount.Cents)

	return nil
}
