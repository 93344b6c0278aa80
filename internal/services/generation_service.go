package services

import (
	"context"
	"fmt"
	"log/slog"

	"denaro/internal/core"
	"denaro/internal/recur"
)

// GenerationStore is the slice of storage the generation pass needs.
type GenerationStore interface {
	ListTemplates(ctx context.Context) ([]core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ApplyGeneration(ctx context.Context, instances, updatedTemplates []core.Expense) error
}

// GenerationService runs catch-up generation for recurring templates:
// it snapshots the collections, lets the engine compute the due
// occurrences, and persists the outcome in one transaction. Publishing
// export messages for the new occurrences is best effort.
type GenerationService struct {
	store     GenerationStore
	publisher ExportPublisher
}

func NewGenerationService(store GenerationStore, publisher ExportPublisher) *GenerationService {
	return &GenerationService{
		store:     store,
		publisher: publisher,
	}
}

// Run executes one generation pass up to and including today and
// returns the number of occurrences created. Running it again with the
// same today is a no-op.
func (s *GenerationService) Run(ctx context.Context, today core.Date) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("generation service not properly initialized")
	}

	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}

	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring templates",
		"templates", len(templates),
		"processing_date", today.String())

	result := recur.Generate(ctx, templates, expenses, today)
	if result.Empty() {
		slog.InfoContext(ctx, "No occurrences due", "processing_date", today.String())
		return 0, nil
	}

	if err := s.store.ApplyGeneration(ctx, result.NewInstances, result.UpdatedTemplates); err != nil {
		return 0, fmt.Errorf("apply generation: %w", err)
	}

	for _, inst := range result.NewInstances {
		if s.publisher == nil {
			continue
		}
		if err := s.publisher.PublishGeneratedExport(ctx, inst.ID, inst.RecurringExpenseID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish export for generated occurrence",
				"id", inst.ID,
				"template_id", inst.RecurringExpenseID,
				"error", err)
			// Occurrence is persisted; the worker backstop will pick it up.
		}
	}

	slog.InfoContext(ctx, "Recurring generation complete",
		"generated", len(result.NewInstances),
		"templates_advanced", len(result.UpdatedTemplates))

	return len(result.NewInstances), nil
}
