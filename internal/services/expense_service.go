package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"denaro/internal/core"
	"denaro/internal/recur"
)

// ExpenseStore is the persistence surface the services need.
type ExpenseStore interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListTemplates(ctx context.Context) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (*core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) error
	UpdateTemplate(ctx context.Context, t core.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	Detach(ctx context.Context, detached core.Expense, templateID string) error
	Close() error
}

// ExportPublisher pushes export requests onto the message queue. A nil
// publisher is valid; expenses then only reach the sheet through the
// worker's pending-export backstop.
type ExportPublisher interface {
	PublishExpenseExport(ctx context.Context, id string) error
	PublishGeneratedExport(ctx context.Context, id, templateID string) error
	Close() error
}

// ExpenseService orchestrates expense and template operations across
// SQLite and AMQP.
type ExpenseService struct {
	store     ExpenseStore
	publisher ExportPublisher
}

func NewExpenseService(store ExpenseStore, publisher ExportPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
	}
}

// CreateExpense saves an expense or template locally and, for single
// expenses, publishes an export message.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Frequency == "" {
		e.Frequency = core.Single
	}

	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validate expense: %w", err)
	}

	// Save to SQLite first (fast, reliable)
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return "", fmt.Errorf("save expense: %w", err)
	}

	// Templates are not exported; only their generated occurrences are.
	if e.Frequency == core.Single {
		if err := s.publishExportMessage(ctx, e.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish export message",
				"id", e.ID, "error", err)
			// Don't fail the request - expense is saved locally
		}
	}

	return e.ID, nil
}

// ListExpenses returns all single expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

// ListTemplates returns recurring templates. By default exhausted
// templates are filtered out; includeInactive keeps them.
func (s *ExpenseService) ListTemplates(ctx context.Context, includeInactive bool) ([]core.Expense, error) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if includeInactive {
		return templates, nil
	}

	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	active := make([]core.Expense, 0, len(templates))
	for _, t := range templates {
		if recur.IsActive(t, expenses) {
			active = append(active, t)
		}
	}
	return active, nil
}

// GetExpense returns a single record of either kind.
func (s *ExpenseService) GetExpense(ctx context.Context, id string) (*core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

// UpdateTemplate replaces a template's editable fields. Future
// generation follows the new rule from the stored cursor onward.
func (s *ExpenseService) UpdateTemplate(ctx context.Context, t core.Expense) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate template: %w", err)
	}
	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// DeleteExpense removes an expense or template. Deleting a template
// leaves its already generated occurrences in place.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// DetachInstance converts a generated occurrence into a standalone
// expense and removes its template, ending the series.
func (s *ExpenseService) DetachInstance(ctx context.Context, instanceID string) (*core.Expense, error) {
	instance, err := s.store.GetExpense(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if instance.RecurringExpenseID == "" {
		return nil, recur.ErrNotInstance
	}

	template, err := s.store.GetExpense(ctx, instance.RecurringExpenseID)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", instance.RecurringExpenseID, err)
	}

	detached, templateID, err := recur.Detach(*instance, *template)
	if err != nil {
		return nil, err
	}

	if err := s.store.Detach(ctx, detached, templateID); err != nil {
		return nil, fmt.Errorf("persist detach: %w", err)
	}

	return &detached, nil
}

func (s *ExpenseService) publishExportMessage(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Export publisher not available, skipping export message")
		return nil
	}
	return s.publisher.PublishExpenseExport(ctx, id)
}

// Close closes both storage and AMQP connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
