package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"denaro/internal/core"
	"denaro/internal/recur"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "denaro.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTemplate() core.Expense {
	return core.Expense{
		ID:                 "tpl-rent",
		Date:               core.NewDate(2024, 1, 1),
		Amount:             core.Money{Cents: 80000},
		Category:           "Casa",
		Account:            "Conto principale",
		Note:               "Affitto",
		Frequency:          core.Recurring,
		Recurrence:         core.Monthly,
		RecurrenceInterval: 1,
		RecurrenceEndType:  core.EndForever,
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tpl := testTemplate()
	if err := repo.CreateExpense(ctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	single := core.Expense{
		ID:        "exp-1",
		Date:      core.NewDate(2024, 1, 5),
		Amount:    core.Money{Cents: 1250},
		Category:  "Spesa",
		Frequency: core.Single,
	}
	if err := repo.CreateExpense(ctx, single); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	templates, err := repo.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("expected 1 template, got %d", len(templates))
	}
	got := templates[0]
	if got.ID != tpl.ID || got.Recurrence != core.Monthly ||
		got.RecurrenceEndType != core.EndForever || !got.Date.Equal(tpl.Date) {
		t.Errorf("template round trip mismatch: %+v", got)
	}
	if !got.LastGeneratedDate.IsZero() {
		t.Errorf("fresh template has cursor %s", got.LastGeneratedDate)
	}

	expenses, err := repo.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].ID != "exp-1" {
		t.Fatalf("expected only the single expense, got %+v", expenses)
	}
}

func TestRepositoryApplyGeneration(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tpl := testTemplate()
	if err := repo.CreateExpense(ctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	res := recur.Generate(ctx, []core.Expense{tpl}, nil, core.NewDate(2024, 3, 1))
	if len(res.NewInstances) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(res.NewInstances))
	}
	if err := repo.ApplyGeneration(ctx, res.NewInstances, res.UpdatedTemplates); err != nil {
		t.Fatalf("apply generation: %v", err)
	}

	expenses, err := repo.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 3 {
		t.Fatalf("expected 3 stored instances, got %d", len(expenses))
	}

	templates, _ := repo.ListTemplates(ctx)
	if got := templates[0].LastGeneratedDate.String(); got != "2024-03-01" {
		t.Errorf("stored cursor = %s, want 2024-03-01", got)
	}

	// Re-applying the same pass must not duplicate anything.
	if err := repo.ApplyGeneration(ctx, res.NewInstances, res.UpdatedTemplates); err != nil {
		t.Fatalf("re-apply generation: %v", err)
	}
	expenses, _ = repo.ListExpenses(ctx)
	if len(expenses) != 3 {
		t.Fatalf("re-apply duplicated instances: got %d", len(expenses))
	}
}

func TestRepositoryCursorNeverMovesBackwards(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tpl := testTemplate()
	if err := repo.CreateExpense(ctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	ahead := tpl
	ahead.LastGeneratedDate = core.NewDate(2024, 6, 1)
	if err := repo.ApplyGeneration(ctx, nil, []core.Expense{ahead}); err != nil {
		t.Fatalf("apply generation: %v", err)
	}

	stale := tpl
	stale.LastGeneratedDate = core.NewDate(2024, 2, 1)
	if err := repo.ApplyGeneration(ctx, nil, []core.Expense{stale}); err != nil {
		t.Fatalf("apply stale generation: %v", err)
	}

	templates, _ := repo.ListTemplates(ctx)
	if got := templates[0].LastGeneratedDate.String(); got != "2024-06-01" {
		t.Errorf("cursor regressed to %s", got)
	}
}

func TestRepositoryDetach(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tpl := testTemplate()
	if err := repo.CreateExpense(ctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	inst := recur.Materialize(tpl, core.NewDate(2024, 2, 1))
	sibling := recur.Materialize(tpl, core.NewDate(2024, 1, 1))
	for _, e := range []core.Expense{inst, sibling} {
		if err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("create instance: %v", err)
		}
	}

	detached, templateID, err := recur.Detach(inst, tpl)
	if err != nil {
		t.Fatalf("detach: %v", err)
	}
	if err := repo.Detach(ctx, detached, templateID); err != nil {
		t.Fatalf("persist detach: %v", err)
	}

	templates, _ := repo.ListTemplates(ctx)
	if len(templates) != 0 {
		t.Fatalf("template survived detach: %+v", templates)
	}

	stored, err := repo.GetExpense(ctx, inst.ID)
	if err != nil {
		t.Fatalf("get detached expense: %v", err)
	}
	if stored.RecurringExpenseID != "" {
		t.Error("detached expense still references the template")
	}

	// The sibling keeps its back-reference even though the template is gone.
	sib, err := repo.GetExpense(ctx, sibling.ID)
	if err != nil {
		t.Fatalf("get sibling: %v", err)
	}
	if sib.RecurringExpenseID != tpl.ID {
		t.Error("sibling lost its template reference")
	}
}

func TestRepositoryExportBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, e := range []core.Expense{
		{ID: "e1", Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 100}, Category: "A", Frequency: core.Single},
		{ID: "e2", Date: core.NewDate(2024, 1, 2), Amount: core.Money{Cents: 200}, Category: "B", Frequency: core.Single},
	} {
		if err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	pending, err := repo.PendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("pending export: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	if err := repo.MarkExported(ctx, "e1"); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	if err := repo.MarkExportError(ctx, "e2"); err != nil {
		t.Fatalf("mark export error: %v", err)
	}

	pending, _ = repo.PendingExport(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending after bookkeeping, got %d", len(pending))
	}
}

func TestRepositoryNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetExpense(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetExpense() error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteExpense(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteExpense() error = %v, want ErrNotFound", err)
	}
	if err := repo.UpdateTemplate(ctx, testTemplate()); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTemplate() error = %v, want ErrNotFound", err)
	}
}
