package worker

import (
	"context"
	"errors"
	"testing"

	"denaro/internal/amqp"
	"denaro/internal/core"
	"denaro/internal/sheets/memory"
	"denaro/internal/storage"
)

type fakeExportStore struct {
	expenses    map[string]core.Expense
	exportedIDs []string
	erroredIDs  []string
}

func newFakeExportStore(expenses ...core.Expense) *fakeExportStore {
	s := &fakeExportStore{expenses: make(map[string]core.Expense)}
	for _, e := range expenses {
		s.expenses[e.ID] = e
	}
	return s
}

func (s *fakeExportStore) GetExpense(_ context.Context, id string) (*core.Expense, error) {
	e, ok := s.expenses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &e, nil
}

func (s *fakeExportStore) PendingExport(_ context.Context, limit int) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range s.expenses {
		if len(out) >= limit {
			break
		}
		if !containsID(s.exportedIDs, e.ID) && !containsID(s.erroredIDs, e.ID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeExportStore) MarkExported(_ context.Context, id string) error {
	s.exportedIDs = append(s.exportedIDs, id)
	return nil
}

func (s *fakeExportStore) MarkExportError(_ context.Context, id string) error {
	s.erroredIDs = append(s.erroredIDs, id)
	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type failingExporter struct{}

func (failingExporter) Append(context.Context, core.Expense) (string, error) {
	return "", errors.New("sheet unavailable")
}

func expense(id string) core.Expense {
	return core.Expense{
		ID:        id,
		Date:      core.NewDate(2024, 5, 10),
		Amount:    core.Money{Cents: 1500},
		Category:  "Spesa",
		Frequency: core.Single,
	}
}

func TestHandleExportMessage(t *testing.T) {
	store := newFakeExportStore(expense("exp-1"))
	exporter := memory.New()
	w := NewExportWorker(store, exporter, 10)

	msg := amqp.NewExpenseExportMessage("exp-1")
	if err := w.HandleExportMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleExportMessage() error = %v", err)
	}

	if items := exporter.Items(); len(items) != 1 || items[0].ID != "exp-1" {
		t.Errorf("exported items = %+v", items)
	}
	if !containsID(store.exportedIDs, "exp-1") {
		t.Error("expense not marked as exported")
	}
}

func TestHandleExportMessageMissingExpense(t *testing.T) {
	w := NewExportWorker(newFakeExportStore(), memory.New(), 10)

	err := w.HandleExportMessage(context.Background(), amqp.NewExpenseExportMessage("ghost"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("HandleExportMessage() error = %v, want ErrNotFound", err)
	}
}

func TestHandleExportMessageMarksError(t *testing.T) {
	store := newFakeExportStore(expense("exp-1"))
	w := NewExportWorker(store, failingExporter{}, 10)

	if err := w.HandleExportMessage(context.Background(), amqp.NewExpenseExportMessage("exp-1")); err == nil {
		t.Fatal("HandleExportMessage() should fail when the exporter fails")
	}
	if !containsID(store.erroredIDs, "exp-1") {
		t.Error("expense not marked with export error")
	}
}

func TestProcessPendingExpenses(t *testing.T) {
	store := newFakeExportStore(expense("exp-1"), expense("exp-2"))
	exporter := memory.New()
	w := NewExportWorker(store, exporter, 10)

	if err := w.ProcessPendingExpenses(context.Background()); err != nil {
		t.Fatalf("ProcessPendingExpenses() error = %v", err)
	}
	if len(exporter.Items()) != 2 {
		t.Errorf("exported %d expenses, want 2", len(exporter.Items()))
	}

	// Nothing left pending on the second pass.
	if err := w.ProcessPendingExpenses(context.Background()); err != nil {
		t.Fatalf("second ProcessPendingExpenses() error = %v", err)
	}
	if len(exporter.Items()) != 2 {
		t.Errorf("second pass re-exported expenses: %d items", len(exporter.Items()))
	}
}

func TestStartupExportCheck(t *testing.T) {
	store := newFakeExportStore(expense("exp-1"))
	exporter := memory.New()
	w := NewExportWorker(store, exporter, 10)

	if err := w.StartupExportCheck(context.Background()); err != nil {
		t.Fatalf("StartupExportCheck() error = %v", err)
	}
	if len(exporter.Items()) != 1 {
		t.Errorf("exported %d expenses, want 1", len(exporter.Items()))
	}
}
