package memory

import (
	"context"
	"testing"

	"denaro/internal/core"
)

func TestAppend(t *testing.T) {
	s := New()

	ref, err := s.Append(context.Background(), core.Expense{
		ID:        "exp-1",
		Date:      core.NewDate(2024, 5, 10),
		Amount:    core.Money{Cents: 1500},
		Category:  "Spesa",
		Frequency: core.Single,
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("Append() ref = %q, want mem:1", ref)
	}
	if items := s.Items(); len(items) != 1 || items[0].ID != "exp-1" {
		t.Errorf("Items() = %+v", items)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()

	if _, err := s.Append(context.Background(), core.Expense{}); err == nil {
		t.Error("Append() should reject an invalid expense")
	}
	if len(s.Items()) != 0 {
		t.Error("invalid expense was stored")
	}
}
