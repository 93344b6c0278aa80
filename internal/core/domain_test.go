package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-31")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.January || d.Day() != 31 {
		t.Errorf("parsed %v", d)
	}

	for _, bad := range []string{"", "31/01/2024", "2024-13-01", "yesterday"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) err = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestDateString(t *testing.T) {
	if got := NewDate(2024, 3, 2).String(); got != "2024-03-02" {
		t.Errorf("String() = %q", got)
	}
	if got := (Date{}).String(); got != "" {
		t.Errorf("zero date String() = %q, want empty", got)
	}
}

func TestDateAddDateRollsOver(t *testing.T) {
	got := NewDate(2024, 1, 31).AddDate(0, 1, 0)
	if !got.Equal(NewDate(2024, 3, 2)) {
		t.Errorf("2024-01-31 + 1 month = %s, want 2024-03-02", got)
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2024, 6, 15, 23, 45, 0, 0, time.Local)
	if got := Today(now); !got.Equal(NewDate(2024, 6, 15)) {
		t.Errorf("Today() = %s", got)
	}
}

func validTemplate() Expense {
	return Expense{
		ID:         "tpl-1",
		Date:       NewDate(2024, 1, 1),
		Amount:     Money{Cents: 80000},
		Category:   "Casa",
		Frequency:  Recurring,
		Recurrence: Monthly,
	}
}

func TestExpenseValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Expense)
		wantErr error
	}{
		{"valid template", func(e *Expense) {}, nil},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"zero amount", func(e *Expense) { e.Amount.Cents = 0 }, ErrInvalidAmount},
		{"blank category", func(e *Expense) { e.Category = "   " }, ErrEmptyCategory},
		{"bad unit", func(e *Expense) { e.Recurrence = "fortnightly" }, ErrInvalidUnit},
		{"negative interval", func(e *Expense) { e.RecurrenceInterval = -1 }, ErrInvalidInterval},
		{"bad end type", func(e *Expense) { e.RecurrenceEndType = "never" }, ErrInvalidEndType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validTemplate()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpenseValidateEndDate(t *testing.T) {
	e := validTemplate()
	e.RecurrenceEndType = EndDate
	if err := e.Validate(); err == nil || !strings.Contains(err.Error(), "missing recurrence end date") {
		t.Errorf("missing end date err = %v", err)
	}

	e.RecurrenceEndDate = NewDate(2023, 12, 1)
	if err := e.Validate(); err == nil || !strings.Contains(err.Error(), "before start date") {
		t.Errorf("end before start err = %v", err)
	}

	e.RecurrenceEndDate = NewDate(2024, 6, 1)
	if err := e.Validate(); err != nil {
		t.Errorf("valid end date err = %v", err)
	}
}

func TestExpenseValidateSingle(t *testing.T) {
	e := Expense{
		Date:      NewDate(2024, 3, 15),
		Amount:    Money{Cents: 1000},
		Category:  "Spesa",
		Frequency: Single,
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	e.Note = strings.Repeat("x", 201)
	if err := e.Validate(); err == nil {
		t.Error("expected note length error")
	}
}

func TestTemplateCannotReferenceTemplate(t *testing.T) {
	e := validTemplate()
	e.RecurringExpenseID = "tpl-0"
	if err := e.Validate(); err == nil {
		t.Error("expected error for template with back-reference")
	}
}

func TestIntervalDefaults(t *testing.T) {
	e := Expense{}
	if got := e.Interval(); got != 1 {
		t.Errorf("Interval() = %d, want 1", got)
	}
	e.RecurrenceInterval = 3
	if got := e.Interval(); got != 3 {
		t.Errorf("Interval() = %d, want 3", got)
	}
}

func TestEndTypeOrDefault(t *testing.T) {
	e := Expense{}
	if got := e.EndTypeOrDefault(); got != EndForever {
		t.Errorf("EndTypeOrDefault() = %q, want forever", got)
	}
	e.RecurrenceEndType = EndCount
	if got := e.EndTypeOrDefault(); got != EndCount {
		t.Errorf("EndTypeOrDefault() = %q, want count", got)
	}
}
