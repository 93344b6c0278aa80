package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Single    Frequency = "single"
	Recurring Frequency = "recurring"
)

const (
	Daily   RecurrenceUnit = "daily"
	Weekly  RecurrenceUnit = "weekly"
	Monthly RecurrenceUnit = "monthly"
	Yearly  RecurrenceUnit = "yearly"
)

const (
	EndForever EndType = "forever"
	EndCount   EndType = "count"
	EndDate    EndType = "date"
)

type (
	// Frequency discriminates templates from standalone expenses on the
	// shared record shape.
	Frequency string

	RecurrenceUnit string

	EndType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense represents either a one-off expense or a recurring template.
	// A record with Frequency == Recurring is a template and carries the
	// recurrence fields; a generated occurrence is always Single and points
	// back at its template via RecurringExpenseID.
	Expense struct {
		ID       string
		Date     Date
		Amount   Money
		Category string
		Account  string
		Note     string

		Frequency          Frequency
		RecurringExpenseID string

		// Template-only fields. Instances never carry these.
		Recurrence         RecurrenceUnit
		RecurrenceInterval int
		RecurrenceEndType  EndType
		RecurrenceEndDate  Date
		RecurrenceCount    int
		LastGeneratedDate  Date
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidUnit     = errors.New("invalid recurrence unit")
	ErrInvalidEndType  = errors.New("invalid recurrence end type")
	ErrInvalidInterval = errors.New("invalid recurrence interval")
)

const dateLayout = "2006-01-02"

// NewDate creates a calendar date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date string (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today truncates now to a calendar day at UTC midnight.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// String renders the date as an ISO day string, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDate returns the date shifted by the given years, months and days,
// with the standard library's rollover normalization.
func (d Date) AddDate(years, months, days int) Date {
	return Date{Time: d.Time.AddDate(years, months, days)}
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// Equal reports whether two dates fall on the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (f Frequency) Valid() bool {
	return f == Single || f == Recurring
}

func (u RecurrenceUnit) Valid() bool {
	switch u {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsTemplate reports whether the record is a recurring template.
func (e Expense) IsTemplate() bool {
	return e.Frequency == Recurring
}

// Interval returns the recurrence interval, defaulting to 1 when unset.
func (e Expense) Interval() int {
	if e.RecurrenceInterval < 1 {
		return 1
	}
	return e.RecurrenceInterval
}

// EndTypeOrDefault returns the termination rule, defaulting to forever.
func (e Expense) EndTypeOrDefault() EndType {
	if e.RecurrenceEndType == "" {
		return EndForever
	}
	return e.RecurrenceEndType
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	if !e.Frequency.Valid() {
		return errors.New("invalid frequency")
	}
	if e.Frequency == Recurring {
		return e.validateTemplate()
	}
	return nil
}

func (e Expense) validateTemplate() error {
	if e.RecurringExpenseID != "" {
		return errors.New("template cannot reference another template")
	}
	if !e.Recurrence.Valid() {
		return ErrInvalidUnit
	}
	if e.RecurrenceInterval < 0 {
		return ErrInvalidInterval
	}
	switch e.EndTypeOrDefault() {
	case EndForever, EndCount:
		// Valid; an absent count is treated as unlimited.
	case EndDate:
		if e.RecurrenceEndDate.IsZero() {
			return errors.New("missing recurrence end date")
		}
		if e.RecurrenceEndDate.Before(e.Date) {
			return errors.New("recurrence end date before start date")
		}
	default:
		return ErrInvalidEndType
	}
	return nil
}
