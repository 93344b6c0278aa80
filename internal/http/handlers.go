package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"denaro/internal/core"
)

// expenseJSON is the wire shape for both expenses and templates.
type expenseJSON struct {
	ID                 string `json:"id"`
	Date               string `json:"date"`
	AmountCents        int64  `json:"amount_cents"`
	Category           string `json:"category"`
	Account            string `json:"account,omitempty"`
	Note               string `json:"note,omitempty"`
	Frequency          string `json:"frequency"`
	RecurringExpenseID string `json:"recurring_expense_id,omitempty"`
	Recurrence         string `json:"recurrence,omitempty"`
	RecurrenceInterval int    `json:"recurrence_interval,omitempty"`
	RecurrenceEndType  string `json:"recurrence_end_type,omitempty"`
	RecurrenceEndDate  string `json:"recurrence_end_date,omitempty"`
	RecurrenceCount    int    `json:"recurrence_count,omitempty"`
	LastGeneratedDate  string `json:"last_generated_date,omitempty"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:                 e.ID,
		Date:               e.Date.String(),
		AmountCents:        e.Amount.Cents,
		Category:           e.Category,
		Account:            e.Account,
		Note:               e.Note,
		Frequency:          string(e.Frequency),
		RecurringExpenseID: e.RecurringExpenseID,
		Recurrence:         string(e.Recurrence),
		RecurrenceInterval: e.RecurrenceInterval,
		RecurrenceEndType:  string(e.RecurrenceEndType),
		RecurrenceEndDate:  e.RecurrenceEndDate.String(),
		RecurrenceCount:    e.RecurrenceCount,
		LastGeneratedDate:  e.LastGeneratedDate.String(),
	}
}

func toExpenseJSONList(expenses []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

// expenseRequest is the create/update payload. Amount is a decimal
// string ("12,34" or "12.34"); recurrence fields only matter for
// templates.
type expenseRequest struct {
	Date               string `json:"date"`
	Amount             string `json:"amount"`
	Category           string `json:"category"`
	Account            string `json:"account"`
	Note               string `json:"note"`
	Recurrence         string `json:"recurrence"`
	RecurrenceInterval int    `json:"recurrence_interval"`
	RecurrenceEndType  string `json:"recurrence_end_type"`
	RecurrenceEndDate  string `json:"recurrence_end_date"`
	RecurrenceCount    int    `json:"recurrence_count"`
}

func (p expenseRequest) toExpense(freq core.Frequency) (core.Expense, error) {
	date, err := core.ParseDate(p.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("date %q: %w", p.Date, err)
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(p.Amount))
	if err != nil {
		return core.Expense{}, fmt.Errorf("amount %q: %w", p.Amount, err)
	}

	e := core.Expense{
		Date:      date,
		Amount:    core.Money{Cents: cents},
		Category:  sanitizeInput(p.Category),
		Account:   sanitizeInput(p.Account),
		Note:      sanitizeInput(p.Note),
		Frequency: freq,
	}

	if freq == core.Recurring {
		e.Recurrence = core.RecurrenceUnit(strings.TrimSpace(p.Recurrence))
		e.RecurrenceInterval = p.RecurrenceInterval
		e.RecurrenceEndType = core.EndType(strings.TrimSpace(p.RecurrenceEndType))
		e.RecurrenceCount = p.RecurrenceCount
		if p.RecurrenceEndDate != "" {
			end, err := core.ParseDate(p.RecurrenceEndDate)
			if err != nil {
				return core.Expense{}, fmt.Errorf("recurrence end date %q: %w", p.RecurrenceEndDate, err)
			}
			e.RecurrenceEndDate = end
		}
	}

	return e, nil
}

func decodeRequest(r *http.Request) (expenseRequest, error) {
	var payload expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return expenseRequest{}, fmt.Errorf("decode request body: %w", err)
	}
	return payload, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.ListExpenses(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseJSONList(expenses))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeRequest(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	expense, err := payload.toExpense(core.Single)
	if err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	if err := expense.Validate(); err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	id, err := s.expenses.CreateExpense(r.Context(), expense)
	if err != nil {
		respondError(w, r, err)
		return
	}
	expense.ID = id

	s.invalidateSummary(expense.Date)
	respondJSON(w, http.StatusCreated, toExpenseJSON(expense))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.expenses.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseJSON(*expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	expense, err := s.expenses.GetExpense(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.expenses.DeleteExpense(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummary(expense.Date)
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDetachExpense(w http.ResponseWriter, r *http.Request) {
	detached, err := s.expenses.DetachInstance(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummary(detached.Date)
	respondJSON(w, http.StatusOK, toExpenseJSON(*detached))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("all") == "true"

	templates, err := s.expenses.ListTemplates(r.Context(), includeInactive)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseJSONList(templates))
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeRequest(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	template, err := payload.toExpense(core.Recurring)
	if err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	if err := template.Validate(); err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	id, err := s.expenses.CreateExpense(r.Context(), template)
	if err != nil {
		respondError(w, r, err)
		return
	}
	template.ID = id

	respondJSON(w, http.StatusCreated, toExpenseJSON(template))
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	template, err := s.expenses.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !template.IsTemplate() {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "template not found"})
		return
	}
	respondJSON(w, http.StatusOK, toExpenseJSON(*template))
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeRequest(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	template, err := payload.toExpense(core.Recurring)
	if err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	template.ID = r.PathValue("id")
	if err := template.Validate(); err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	if err := s.expenses.UpdateTemplate(r.Context(), template); err != nil {
		respondError(w, r, err)
		return
	}

	// Re-read so the response carries the stored cursor.
	stored, err := s.expenses.GetExpense(r.Context(), template.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseJSON(*stored))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	template, err := s.expenses.GetExpense(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !template.IsTemplate() {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "template not found"})
		return
	}

	// Already generated occurrences stay in place.
	if err := s.expenses.DeleteExpense(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	generated, err := s.generation.Run(r.Context(), core.Today(time.Now()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if generated > 0 {
		s.summaryCache.Purge()
	}
	respondJSON(w, http.StatusOK, map[string]int{"generated": generated})
}

type categoryTotal struct {
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
}

type monthSummary struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	TotalCents int64           `json:"total_cents"`
	ByCategory []categoryTotal `json:"by_category"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid month: %d", month)})
		return
	}

	key := s.summaryKey(year, month)
	if summary, found := s.summaryCache.Get(key); found {
		respondJSON(w, http.StatusOK, summary)
		return
	}

	expenses, err := s.expenses.ListExpenses(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	summary := summarizeMonth(expenses, year, month)
	s.summaryCache.Set(key, summary)
	respondJSON(w, http.StatusOK, summary)
}

func summarizeMonth(expenses []core.Expense, year, month int) monthSummary {
	byCat := map[string]int64{}
	var order []string
	var total int64

	for _, e := range expenses {
		if e.Date.Year() != year || int(e.Date.Month()) != month {
			continue
		}
		if _, seen := byCat[e.Category]; !seen {
			order = append(order, e.Category)
		}
		byCat[e.Category] += e.Amount.Cents
		total += e.Amount.Cents
	}

	summary := monthSummary{
		Year:       year,
		Month:      month,
		TotalCents: total,
		ByCategory: make([]categoryTotal, 0, len(order)),
	}
	for _, name := range order {
		summary.ByCategory = append(summary.ByCategory, categoryTotal{
			Category:    name,
			AmountCents: byCat[name],
		})
	}
	return summary
}

func (s *Server) invalidateSummary(d core.Date) {
	if d.IsZero() {
		return
	}
	s.summaryCache.Delete(s.summaryKey(d.Year(), int(d.Month())))
}

// parseYearMonth extracts year and month from query parameters,
// defaulting to the current month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}

	return year, month
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
