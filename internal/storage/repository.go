package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"denaro/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("expense not found")

// SQLiteRepository persists the two collections the engine consumes: the
// expense list and the recurring templates. Both live in one table with a
// frequency discriminator; a partial unique index enforces the one
// instance per (template, date) invariant at the store level as well.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const expenseColumns = `id, date, amount_cents, category, account, note,
	frequency, recurring_expense_id, recurrence, recurrence_interval,
	recurrence_end_type, recurrence_end_date, recurrence_count, last_generated_date`

// ListExpenses returns the whole expense collection (single records only,
// both manual ones and generated occurrences), newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE frequency = ? ORDER BY date DESC, created_at DESC`, core.Single)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

// ListTemplates returns the whole recurring-template collection.
func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE frequency = ? ORDER BY created_at`, core.Recurring)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return &e, nil
}

// CreateExpense inserts a record of either kind.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	if _, err := r.db.ExecContext(ctx, insertSQL, insertArgs(e)...); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"date", e.Date.String(),
		"amount_cents", e.Amount.Cents,
		"frequency", e.Frequency)
	return nil
}

// UpdateTemplate replaces a template's editable fields. The cursor is only
// advanced through ApplyGeneration.
func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, t core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, amount_cents = ?, category = ?, account = ?,
		 note = ?, recurrence = ?, recurrence_interval = ?, recurrence_end_type = ?,
		 recurrence_end_date = ?, recurrence_count = ?
		 WHERE id = ? AND frequency = ?`,
		t.Date.String(), t.Amount.Cents, t.Category, t.Account, t.Note,
		string(t.Recurrence), t.Interval(), string(t.EndTypeOrDefault()),
		nullDate(t.RecurrenceEndDate), t.RecurrenceCount,
		t.ID, core.Recurring)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyGeneration persists one generation pass atomically: the new
// instances are appended and the advanced cursors merged in. Instances
// that raced in since the snapshot are ignored by the unique index, and
// the cursor update never moves backwards, which keeps re-applied passes
// harmless.
func (r *SQLiteRepository) ApplyGeneration(ctx context.Context, instances, updatedTemplates []core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin generation tx: %w", err)
	}
	defer tx.Rollback()

	for _, inst := range instances {
		if _, err := tx.ExecContext(ctx, insertIgnoreSQL, insertArgs(inst)...); err != nil {
			return fmt.Errorf("insert instance %s: %w", inst.ID, err)
		}
	}

	for _, t := range updatedTemplates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE expenses SET last_generated_date = ?
			 WHERE id = ? AND frequency = ?
			 AND (last_generated_date IS NULL OR last_generated_date <= ?)`,
			t.LastGeneratedDate.String(), t.ID, core.Recurring,
			t.LastGeneratedDate.String()); err != nil {
			return fmt.Errorf("advance cursor for %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit generation tx: %w", err)
	}
	return nil
}

// Detach rewrites a generated instance as a standalone single expense and
// deletes its template in the same transaction.
func (r *SQLiteRepository) Detach(ctx context.Context, detached core.Expense, templateID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin detach tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET date = ?, amount_cents = ?, category = ?, account = ?,
		 note = ?, frequency = ?, recurring_expense_id = NULL, recurrence = NULL,
		 recurrence_interval = NULL, recurrence_end_type = NULL,
		 recurrence_end_date = NULL, recurrence_count = NULL, last_generated_date = NULL
		 WHERE id = ?`,
		detached.Date.String(), detached.Amount.Cents, detached.Category,
		detached.Account, detached.Note, core.Single, detached.ID)
	if err != nil {
		return fmt.Errorf("rewrite detached instance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND frequency = ?`,
		templateID, core.Recurring); err != nil {
		return fmt.Errorf("delete template %s: %w", templateID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit detach tx: %w", err)
	}

	slog.InfoContext(ctx, "Instance detached from template",
		"expense_id", detached.ID,
		"template_id", templateID)
	return nil
}

// PendingExport returns single expenses not yet exported, oldest first.
// This backs the export worker's recovery path for lost messages.
func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE frequency = ? AND exported_at IS NULL AND export_error = 0
		 ORDER BY created_at LIMIT ?`, core.Single, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET exported_at = CURRENT_TIMESTAMP, export_error = 0 WHERE id = ?`,
		id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with export error", "id", id)
	return nil
}

const insertSQL = `INSERT INTO expenses (` + expenseColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertIgnoreSQL = `INSERT OR IGNORE INTO expenses (` + expenseColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(e core.Expense) []any {
	return []any{
		e.ID, e.Date.String(), e.Amount.Cents, e.Category, e.Account, e.Note,
		string(e.Frequency), nullString(e.RecurringExpenseID),
		nullString(string(e.Recurrence)), nullInt(e.RecurrenceInterval),
		nullString(string(e.RecurrenceEndType)), nullDate(e.RecurrenceEndDate),
		nullInt(e.RecurrenceCount), nullDate(e.LastGeneratedDate),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                          core.Expense
		date                       string
		recurringID, unit, endType sql.NullString
		endDate, lastGenerated     sql.NullString
		interval, count            sql.NullInt64
	)
	err := row.Scan(&e.ID, &date, &e.Amount.Cents, &e.Category, &e.Account, &e.Note,
		&e.Frequency, &recurringID, &unit, &interval, &endType, &endDate, &count,
		&lastGenerated)
	if err != nil {
		return core.Expense{}, err
	}

	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	e.RecurringExpenseID = recurringID.String
	e.Recurrence = core.RecurrenceUnit(unit.String)
	e.RecurrenceInterval = int(interval.Int64)
	e.RecurrenceEndType = core.EndType(endType.String)
	e.RecurrenceCount = int(count.Int64)
	if endDate.Valid && endDate.String != "" {
		if e.RecurrenceEndDate, err = core.ParseDate(endDate.String); err != nil {
			return core.Expense{}, fmt.Errorf("stored end date %q: %w", endDate.String, err)
		}
	}
	if lastGenerated.Valid && lastGenerated.String != "" {
		if e.LastGeneratedDate, err = core.ParseDate(lastGenerated.String); err != nil {
			return core.Expense{}, fmt.Errorf("stored cursor %q: %w", lastGenerated.String, err)
		}
	}
	return e, nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
