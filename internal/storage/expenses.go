package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

// Every expense read goes through this SELECT so the soft-delete
// filter cannot be forgotten at a call site.
const expenseColumns = `id, household_id, created_by_id, type, name, amount_cents, category,
	frequency, strategy, installment_frequency, installment_count, payment_month,
	month, year, paid_by_user_id, created_at`

const selectExpenses = `SELECT ` + expenseColumns + ` FROM expenses WHERE deleted_at IS NULL`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var paidBy sql.NullInt64
	err := row.Scan(&e.ID, &e.HouseholdID, &e.CreatedByID, &e.Type, &e.Name,
		&e.Amount.Cents, &e.Category, &e.Frequency, &e.Strategy, &e.Installments,
		&e.Count, &e.PaymentMonth, &e.Month, &e.Year, &paidBy, &e.CreatedAt)
	if err != nil {
		return core.Expense{}, err
	}
	if paidBy.Valid {
		e.PaidByUserID = &paidBy.Int64
	}
	return e, nil
}

// InsertExpense stores a new expense and fills in its id. It accepts a
// DBTX so accepted CREATE approvals can insert inside their
// transaction.
func (r *Repository) InsertExpense(ctx context.Context, q DBTX, e *core.Expense) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO expenses (household_id, created_by_id, type, name, amount_cents, category,
			frequency, strategy, installment_frequency, installment_count, payment_month,
			month, year, paid_by_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.HouseholdID, e.CreatedByID, e.Type, e.Name, e.Amount.Cents, e.Category,
		e.Frequency, e.Strategy, e.Installments, e.Count, e.PaymentMonth,
		e.Month, e.Year, nullableID(e.PaidByUserID), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("expense id: %w", err)
	}
	e.ID = id
	return nil
}

// GetExpense returns a live expense scoped to a household. A deleted
// expense, a missing one and one belonging to another household are
// indistinguishable to the caller.
func (r *Repository) GetExpense(ctx context.Context, householdID, id int64) (core.Expense, error) {
	return getExpense(ctx, r.db, householdID, id)
}

// GetExpenseTx is GetExpense inside an open transaction.
func (r *Repository) GetExpenseTx(ctx context.Context, q DBTX, householdID, id int64) (core.Expense, error) {
	return getExpense(ctx, q, householdID, id)
}

func getExpense(ctx context.Context, q DBTX, householdID, id int64) (core.Expense, error) {
	row := q.QueryRowContext(ctx, selectExpenses+` AND household_id = ? AND id = ?`, householdID, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListExpenses returns all live expenses of a household.
func (r *Repository) ListExpenses(ctx context.Context, householdID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx, selectExpenses+` AND household_id = ? ORDER BY id`, householdID)
}

// ListSharedExpenses returns the live shared expenses of a household.
func (r *Repository) ListSharedExpenses(ctx context.Context, householdID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		selectExpenses+` AND household_id = ? AND type = ? ORDER BY id`,
		householdID, core.ExpenseShared)
}

func (r *Repository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// UpdateExpense overwrites the mutable fields of a live expense.
func (r *Repository) UpdateExpense(ctx context.Context, q DBTX, e core.Expense) error {
	res, err := q.ExecContext(ctx,
		`UPDATE expenses SET name = ?, amount_cents = ?, category = ?, frequency = ?,
			strategy = ?, installment_frequency = ?, installment_count = ?,
			payment_month = ?, month = ?, year = ?, paid_by_user_id = ?
		 WHERE id = ? AND household_id = ? AND deleted_at IS NULL`,
		e.Name, e.Amount.Cents, e.Category, e.Frequency,
		e.Strategy, e.Installments, e.Count,
		e.PaymentMonth, e.Month, e.Year, nullableID(e.PaidByUserID),
		e.ID, e.HouseholdID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res, core.ErrExpenseNotFound)
}

// SoftDeleteExpense marks an expense deleted. The row stays for audit
// but disappears from every read path.
func (r *Repository) SoftDeleteExpense(ctx context.Context, q DBTX, householdID, id int64, at time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = ? WHERE id = ? AND household_id = ? AND deleted_at IS NULL`,
		at, id, householdID)
	if err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}
	return requireRow(res, core.ErrExpenseNotFound)
}

// SetPaymentStatus upserts the paid marker for (expense, period).
func (r *Repository) SetPaymentStatus(ctx context.Context, expenseID int64, p core.Period, paid bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_payment_status (expense_id, month, year, paid) VALUES (?, ?, ?, ?)
		 ON CONFLICT (expense_id, month, year) DO UPDATE SET paid = excluded.paid`,
		expenseID, p.Month, p.Year, paid)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	return nil
}

// PaidExpenseIDs returns the set of expense ids marked paid for the
// period.
func (r *Repository) PaidExpenseIDs(ctx context.Context, householdID int64, p core.Period) (map[int64]bool, error) {
	return r.queryIDSet(ctx,
		`SELECT s.expense_id
		 FROM expense_payment_status s JOIN expenses e ON e.id = s.expense_id
		 WHERE e.household_id = ? AND e.deleted_at IS NULL AND s.month = ? AND s.year = ? AND s.paid = 1`,
		householdID, p.Month, p.Year)
}

// SetRecurringOverride upserts the skip marker for (expense, period).
func (r *Repository) SetRecurringOverride(ctx context.Context, expenseID int64, p core.Period, skipped bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_overrides (expense_id, month, year, skipped) VALUES (?, ?, ?, ?)
		 ON CONFLICT (expense_id, month, year) DO UPDATE SET skipped = excluded.skipped`,
		expenseID, p.Month, p.Year, skipped)
	if err != nil {
		return fmt.Errorf("set recurring override: %w", err)
	}
	return nil
}

// SkippedExpenseIDs returns the set of expense ids skipped for the
// period.
func (r *Repository) SkippedExpenseIDs(ctx context.Context, householdID int64, p core.Period) (map[int64]bool, error) {
	return r.queryIDSet(ctx,
		`SELECT o.expense_id
		 FROM recurring_overrides o JOIN expenses e ON e.id = o.expense_id
		 WHERE e.household_id = ? AND e.deleted_at IS NULL AND o.month = ? AND o.year = ? AND o.skipped = 1`,
		householdID, p.Month, p.Year)
}

func (r *Repository) queryIDSet(ctx context.Context, query string, args ...any) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query id set: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}
