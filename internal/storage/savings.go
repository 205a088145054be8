package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bilancio/internal/core"
)

// GetSaving returns the balance for (user, period, shared flag), or
// core.ErrSavingNotFound when no record exists yet.
func (r *Repository) GetSaving(ctx context.Context, userID int64, p core.Period, isShared bool) (core.Saving, error) {
	return getSaving(ctx, r.db, userID, p, isShared)
}

// GetSavingTx is GetSaving inside an open transaction, used by the
// approval state machine to re-check the balance at acceptance time.
func (r *Repository) GetSavingTx(ctx context.Context, q DBTX, userID int64, p core.Period, isShared bool) (core.Saving, error) {
	return getSaving(ctx, q, userID, p, isShared)
}

func getSaving(ctx context.Context, q DBTX, userID int64, p core.Period, isShared bool) (core.Saving, error) {
	s := core.Saving{UserID: userID, Month: p.Month, Year: p.Year, IsShared: isShared}
	err := q.QueryRowContext(ctx,
		`SELECT amount_cents, reduces_from_salary FROM savings
		 WHERE user_id = ? AND month = ? AND year = ? AND is_shared = ?`,
		userID, p.Month, p.Year, isShared).Scan(&s.Amount.Cents, &s.ReducesFromSalary)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Saving{}, core.ErrSavingNotFound
	}
	if err != nil {
		return core.Saving{}, fmt.Errorf("get saving: %w", err)
	}
	return s, nil
}

// SavingsForPeriod returns all savings rows of a household's members
// for the period.
func (r *Repository) SavingsForPeriod(ctx context.Context, householdID int64, p core.Period) ([]core.Saving, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.user_id, s.month, s.year, s.is_shared, s.amount_cents, s.reduces_from_salary
		 FROM savings s JOIN users u ON u.id = s.user_id
		 WHERE u.household_id = ? AND s.month = ? AND s.year = ?
		 ORDER BY s.user_id, s.is_shared`,
		householdID, p.Month, p.Year)
	if err != nil {
		return nil, fmt.Errorf("savings for period: %w", err)
	}
	defer rows.Close()

	var savings []core.Saving
	for rows.Next() {
		var s core.Saving
		if err := rows.Scan(&s.UserID, &s.Month, &s.Year, &s.IsShared, &s.Amount.Cents, &s.ReducesFromSalary); err != nil {
			return nil, fmt.Errorf("scan saving: %w", err)
		}
		savings = append(savings, s)
	}
	return savings, rows.Err()
}

// UpsertSavingDelta is the create-or-increment write behind add and
// withdraw: the first write for a key creates the row, later ones
// adjust the balance. Negative deltas decrement; balance checks are
// the caller's job, inside the same transaction when approval-gated.
func (r *Repository) UpsertSavingDelta(ctx context.Context, q DBTX, userID int64, p core.Period, isShared bool, deltaCents int64, reducesFromSalary bool) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO savings (user_id, month, year, is_shared, amount_cents, reduces_from_salary)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, month, year, is_shared)
		 DO UPDATE SET amount_cents = amount_cents + excluded.amount_cents,
		               reduces_from_salary = excluded.reduces_from_salary`,
		userID, p.Month, p.Year, isShared, deltaCents, reducesFromSalary)
	if err != nil {
		return fmt.Errorf("upsert saving: %w", err)
	}
	return nil
}
