package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bilancio/internal/core"
)

// GetSettlement returns the settlement for (household, period), or
// nil when the period has not been settled.
func (r *Repository) GetSettlement(ctx context.Context, householdID int64, p core.Period) (*core.Settlement, error) {
	var s core.Settlement
	err := r.db.QueryRowContext(ctx,
		`SELECT id, household_id, month, year, amount_cents, paid_by_user_id, paid_to_user_id, paid_at
		 FROM settlements WHERE household_id = ? AND month = ? AND year = ?`,
		householdID, p.Month, p.Year).
		Scan(&s.ID, &s.HouseholdID, &s.Month, &s.Year, &s.Amount.Cents,
			&s.PaidByUserID, &s.PaidToUserID, &s.PaidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	return &s, nil
}

// InsertSettlement persists the immutable settlement snapshot. The
// unique (household, month, year) constraint turns a second settlement
// for the same period into core.ErrAlreadySettled.
func (r *Repository) InsertSettlement(ctx context.Context, s *core.Settlement) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO settlements (household_id, month, year, amount_cents, paid_by_user_id, paid_to_user_id, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.HouseholdID, s.Month, s.Year, s.Amount.Cents, s.PaidByUserID, s.PaidToUserID, s.PaidAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.ErrAlreadySettled
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("settlement id: %w", err)
	}
	s.ID = id
	return nil
}
