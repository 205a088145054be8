package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bilancio/internal/core"
)

// CreateHousehold inserts a household and returns its id.
func (r *Repository) CreateHousehold(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO households (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("create household: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("household id: %w", err)
	}
	return id, nil
}

// AddMember inserts a user into a household.
func (r *Repository) AddMember(ctx context.Context, householdID int64, name, role string, defaultSalaryCents int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (household_id, name, role, default_salary_cents) VALUES (?, ?, ?, ?)`,
		householdID, name, role, defaultSalaryCents)
	if err != nil {
		return 0, fmt.Errorf("add member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("member id: %w", err)
	}
	return id, nil
}

// ResolveMembership returns the member record for a user, or
// core.ErrNoHousehold when the user does not belong to any household.
func (r *Repository) ResolveMembership(ctx context.Context, userID int64) (core.Member, error) {
	var m core.Member
	var householdID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, household_id, name, role, default_salary_cents FROM users WHERE id = ?`,
		userID).Scan(&m.ID, &householdID, &m.Name, &m.Role, &m.DefaultSalary.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, core.ErrNoHousehold
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("resolve membership: %w", err)
	}
	if !householdID.Valid {
		return core.Member{}, core.ErrNoHousehold
	}
	m.HouseholdID = householdID.Int64
	return m, nil
}

// ListMembers returns all members of a household in insertion order.
func (r *Repository) ListMembers(ctx context.Context, householdID int64) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, household_id, name, role, default_salary_cents FROM users WHERE household_id = ? ORDER BY id`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.Name, &m.Role, &m.DefaultSalary.Cents); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SetSalary records the salary for a user and period, overwriting any
// previous value.
func (r *Repository) SetSalary(ctx context.Context, userID int64, p core.Period, amountCents int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO salaries (user_id, month, year, amount_cents) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, month, year) DO UPDATE SET amount_cents = excluded.amount_cents`,
		userID, p.Month, p.Year, amountCents)
	if err != nil {
		return fmt.Errorf("set salary: %w", err)
	}
	return nil
}

// SalariesForPeriod returns user id -> salary cents for every member
// of the household who has a salary record in the period.
func (r *Repository) SalariesForPeriod(ctx context.Context, householdID int64, p core.Period) (map[int64]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.user_id, s.amount_cents
		 FROM salaries s JOIN users u ON u.id = s.user_id
		 WHERE u.household_id = ? AND s.month = ? AND s.year = ?`,
		householdID, p.Month, p.Year)
	if err != nil {
		return nil, fmt.Errorf("salaries for period: %w", err)
	}
	defer rows.Close()

	salaries := make(map[int64]int64)
	for rows.Next() {
		var userID, cents int64
		if err := rows.Scan(&userID, &cents); err != nil {
			return nil, fmt.Errorf("scan salary: %w", err)
		}
		salaries[userID] = cents
	}
	return salaries, rows.Err()
}
