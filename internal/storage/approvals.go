package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

const approvalColumns = `id, household_id, action, status, requested_by_id, expense_id,
	proposed_data, reviewed_by_id, message, reviewed_at, created_at`

func scanApproval(row rowScanner) (core.Approval, error) {
	var a core.Approval
	var expenseID, reviewedBy sql.NullInt64
	var reviewedAt sql.NullTime
	var proposed []byte
	err := row.Scan(&a.ID, &a.HouseholdID, &a.Action, &a.Status, &a.RequestedByID,
		&expenseID, &proposed, &reviewedBy, &a.Message, &reviewedAt, &a.CreatedAt)
	if err != nil {
		return core.Approval{}, err
	}
	if expenseID.Valid {
		a.ExpenseID = &expenseID.Int64
	}
	if reviewedBy.Valid {
		a.ReviewedByID = &reviewedBy.Int64
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		a.ReviewedAt = &t
	}
	if err := json.Unmarshal(proposed, &a.Proposed); err != nil {
		return core.Approval{}, fmt.Errorf("decode proposed change: %w", err)
	}
	return a, nil
}

// InsertApproval stores a new PENDING approval and fills in its id.
func (r *Repository) InsertApproval(ctx context.Context, a *core.Approval) error {
	proposed, err := json.Marshal(a.Proposed)
	if err != nil {
		return fmt.Errorf("encode proposed change: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_approvals (household_id, action, status, requested_by_id, expense_id, proposed_data, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.HouseholdID, a.Action, a.Status, a.RequestedByID, nullableID(a.ExpenseID), proposed, a.Message, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("approval id: %w", err)
	}
	a.ID = id
	return nil
}

// GetApproval returns an approval scoped to a household. A missing
// approval and one belonging to another household look the same.
func (r *Repository) GetApproval(ctx context.Context, householdID, id int64) (core.Approval, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM expense_approvals WHERE household_id = ? AND id = ?`,
		householdID, id)
	a, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Approval{}, core.ErrApprovalNotFound
	}
	if err != nil {
		return core.Approval{}, fmt.Errorf("get approval: %w", err)
	}
	return a, nil
}

// ListPendingApprovals returns the household's PENDING approvals,
// oldest first.
func (r *Repository) ListPendingApprovals(ctx context.Context, householdID int64) ([]core.Approval, error) {
	return r.queryApprovals(ctx,
		`SELECT `+approvalColumns+` FROM expense_approvals
		 WHERE household_id = ? AND status = ? ORDER BY created_at, id`,
		householdID, core.StatusPending)
}

// ListApprovalHistory returns the household's resolved approvals,
// newest first, optionally filtered to one terminal status.
func (r *Repository) ListApprovalHistory(ctx context.Context, householdID int64, status *core.ApprovalStatus) ([]core.Approval, error) {
	if status != nil {
		return r.queryApprovals(ctx,
			`SELECT `+approvalColumns+` FROM expense_approvals
			 WHERE household_id = ? AND status = ? ORDER BY reviewed_at DESC, id DESC`,
			householdID, *status)
	}
	return r.queryApprovals(ctx,
		`SELECT `+approvalColumns+` FROM expense_approvals
		 WHERE household_id = ? AND status != ? ORDER BY reviewed_at DESC, id DESC`,
		householdID, core.StatusPending)
}

func (r *Repository) queryApprovals(ctx context.Context, query string, args ...any) ([]core.Approval, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	var approvals []core.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

// TransitionApproval flips a PENDING approval to a terminal status via
// a single conditional UPDATE. Zero affected rows means someone else
// resolved it first and the caller gets core.ErrAlreadyReviewed, no
// matter which terminal state won the race.
func (r *Repository) TransitionApproval(ctx context.Context, q DBTX, householdID, id int64, to core.ApprovalStatus, reviewerID int64, message string, at time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE expense_approvals
		 SET status = ?, reviewed_by_id = ?, message = ?, reviewed_at = ?
		 WHERE id = ? AND household_id = ? AND status = ?`,
		to, reviewerID, message, at, id, householdID, core.StatusPending)
	if err != nil {
		return fmt.Errorf("transition approval: %w", err)
	}
	return requireRow(res, core.ErrAlreadyReviewed)
}
