package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// ApprovalService runs the request/accept/reject/cancel workflow that
// gates shared mutations behind a second member's review.
//
// The correctness property everything here leans on: for any approval
// id, at most one of accept/reject/cancel ever succeeds. The PENDING
// guard is a conditional UPDATE whose affected-row count is checked
// inside the same transaction that applies the mutation, so two
// racing reviewers cannot both win, and a failed mutation rolls the
// status flip back.
type ApprovalService struct {
	repo   *storage.Repository
	events *amqp.Client
	caches *Caches
	clock  Clock
}

func NewApprovalService(repo *storage.Repository, events *amqp.Client, caches *Caches, clock Clock) *ApprovalService {
	return &ApprovalService{repo: repo, events: events, caches: caches, clock: clock}
}

// RequestCreate files a CREATE approval proposing a new shared
// expense.
func (s *ApprovalService) RequestCreate(ctx context.Context, userID int64, draft core.ExpenseDraft) (core.Approval, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.Approval{}, err
	}

	candidate := draft.Expense(member.HouseholdID, userID, s.clock.Now())
	if err := candidate.Validate(); err != nil {
		return core.Approval{}, &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}

	return s.file(ctx, core.Approval{
		HouseholdID:   member.HouseholdID,
		Action:        core.ActionCreate,
		RequestedByID: userID,
		Proposed:      core.ProposedChange{Create: &draft},
	})
}

// RequestUpdate files an UPDATE approval against an existing expense.
func (s *ApprovalService) RequestUpdate(ctx context.Context, userID, expenseID int64, patch core.ExpensePatch) (core.Approval, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.Approval{}, err
	}
	if _, err := s.repo.GetExpense(ctx, member.HouseholdID, expenseID); err != nil {
		return core.Approval{}, err
	}

	return s.file(ctx, core.Approval{
		HouseholdID:   member.HouseholdID,
		Action:        core.ActionUpdate,
		RequestedByID: userID,
		ExpenseID:     &expenseID,
		Proposed:      core.ProposedChange{Update: &patch},
	})
}

// RequestDelete files a DELETE approval against an existing expense.
func (s *ApprovalService) RequestDelete(ctx context.Context, userID, expenseID int64) (core.Approval, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.Approval{}, err
	}
	if _, err := s.repo.GetExpense(ctx, member.HouseholdID, expenseID); err != nil {
		return core.Approval{}, err
	}

	return s.file(ctx, core.Approval{
		HouseholdID:   member.HouseholdID,
		Action:        core.ActionDelete,
		RequestedByID: userID,
		ExpenseID:     &expenseID,
	})
}

func (s *ApprovalService) file(ctx context.Context, a core.Approval) (core.Approval, error) {
	if err := a.Proposed.Validate(a.Action); err != nil {
		return core.Approval{}, &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}
	a.Status = core.StatusPending
	a.CreatedAt = s.clock.Now()
	if err := s.repo.InsertApproval(ctx, &a); err != nil {
		return core.Approval{}, err
	}

	slog.InfoContext(ctx, "Approval requested",
		"approval_id", a.ID,
		"household_id", a.HouseholdID,
		"action", a.Action,
		"requested_by", a.RequestedByID)

	return a, nil
}

// Accept transitions a PENDING approval to ACCEPTED and applies its
// mutation, all inside one transaction. A reviewer cannot accept their
// own request. Racing reviewers lose with core.ErrAlreadyReviewed.
func (s *ApprovalService) Accept(ctx context.Context, reviewerID, approvalID int64, message string) (core.Approval, error) {
	member, err := s.repo.ResolveMembership(ctx, reviewerID)
	if err != nil {
		return core.Approval{}, err
	}

	a, err := s.repo.GetApproval(ctx, member.HouseholdID, approvalID)
	if err != nil {
		return core.Approval{}, err
	}
	if a.RequestedByID == reviewerID {
		return core.Approval{}, core.ErrSelfReview
	}
	if a.Status.Terminal() {
		return core.Approval{}, core.ErrAlreadyReviewed
	}

	now := s.clock.Now()
	err = s.repo.WithTx(ctx, func(q storage.DBTX) error {
		// The status guard and the mutation commit or roll back
		// together; the guard alone decides who wins a race.
		if err := s.repo.TransitionApproval(ctx, q, member.HouseholdID, approvalID, core.StatusAccepted, reviewerID, message, now); err != nil {
			return err
		}
		return s.apply(ctx, q, &a, now)
	})
	if err != nil {
		return core.Approval{}, err
	}

	a.Status = core.StatusAccepted
	a.ReviewedByID = &reviewerID
	a.Message = message
	a.ReviewedAt = &now

	slog.InfoContext(ctx, "Approval accepted",
		"approval_id", a.ID,
		"action", a.Action,
		"reviewed_by", reviewerID)

	s.caches.InvalidatePeriod(member.HouseholdID, core.PeriodOf(now))
	s.publishResolved(ctx, a, reviewerID)

	return a, nil
}

// apply performs the accepted action's effect using the transaction q.
func (s *ApprovalService) apply(ctx context.Context, q storage.DBTX, a *core.Approval, now time.Time) error {
	switch a.Action {
	case core.ActionCreate:
		e := a.Proposed.Create.Expense(a.HouseholdID, a.RequestedByID, now)
		if err := e.Validate(); err != nil {
			return &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
		}
		return s.repo.InsertExpense(ctx, q, &e)

	case core.ActionUpdate:
		e, err := s.repo.GetExpenseTx(ctx, q, a.HouseholdID, *a.ExpenseID)
		if err != nil {
			return err
		}
		a.Proposed.Update.Apply(&e)
		if err := e.Validate(); err != nil {
			return &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
		}
		return s.repo.UpdateExpense(ctx, q, e)

	case core.ActionDelete:
		return s.repo.SoftDeleteExpense(ctx, q, a.HouseholdID, *a.ExpenseID, now)

	case core.ActionWithdrawSavings:
		w := a.Proposed.Withdraw
		p := core.Period{Month: w.Month, Year: w.Year}
		// The balance may have moved since the request was filed; it
		// is authoritative only here, inside the accept transaction.
		saving, err := s.repo.GetSavingTx(ctx, q, a.RequestedByID, p, true)
		if err != nil {
			return err
		}
		if saving.Amount.Cents < w.AmountCents {
			return core.ErrInsufficientSavings
		}
		return s.repo.UpsertSavingDelta(ctx, q, a.RequestedByID, p, true, -w.AmountCents, saving.ReducesFromSalary)

	default:
		return fmt.Errorf("%w: %s", core.ErrUnknownAction, a.Action)
	}
}

// Reject transitions a PENDING approval to REJECTED. Same guards as
// Accept, but with no side effects a plain conditional update is
// enough.
func (s *ApprovalService) Reject(ctx context.Context, reviewerID, approvalID int64, message string) (core.Approval, error) {
	member, err := s.repo.ResolveMembership(ctx, reviewerID)
	if err != nil {
		return core.Approval{}, err
	}

	a, err := s.repo.GetApproval(ctx, member.HouseholdID, approvalID)
	if err != nil {
		return core.Approval{}, err
	}
	if a.RequestedByID == reviewerID {
		return core.Approval{}, core.ErrSelfReview
	}

	now := s.clock.Now()
	if err := s.repo.TransitionApproval(ctx, s.repo.DB(), member.HouseholdID, approvalID, core.StatusRejected, reviewerID, message, now); err != nil {
		return core.Approval{}, err
	}

	a.Status = core.StatusRejected
	a.ReviewedByID = &reviewerID
	a.Message = message
	a.ReviewedAt = &now

	slog.InfoContext(ctx, "Approval rejected",
		"approval_id", a.ID,
		"action", a.Action,
		"reviewed_by", reviewerID)

	s.publishResolved(ctx, a, reviewerID)
	return a, nil
}

// Cancel lets the original requester withdraw their own PENDING
// request. Reviewers cannot cancel on someone else's behalf.
func (s *ApprovalService) Cancel(ctx context.Context, requesterID, approvalID int64) (core.Approval, error) {
	member, err := s.repo.ResolveMembership(ctx, requesterID)
	if err != nil {
		return core.Approval{}, err
	}

	a, err := s.repo.GetApproval(ctx, member.HouseholdID, approvalID)
	if err != nil {
		return core.Approval{}, err
	}
	if a.RequestedByID != requesterID {
		return core.Approval{}, core.ErrNotRequester
	}

	now := s.clock.Now()
	if err := s.repo.TransitionApproval(ctx, s.repo.DB(), member.HouseholdID, approvalID, core.StatusCancelled, requesterID, "", now); err != nil {
		return core.Approval{}, err
	}

	a.Status = core.StatusCancelled
	a.ReviewedByID = &requesterID
	a.ReviewedAt = &now

	slog.InfoContext(ctx, "Approval cancelled", "approval_id", a.ID, "requested_by", requesterID)

	s.publishResolved(ctx, a, requesterID)
	return a, nil
}

// ListPending returns the household's open requests. With excludeOwn
// set, the caller's own requests are filtered out, which is what the
// notification badge wants.
func (s *ApprovalService) ListPending(ctx context.Context, userID int64, excludeOwn bool) ([]core.Approval, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.ListPendingApprovals(ctx, member.HouseholdID)
	if err != nil {
		return nil, err
	}
	if !excludeOwn {
		return pending, nil
	}
	filtered := pending[:0]
	for _, a := range pending {
		if a.RequestedByID != userID {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// ListHistory returns resolved approvals, optionally filtered to one
// terminal status.
func (s *ApprovalService) ListHistory(ctx context.Context, userID int64, status *core.ApprovalStatus) ([]core.Approval, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListApprovalHistory(ctx, member.HouseholdID, status)
}

func (s *ApprovalService) publishResolved(ctx context.Context, a core.Approval, actorID int64) {
	publishEvent(ctx, s.events, amqp.KindApprovalResolved, a.HouseholdID, amqp.ApprovalResolved{
		ApprovalID:   a.ID,
		Action:       string(a.Action),
		Status:       string(a.Status),
		ReviewedByID: actorID,
	})
}
