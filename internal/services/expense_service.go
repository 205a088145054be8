// Package services orchestrates the budgeting engine: each service
// resolves the caller's household membership, reads and writes through
// the storage layer and emits events on the household feed.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// ExpenseService handles the direct (non-approval) expense paths:
// creation, creator-only mutation, paid markers and per-period skips.
type ExpenseService struct {
	repo   *storage.Repository
	events *amqp.Client
	caches *Caches
	clock  Clock
}

func NewExpenseService(repo *storage.Repository, events *amqp.Client, caches *Caches, clock Clock) *ExpenseService {
	return &ExpenseService{repo: repo, events: events, caches: caches, clock: clock}
}

// Create stores a new expense owned by the caller. Personal and shared
// expenses can both be created directly; shared ones proposed by
// someone else go through the approval path instead.
func (s *ExpenseService) Create(ctx context.Context, userID int64, e core.Expense) (core.Expense, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.Expense{}, err
	}

	e.HouseholdID = member.HouseholdID
	e.CreatedByID = userID
	e.CreatedAt = s.clock.Now()
	e.DeletedAt = nil
	if err := e.Validate(); err != nil {
		return core.Expense{}, &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}

	if err := s.repo.InsertExpense(ctx, s.repo.DB(), &e); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", e.ID,
		"household_id", e.HouseholdID,
		"type", e.Type,
		"amount_cents", e.Amount.Cents)

	s.caches.InvalidatePeriod(e.HouseholdID, core.PeriodOf(s.clock.Now()))
	publishEvent(ctx, s.events, amqp.KindExpenseChanged, e.HouseholdID,
		amqp.ExpenseChanged{ExpenseID: e.ID, Change: "created"})

	return e, nil
}

// Update applies a patch to an expense. Only the creator may mutate an
// expense directly; everyone else must go through an UPDATE approval.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID int64, patch core.ExpensePatch) (core.Expense, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.Expense{}, err
	}

	e, err := s.repo.GetExpense(ctx, member.HouseholdID, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	if e.CreatedByID != userID {
		return core.Expense{}, core.ErrNotCreator
	}

	patch.Apply(&e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}

	if err := s.repo.UpdateExpense(ctx, s.repo.DB(), e); err != nil {
		return core.Expense{}, err
	}

	s.caches.InvalidatePeriod(e.HouseholdID, core.PeriodOf(s.clock.Now()))
	publishEvent(ctx, s.events, amqp.KindExpenseChanged, e.HouseholdID,
		amqp.ExpenseChanged{ExpenseID: e.ID, Change: "updated"})

	return e, nil
}

// Delete soft-deletes an expense. Creator-only, like Update.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID int64) error {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return err
	}

	e, err := s.repo.GetExpense(ctx, member.HouseholdID, expenseID)
	if err != nil {
		return err
	}
	if e.CreatedByID != userID {
		return core.ErrNotCreator
	}

	if err := s.repo.SoftDeleteExpense(ctx, s.repo.DB(), member.HouseholdID, expenseID, s.clock.Now()); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", expenseID, "household_id", member.HouseholdID)

	s.caches.InvalidatePeriod(member.HouseholdID, core.PeriodOf(s.clock.Now()))
	publishEvent(ctx, s.events, amqp.KindExpenseChanged, member.HouseholdID,
		amqp.ExpenseChanged{ExpenseID: expenseID, Change: "deleted"})

	return nil
}

// List returns the caller's household expenses (soft-deleted excluded
// by the repository).
func (s *ExpenseService) List(ctx context.Context, userID int64) ([]core.Expense, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, member.HouseholdID)
}

// MarkPaid records whether the expense's installment for the period
// was paid. Any household member can mark payments.
func (s *ExpenseService) MarkPaid(ctx context.Context, userID, expenseID int64, p core.Period, paid bool) error {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}
	if _, err := s.repo.GetExpense(ctx, member.HouseholdID, expenseID); err != nil {
		return err
	}
	if err := s.repo.SetPaymentStatus(ctx, expenseID, p, paid); err != nil {
		return err
	}
	s.caches.InvalidatePeriod(member.HouseholdID, p)
	return nil
}

// Skip excludes (or re-includes) a recurring expense for one period.
func (s *ExpenseService) Skip(ctx context.Context, userID, expenseID int64, p core.Period, skipped bool) error {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}
	e, err := s.repo.GetExpense(ctx, member.HouseholdID, expenseID)
	if err != nil {
		return err
	}
	if !e.Skippable() {
		return &core.Error{Kind: core.KindInvalid, Msg: "only recurring expenses can be skipped"}
	}
	if err := s.repo.SetRecurringOverride(ctx, expenseID, p, skipped); err != nil {
		return err
	}
	s.caches.InvalidatePeriod(member.HouseholdID, p)
	return nil
}
