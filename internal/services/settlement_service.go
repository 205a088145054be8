package services

import (
	"context"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// SettlementService computes who owes whom for a period and records
// the transfer once it actually happens.
type SettlementService struct {
	repo   *storage.Repository
	events *amqp.Client
	caches *Caches
	clock  Clock
}

func NewSettlementService(repo *storage.Repository, events *amqp.Client, caches *Caches, clock Clock) *SettlementService {
	return &SettlementService{repo: repo, events: events, caches: caches, clock: clock}
}

// Compute returns the settlement picture for the caller's household in
// the given period, phrased from the caller's point of view.
func (s *SettlementService) Compute(ctx context.Context, userID int64, p core.Period) (core.SettlementResult, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.SettlementResult{}, err
	}
	if err := p.Validate(); err != nil {
		return core.SettlementResult{}, &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}

	members, err := s.repo.ListMembers(ctx, member.HouseholdID)
	if err != nil {
		return core.SettlementResult{}, err
	}
	shared, err := s.repo.ListSharedExpenses(ctx, member.HouseholdID)
	if err != nil {
		return core.SettlementResult{}, err
	}
	skipped, err := s.repo.SkippedExpenseIDs(ctx, member.HouseholdID, p)
	if err != nil {
		return core.SettlementResult{}, err
	}

	result := core.ComputeSettlement(members, shared, skipped, userID, p)

	recorded, err := s.repo.GetSettlement(ctx, member.HouseholdID, p)
	if err != nil {
		return core.SettlementResult{}, err
	}
	result.IsSettled = recorded != nil

	return result, nil
}

// MarkPaid records the current period's settlement as transferred.
// The period comes from the clock, not the caller: only the running
// month can be settled, and only once. A second call for the same
// period fails with core.ErrAlreadySettled via the unique constraint.
func (s *SettlementService) MarkPaid(ctx context.Context, userID int64) (core.Settlement, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.Settlement{}, err
	}

	now := s.clock.Now()
	p := core.PeriodOf(now)

	result, err := s.Compute(ctx, userID, p)
	if err != nil {
		return core.Settlement{}, err
	}
	if result.Amount.Cents == 0 {
		return core.Settlement{}, core.ErrNothingOwed
	}
	if result.IsSettled {
		return core.Settlement{}, core.ErrAlreadySettled
	}

	settlement := core.Settlement{
		HouseholdID:  member.HouseholdID,
		Month:        p.Month,
		Year:         p.Year,
		Amount:       result.Amount,
		PaidByUserID: result.OwedByUserID,
		PaidToUserID: result.OwedToUserID,
		PaidAt:       now,
	}
	if err := s.repo.InsertSettlement(ctx, &settlement); err != nil {
		return core.Settlement{}, err
	}

	slog.InfoContext(ctx, "Settlement recorded",
		"settlement_id", settlement.ID,
		"household_id", settlement.HouseholdID,
		"amount_cents", settlement.Amount.Cents,
		"month", p.Month,
		"year", p.Year)

	publishEvent(ctx, s.events, amqp.KindSettlementPaid, settlement.HouseholdID, amqp.SettlementPaid{
		SettlementID: settlement.ID,
		Month:        p.Month,
		Year:         p.Year,
		AmountCents:  settlement.Amount.Cents,
		PaidByUserID: settlement.PaidByUserID,
		PaidToUserID: settlement.PaidToUserID,
	})

	return settlement, nil
}
