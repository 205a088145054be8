package services

import (
	"context"
	"errors"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// SavingsService manages the per-member savings ledger. Personal
// balances and shared contributions move immediately; taking money out
// of the shared balance needs a second member's approval.
type SavingsService struct {
	repo   *storage.Repository
	events *amqp.Client
	caches *Caches
	clock  Clock
}

func NewSavingsService(repo *storage.Repository, events *amqp.Client, caches *Caches, clock Clock) *SavingsService {
	return &SavingsService{repo: repo, events: events, caches: caches, clock: clock}
}

// Add credits a balance, creating the row on first use.
func (s *SavingsService) Add(ctx context.Context, userID int64, p core.Period, isShared bool, amountCents int64, reducesFromSalary bool) error {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}
	if amountCents <= 0 {
		return &core.Error{Kind: core.KindInvalid, Msg: core.ErrInvalidAmount.Error()}
	}

	if err := s.repo.UpsertSavingDelta(ctx, s.repo.DB(), userID, p, isShared, amountCents, reducesFromSalary); err != nil {
		return err
	}

	s.caches.InvalidatePeriod(member.HouseholdID, p)
	return nil
}

// WithdrawPersonal debits the caller's personal balance immediately.
// The balance check and the debit share one transaction so concurrent
// withdrawals cannot overdraw.
func (s *SavingsService) WithdrawPersonal(ctx context.Context, userID int64, p core.Period, amountCents int64) error {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return err
	}
	if amountCents <= 0 {
		return &core.Error{Kind: core.KindInvalid, Msg: core.ErrInvalidAmount.Error()}
	}

	err = s.repo.WithTx(ctx, func(q storage.DBTX) error {
		saving, err := s.repo.GetSavingTx(ctx, q, userID, p, false)
		if err != nil {
			return err
		}
		if saving.Amount.Cents < amountCents {
			return core.ErrInsufficientSavings
		}
		return s.repo.UpsertSavingDelta(ctx, q, userID, p, false, -amountCents, saving.ReducesFromSalary)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Personal savings withdrawn",
		"user_id", userID,
		"amount_cents", amountCents,
		"month", p.Month,
		"year", p.Year)

	s.caches.InvalidatePeriod(member.HouseholdID, p)
	return nil
}

// RequestSharedWithdrawal files a WITHDRAW_SAVINGS approval instead of
// touching the balance. The debit happens if and when another member
// accepts, with the balance re-checked inside that transaction.
func (s *SavingsService) RequestSharedWithdrawal(ctx context.Context, userID int64, p core.Period, amountCents int64) (core.Approval, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.Approval{}, err
	}
	if amountCents <= 0 {
		return core.Approval{}, &core.Error{Kind: core.KindInvalid, Msg: core.ErrInvalidAmount.Error()}
	}

	// Early sanity check; the authoritative check re-runs at accept
	// time because the balance can change while the request is open.
	saving, err := s.repo.GetSaving(ctx, userID, p, true)
	if err != nil {
		return core.Approval{}, err
	}
	if saving.Amount.Cents < amountCents {
		return core.Approval{}, core.ErrInsufficientSavings
	}

	approval := core.Approval{
		HouseholdID:   member.HouseholdID,
		Action:        core.ActionWithdrawSavings,
		Status:        core.StatusPending,
		RequestedByID: userID,
		Proposed: core.ProposedChange{
			Withdraw: &core.SavingsWithdrawal{AmountCents: amountCents, Month: p.Month, Year: p.Year},
		},
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertApproval(ctx, &approval); err != nil {
		return core.Approval{}, err
	}

	slog.InfoContext(ctx, "Shared withdrawal requested",
		"approval_id", approval.ID,
		"user_id", userID,
		"amount_cents", amountCents)

	return approval, nil
}

// Balance returns the caller's balance for (period, shared flag); a
// missing row reads as zero.
func (s *SavingsService) Balance(ctx context.Context, userID int64, p core.Period, isShared bool) (core.Saving, error) {
	if _, err := s.repo.ResolveMembership(ctx, userID); err != nil {
		return core.Saving{}, err
	}
	saving, err := s.repo.GetSaving(ctx, userID, p, isShared)
	if errors.Is(err, core.ErrSavingNotFound) {
		return core.Saving{UserID: userID, Month: p.Month, Year: p.Year, IsShared: isShared}, nil
	}
	return saving, err
}
