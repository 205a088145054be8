package services

import (
	"context"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// SummaryService assembles the monthly household picture: income,
// amortized expenses, savings, remaining budgets and the pending
// approval count.
type SummaryService struct {
	repo   *storage.Repository
	caches *Caches
}

func NewSummaryService(repo *storage.Repository, caches *Caches) *SummaryService {
	return &SummaryService{repo: repo, caches: caches}
}

// Monthly computes the summary for one period.
//
// The cached part is keyed by household and period only. The pending
// approval count depends on who is asking (your own requests are not
// counted), so it is recomputed per call on top of the cached body.
func (s *SummaryService) Monthly(ctx context.Context, userID int64, p core.Period) (core.MonthlySummary, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	if err := p.Validate(); err != nil {
		return core.MonthlySummary{}, &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}

	summary, err := s.HouseholdMonthly(ctx, member.HouseholdID, p)
	if err != nil {
		return core.MonthlySummary{}, err
	}

	pending, err := s.repo.ListPendingApprovals(ctx, member.HouseholdID)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	summary.PendingApprovals = 0
	for _, a := range pending {
		if a.RequestedByID != userID {
			summary.PendingApprovals++
		}
	}

	return summary, nil
}

// HouseholdMonthly computes the cacheable household-level summary for
// one period. Its pending count covers every member's requests; callers
// that need the per-user count go through Monthly instead. The export
// worker reads this directly.
func (s *SummaryService) HouseholdMonthly(ctx context.Context, householdID int64, p core.Period) (core.MonthlySummary, error) {
	return cache.GetOrCompute(s.caches.summaries(), summaryKey(householdID, p), func() (core.MonthlySummary, error) {
		in, err := s.buildInput(ctx, householdID, p)
		if err != nil {
			return core.MonthlySummary{}, err
		}
		return core.ComputeMonthlySummary(in), nil
	})
}

// YearlyAverage averages the twelve monthly summaries of the window
// ending at p, i.e. p and the eleven months before it. Metrics average
// over the months where they are non-zero, so a salary that started in
// September is not diluted by empty months.
func (s *SummaryService) YearlyAverage(ctx context.Context, userID int64, p core.Period) (core.MonthlySummary, error) {
	member, err := s.repo.ResolveMembership(ctx, userID)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	if err := p.Validate(); err != nil {
		return core.MonthlySummary{}, &core.Error{Kind: core.KindInvalid, Msg: err.Error()}
	}

	months := make([]core.MonthlySummary, 0, 12)
	for i := 11; i >= 0; i-- {
		in, err := s.buildInput(ctx, member.HouseholdID, p.AddMonths(-i))
		if err != nil {
			return core.MonthlySummary{}, err
		}
		in.RequestingUserID = userID
		months = append(months, core.ComputeMonthlySummary(in))
	}

	return core.AverageSummaries(months), nil
}

func (s *SummaryService) buildInput(ctx context.Context, householdID int64, p core.Period) (core.SummaryInput, error) {
	members, err := s.repo.ListMembers(ctx, householdID)
	if err != nil {
		return core.SummaryInput{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx, householdID)
	if err != nil {
		return core.SummaryInput{}, err
	}
	paid, err := s.repo.PaidExpenseIDs(ctx, householdID, p)
	if err != nil {
		return core.SummaryInput{}, err
	}
	skipped, err := s.repo.SkippedExpenseIDs(ctx, householdID, p)
	if err != nil {
		return core.SummaryInput{}, err
	}
	savings, err := s.repo.SavingsForPeriod(ctx, householdID, p)
	if err != nil {
		return core.SummaryInput{}, err
	}
	salaries, err := s.repo.SalariesForPeriod(ctx, householdID, p)
	if err != nil {
		return core.SummaryInput{}, err
	}
	pending, err := s.repo.ListPendingApprovals(ctx, householdID)
	if err != nil {
		return core.SummaryInput{}, err
	}

	return core.SummaryInput{
		Period:            p,
		Members:           members,
		Expenses:          expenses,
		PaidExpenseIDs:    paid,
		SkippedExpenseIDs: skipped,
		Savings:           savings,
		Salaries:          salaries,
		PendingApprovals:  pending,
	}, nil
}
