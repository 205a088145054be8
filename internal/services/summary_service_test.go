package services

import (
	"context"
	"testing"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
)

func TestMonthlySummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.period()

	if err := env.repo.SetSalary(ctx, env.anna, p, 200000); err != nil {
		t.Fatalf("SetSalary: %v", err)
	}
	if err := env.repo.SetSalary(ctx, env.bruno, p, 180000); err != nil {
		t.Fatalf("SetSalary: %v", err)
	}

	personal := core.Expense{
		Type:      core.ExpensePersonal,
		Name:      "Gym",
		Amount:    core.Money{Cents: 5000},
		Category:  core.CategoryRecurring,
		Frequency: core.FrequencyMonthly,
	}
	if _, err := env.expenses().Create(ctx, env.anna, personal); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.expenses().Create(ctx, env.anna, monthlyShared("Rent", 80000)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := env.savings().Add(ctx, env.bruno, p, false, 10000, true); err != nil {
		t.Fatalf("Add savings: %v", err)
	}

	summary, err := env.summaries().Monthly(ctx, env.anna, p)
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}

	if summary.Expenses.SharedTotal.Cents != 80000 {
		t.Errorf("SharedTotal = %d, want 80000", summary.Expenses.SharedTotal.Cents)
	}
	if summary.Expenses.HouseholdTotal.Cents != 85000 {
		t.Errorf("HouseholdTotal = %d, want 85000", summary.Expenses.HouseholdTotal.Cents)
	}

	budgets := make(map[int64]int64)
	for _, s := range summary.Savings.PerMember {
		budgets[s.UserID] = s.RemainingBudget.Cents
	}
	// Anna: 2000.00 salary, 50.00 personal, half of 800.00 shared.
	if budgets[env.anna] != 155000 {
		t.Errorf("Anna budget = %d, want 155000", budgets[env.anna])
	}
	// Bruno: 1800.00 salary, half of shared, 100.00 salary-reducing savings.
	if budgets[env.bruno] != 130000 {
		t.Errorf("Bruno budget = %d, want 130000", budgets[env.bruno])
	}
}

func TestMonthlySummaryPendingCountIsPerCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.period()

	if _, err := env.approvals().RequestCreate(ctx, env.anna, core.ExpenseDraft{
		Name: "Sofa", AmountCents: 90000, Category: core.CategoryOneTime, Month: 3, Year: 2026,
	}); err != nil {
		t.Fatalf("RequestCreate: %v", err)
	}

	svc := env.summaries()

	mine, err := svc.Monthly(ctx, env.anna, p)
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if mine.PendingApprovals != 0 {
		t.Errorf("requester sees %d pending, want 0", mine.PendingApprovals)
	}

	theirs, err := svc.Monthly(ctx, env.bruno, p)
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if theirs.PendingApprovals != 1 {
		t.Errorf("reviewer sees %d pending, want 1", theirs.PendingApprovals)
	}
}

func TestMonthlySummaryCacheInvalidatedByMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.period()

	caches := &Caches{Summaries: cache.New[core.MonthlySummary](16, time.Minute)}
	expenses := NewExpenseService(env.repo, nil, caches, env.clock)
	summaries := NewSummaryService(env.repo, caches)

	before, err := summaries.Monthly(ctx, env.anna, p)
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if before.Expenses.SharedTotal.Cents != 0 {
		t.Fatalf("SharedTotal = %d, want 0", before.Expenses.SharedTotal.Cents)
	}

	if _, err := expenses.Create(ctx, env.anna, monthlyShared("Rent", 80000)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	after, err := summaries.Monthly(ctx, env.anna, p)
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if after.Expenses.SharedTotal.Cents != 80000 {
		t.Errorf("SharedTotal = %d after mutation, want 80000", after.Expenses.SharedTotal.Cents)
	}
}

func TestYearlyAverageSkipsEmptyMonths(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Salary present only in two months; the average must not be
	// diluted by the ten empty ones.
	for _, month := range []int{2, 3} {
		p := core.Period{Month: month, Year: 2026}
		if err := env.repo.SetSalary(ctx, env.anna, p, 200000); err != nil {
			t.Fatalf("SetSalary: %v", err)
		}
	}

	avg, err := env.summaries().YearlyAverage(ctx, env.anna, env.period())
	if err != nil {
		t.Fatalf("YearlyAverage: %v", err)
	}

	if got := averageSalaryOf(avg, env.anna); got != 200000 {
		t.Errorf("average salary = %d, want 200000", got)
	}
}

func TestYearlyAverageWindowEndsAtReferencePeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Reference period is March 2026, so the window runs April 2025
	// through March 2026 inclusive.
	inWindow := []struct {
		p     core.Period
		cents int64
	}{
		{core.Period{Month: 4, Year: 2025}, 100000},
		{core.Period{Month: 3, Year: 2026}, 200000},
	}
	outOfWindow := []core.Period{
		{Month: 3, Year: 2025}, // one month before the window
		{Month: 4, Year: 2026}, // one month after the reference period
	}

	for _, s := range inWindow {
		if err := env.repo.SetSalary(ctx, env.anna, s.p, s.cents); err != nil {
			t.Fatalf("SetSalary: %v", err)
		}
	}
	for _, p := range outOfWindow {
		if err := env.repo.SetSalary(ctx, env.anna, p, 900000); err != nil {
			t.Fatalf("SetSalary: %v", err)
		}
	}

	avg, err := env.summaries().YearlyAverage(ctx, env.anna, env.period())
	if err != nil {
		t.Fatalf("YearlyAverage: %v", err)
	}

	// (1000.00 + 2000.00) / 2; the 9000.00 salaries outside the window
	// must not leak in.
	if got := averageSalaryOf(avg, env.anna); got != 150000 {
		t.Errorf("average salary = %d, want 150000", got)
	}
	if avg.Period != env.period() {
		t.Errorf("Period = %+v, want %+v", avg.Period, env.period())
	}
}

func averageSalaryOf(avg core.MonthlySummary, userID int64) int64 {
	for _, inc := range avg.Income {
		if inc.UserID == userID {
			return inc.CurrentSalary.Cents
		}
	}
	return 0
}
