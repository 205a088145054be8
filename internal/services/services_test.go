package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// testEnv is a real sqlite database seeded with a two-member household
// and a clock pinned to March 2026.
type testEnv struct {
	repo        *storage.Repository
	householdID int64
	anna        int64
	bruno       int64
	clock       FixedClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	householdID, err := repo.CreateHousehold(ctx, "Casa Test")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	anna, err := repo.AddMember(ctx, householdID, "Anna", "owner", 200000)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	bruno, err := repo.AddMember(ctx, householdID, "Bruno", "member", 180000)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}

	return &testEnv{
		repo:        repo,
		householdID: householdID,
		anna:        anna,
		bruno:       bruno,
		clock:       FixedClock{T: time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)},
	}
}

func (env *testEnv) period() core.Period {
	return core.PeriodOf(env.clock.T)
}

func (env *testEnv) expenses() *ExpenseService {
	return NewExpenseService(env.repo, nil, nil, env.clock)
}

func (env *testEnv) approvals() *ApprovalService {
	return NewApprovalService(env.repo, nil, nil, env.clock)
}

func (env *testEnv) savings() *SavingsService {
	return NewSavingsService(env.repo, nil, nil, env.clock)
}

func (env *testEnv) settlements() *SettlementService {
	return NewSettlementService(env.repo, nil, nil, env.clock)
}

func (env *testEnv) summaries() *SummaryService {
	return NewSummaryService(env.repo, nil)
}

func monthlyShared(name string, cents int64) core.Expense {
	return core.Expense{
		Type:      core.ExpenseShared,
		Name:      name,
		Amount:    core.Money{Cents: cents},
		Category:  core.CategoryRecurring,
		Frequency: core.FrequencyMonthly,
	}
}

func intPtr(v int64) *int64 { return &v }
