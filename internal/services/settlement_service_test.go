package services

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
)

func seedPaidExpense(t *testing.T, env *testEnv, name string, cents int64, paidBy int64) core.Expense {
	t.Helper()
	e := monthlyShared(name, cents)
	e.PaidByUserID = &paidBy
	created, err := env.expenses().Create(context.Background(), paidBy, e)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return created
}

func TestComputeSettlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.settlements()

	// Anna fronts the whole month: 800 rent + 120 electricity. Bruno
	// owes half of the 920 total.
	seedPaidExpense(t, env, "Rent", 80000, env.anna)
	seedPaidExpense(t, env, "Electricity", 12000, env.anna)

	result, err := svc.Compute(ctx, env.anna, env.period())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if result.Amount.Cents != 46000 {
		t.Errorf("Amount = %d, want 46000", result.Amount.Cents)
	}
	if result.OwedByUserID != env.bruno || result.OwedToUserID != env.anna {
		t.Errorf("direction = %d -> %d, want %d -> %d",
			result.OwedByUserID, result.OwedToUserID, env.bruno, env.anna)
	}
	if result.IsSettled {
		t.Error("IsSettled must be false before MarkPaid")
	}
}

func TestMarkPaidRecordsAndRefusesTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.settlements()

	seedPaidExpense(t, env, "Rent", 80000, env.anna)

	settlement, err := svc.MarkPaid(ctx, env.bruno)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if settlement.Amount.Cents != 40000 {
		t.Errorf("Amount = %d, want 40000", settlement.Amount.Cents)
	}
	if settlement.PaidByUserID != env.bruno || settlement.PaidToUserID != env.anna {
		t.Errorf("direction = %d -> %d, want %d -> %d",
			settlement.PaidByUserID, settlement.PaidToUserID, env.bruno, env.anna)
	}

	result, err := svc.Compute(ctx, env.anna, env.period())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !result.IsSettled {
		t.Error("IsSettled must be true after MarkPaid")
	}

	if _, err := svc.MarkPaid(ctx, env.bruno); !errors.Is(err, core.ErrAlreadySettled) {
		t.Errorf("second MarkPaid = %v, want ErrAlreadySettled", err)
	}
}

func TestMarkPaidNothingOwed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// No shared expenses at all: the balance is zero.
	if _, err := env.settlements().MarkPaid(ctx, env.anna); !errors.Is(err, core.ErrNothingOwed) {
		t.Errorf("MarkPaid = %v, want ErrNothingOwed", err)
	}
}

func TestComputeSkipsOverriddenExpenses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.settlements()

	rent := seedPaidExpense(t, env, "Rent", 80000, env.anna)
	if err := env.expenses().Skip(ctx, env.anna, rent.ID, env.period(), true); err != nil {
		t.Fatalf("Skip: %v", err)
	}

	result, err := svc.Compute(ctx, env.anna, env.period())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if result.Amount.Cents != 0 {
		t.Errorf("Amount = %d, want 0 with the only expense skipped", result.Amount.Cents)
	}
}

func TestComputeBalancedMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.settlements()

	seedPaidExpense(t, env, "Rent", 50000, env.anna)
	seedPaidExpense(t, env, "Groceries", 50000, env.bruno)

	result, err := svc.Compute(ctx, env.anna, env.period())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if result.Amount.Cents != 0 {
		t.Errorf("Amount = %d, want 0 for a balanced month", result.Amount.Cents)
	}
	if result.Message != "Nothing to settle for this period" {
		t.Errorf("Message = %q", result.Message)
	}
}
