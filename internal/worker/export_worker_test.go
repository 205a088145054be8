package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger/memory"
)

// stubSummaries hands back a fixed household summary, or an error.
type stubSummaries struct {
	summary core.MonthlySummary
	err     error
	period  core.Period
}

func (s *stubSummaries) HouseholdMonthly(_ context.Context, _ int64, p core.Period) (core.MonthlySummary, error) {
	s.period = p
	return s.summary, s.err
}

func TestHandleEventExportsRow(t *testing.T) {
	store := memory.New()
	w := NewExportWorker(store, nil)

	evt, err := amqp.NewEvent(amqp.KindSettlementPaid, 7, amqp.SettlementPaid{
		SettlementID: 4,
		Month:        3,
		Year:         2026,
		AmountCents:  6000,
		PaidByUserID: 2,
		PaidToUserID: 1,
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	if err := w.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	rows := store.Rows()
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.HouseholdID != 7 || row.Kind != amqp.KindSettlementPaid || row.EventID != evt.ID {
		t.Errorf("row envelope mismatch: %+v", row)
	}
	if row.AmountCents != 6000 {
		t.Errorf("AmountCents = %d, want 6000", row.AmountCents)
	}
	if !strings.Contains(row.Detail, "user 2 paid user 1") {
		t.Errorf("Detail = %q", row.Detail)
	}
}

func TestHandleEventAnnotatesSettlementWithTotals(t *testing.T) {
	store := memory.New()
	summaries := &stubSummaries{summary: core.MonthlySummary{
		Expenses: core.ExpenseSummary{
			SharedTotal:    core.Money{Cents: 92000},
			HouseholdTotal: core.Money{Cents: 97000},
		},
	}}
	w := NewExportWorker(store, summaries)

	evt, err := amqp.NewEvent(amqp.KindSettlementPaid, 7, amqp.SettlementPaid{
		SettlementID: 4,
		Month:        3,
		Year:         2026,
		AmountCents:  46000,
		PaidByUserID: 2,
		PaidToUserID: 1,
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if err := w.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	rows := store.Rows()
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if !strings.Contains(rows[0].Detail, "(shared expenses 920.00 of 970.00 total)") {
		t.Errorf("Detail = %q", rows[0].Detail)
	}
	if want := (core.Period{Month: 3, Year: 2026}); summaries.period != want {
		t.Errorf("summary period = %+v, want %+v", summaries.period, want)
	}
}

func TestHandleEventSettlementSurvivesSummaryFailure(t *testing.T) {
	store := memory.New()
	w := NewExportWorker(store, &stubSummaries{err: errors.New("db gone")})

	evt, err := amqp.NewEvent(amqp.KindSettlementPaid, 7, amqp.SettlementPaid{
		SettlementID: 4, Month: 3, Year: 2026, AmountCents: 46000, PaidByUserID: 2, PaidToUserID: 1,
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if err := w.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	rows := store.Rows()
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if strings.Contains(rows[0].Detail, "shared expenses") {
		t.Errorf("Detail must not carry totals on lookup failure: %q", rows[0].Detail)
	}
}

func TestHandleEventDropsUnknownKind(t *testing.T) {
	store := memory.New()
	w := NewExportWorker(store, nil)

	evt, err := amqp.NewEvent("salary_changed", 1, struct{}{})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	// Unknown kinds are logged and dropped, not retried forever.
	if err := w.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(store.Rows()) != 0 {
		t.Errorf("unknown kind must not produce a ledger row")
	}
}

func TestHandleEventApprovalAndExpenseDetails(t *testing.T) {
	store := memory.New()
	w := NewExportWorker(store, nil)

	approval, _ := amqp.NewEvent(amqp.KindApprovalResolved, 1, amqp.ApprovalResolved{
		ApprovalID: 9, Action: "DELETE", Status: "ACCEPTED", ReviewedByID: 5,
	})
	change, _ := amqp.NewEvent(amqp.KindExpenseChanged, 1, amqp.ExpenseChanged{
		ExpenseID: 3, Change: "updated",
	})

	for _, evt := range []*amqp.Event{approval, change} {
		if err := w.HandleEvent(context.Background(), evt); err != nil {
			t.Fatalf("HandleEvent(%s): %v", evt.Kind, err)
		}
	}

	rows := store.Rows()
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if !strings.Contains(rows[0].Detail, "approval 9 (DELETE) ACCEPTED by user 5") {
		t.Errorf("approval detail = %q", rows[0].Detail)
	}
	if !strings.Contains(rows[1].Detail, "expense 3 updated") {
		t.Errorf("expense detail = %q", rows[1].Detail)
	}
}
