// Package worker consumes the household event feed and exports each
// event as a row of the external ledger.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

// SummaryReader supplies the household-level monthly summary used to
// annotate settlement rows.
type SummaryReader interface {
	HouseholdMonthly(ctx context.Context, householdID int64, p core.Period) (core.MonthlySummary, error)
}

// ExportWorker turns feed events into ledger rows. Append failures
// propagate so the broker redelivers the message; the ledger tolerates
// the occasional duplicate row.
type ExportWorker struct {
	appender  ledger.Appender
	summaries SummaryReader // optional, settlement rows lose context without it
	exported  atomic.Int64
	dropped   atomic.Int64
}

func NewExportWorker(appender ledger.Appender, summaries SummaryReader) *ExportWorker {
	return &ExportWorker{appender: appender, summaries: summaries}
}

// HandleEvent processes a single event from the feed.
func (w *ExportWorker) HandleEvent(ctx context.Context, evt *amqp.Event) error {
	row, err := w.rowFromEvent(ctx, evt)
	if err != nil {
		// A malformed payload will never parse on redelivery either;
		// log it and drop the message.
		slog.ErrorContext(ctx, "Dropping unparseable event",
			"event_id", evt.ID,
			"kind", evt.Kind,
			"error", err)
		w.dropped.Add(1)
		return nil
	}

	ref, err := w.appender.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	w.exported.Add(1)

	slog.InfoContext(ctx, "Event exported to ledger",
		"event_id", evt.ID,
		"kind", evt.Kind,
		"ledger_ref", ref)

	return nil
}

func (w *ExportWorker) rowFromEvent(ctx context.Context, evt *amqp.Event) (ledger.Row, error) {
	row := ledger.Row{
		OccurredAt:  evt.OccurredAt,
		HouseholdID: evt.HouseholdID,
		Kind:        evt.Kind,
		EventID:     evt.ID,
	}

	switch evt.Kind {
	case amqp.KindApprovalResolved:
		var p amqp.ApprovalResolved
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return ledger.Row{}, err
		}
		row.Detail = fmt.Sprintf("approval %d (%s) %s by user %d", p.ApprovalID, p.Action, p.Status, p.ReviewedByID)

	case amqp.KindSettlementPaid:
		var p amqp.SettlementPaid
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return ledger.Row{}, err
		}
		row.Detail = fmt.Sprintf("settlement %d for %04d-%02d: user %d paid user %d", p.SettlementID, p.Year, p.Month, p.PaidByUserID, p.PaidToUserID)
		row.AmountCents = p.AmountCents
		if w.summaries != nil {
			period := core.Period{Month: p.Month, Year: p.Year}
			summary, err := w.summaries.HouseholdMonthly(ctx, evt.HouseholdID, period)
			if err != nil {
				// Best effort: the row still goes out without the totals.
				slog.WarnContext(ctx, "Summary lookup failed for settlement row",
					"event_id", evt.ID,
					"error", err)
			} else {
				row.Detail += fmt.Sprintf(" (shared expenses %s of %s total)",
					summary.Expenses.SharedTotal.Format(),
					summary.Expenses.HouseholdTotal.Format())
			}
		}

	case amqp.KindExpenseChanged:
		var p amqp.ExpenseChanged
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return ledger.Row{}, err
		}
		row.Detail = fmt.Sprintf("expense %d %s", p.ExpenseID, p.Change)

	default:
		return ledger.Row{}, fmt.Errorf("unknown event kind %q", evt.Kind)
	}

	return row, nil
}

// Run consumes events until the context is cancelled.
func (w *ExportWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeEvents(ctx, func(evt *amqp.Event) error {
		return w.HandleEvent(ctx, evt)
	})
}

// ReportStats logs export counters every interval until the context is
// cancelled. Runs alongside the consumer.
func (w *ExportWorker) ReportStats(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			slog.InfoContext(ctx, "Ledger export stats",
				"exported", w.exported.Load(),
				"dropped", w.dropped.Load())
		}
	}
}
