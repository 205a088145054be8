// Package ledger defines the outbound port for the household event
// ledger: an append-only export of resolved approvals, settlements and
// expense changes, written to an external sheet for auditing.
package ledger

import (
	"context"
	"time"
)

// Row is one ledger line. Every event on the household feed maps to
// exactly one row.
type Row struct {
	OccurredAt  time.Time
	HouseholdID int64
	Kind        string
	Detail      string
	AmountCents int64
	EventID     string
}

// Appender writes rows to the ledger. Implementations must tolerate
// redelivery: appending the same EventID twice should be harmless for
// the audit trail even if it produces a duplicate line.
type Appender interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}
