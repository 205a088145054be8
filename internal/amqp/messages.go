package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds carried on the household feed.
const (
	KindApprovalResolved = "approval_resolved"
	KindSettlementPaid   = "settlement_paid"
	KindExpenseChanged   = "expense_changed"
)

// Event is the envelope every feed message travels in. ID is unique
// per event so consumers can deduplicate on redelivery.
type Event struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	HouseholdID int64           `json:"household_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

// ApprovalResolved is the payload of an approval_resolved event.
type ApprovalResolved struct {
	ApprovalID   int64  `json:"approval_id"`
	Action       string `json:"action"`
	Status       string `json:"status"`
	ReviewedByID int64  `json:"reviewed_by_id"`
}

// SettlementPaid is the payload of a settlement_paid event.
type SettlementPaid struct {
	SettlementID int64 `json:"settlement_id"`
	Month        int   `json:"month"`
	Year         int   `json:"year"`
	AmountCents  int64 `json:"amount_cents"`
	PaidByUserID int64 `json:"paid_by_user_id"`
	PaidToUserID int64 `json:"paid_to_user_id"`
}

// ExpenseChanged is the payload of an expense_changed event. Change is
// one of "created", "updated", "deleted".
type ExpenseChanged struct {
	ExpenseID int64  `json:"expense_id"`
	Change    string `json:"change"`
}

// NewEvent wraps a payload into an envelope with a fresh id.
func NewEvent(kind string, householdID int64, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		HouseholdID: householdID,
		OccurredAt:  time.Now(),
		Data:        data,
	}, nil
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
