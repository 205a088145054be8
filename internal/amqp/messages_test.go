package amqp

import (
	"encoding/json"
	"testing"
)

func TestEventRoundTrip(t *testing.T) {
	evt, err := NewEvent(KindApprovalResolved, 7, ApprovalResolved{
		ApprovalID:   12,
		Action:       "CREATE",
		Status:       "ACCEPTED",
		ReviewedByID: 3,
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if evt.ID == "" {
		t.Fatal("event id must be set")
	}

	data, err := evt.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := EventFromJSON(data)
	if err != nil {
		t.Fatalf("EventFromJSON: %v", err)
	}

	if got.ID != evt.ID || got.Kind != KindApprovalResolved || got.HouseholdID != 7 {
		t.Errorf("envelope mismatch: %+v", got)
	}

	var payload ApprovalResolved
	if err := json.Unmarshal(got.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ApprovalID != 12 || payload.ReviewedByID != 3 {
		t.Errorf("payload mismatch: %+v", payload)
	}
}

func TestNewEventUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		evt, err := NewEvent(KindExpenseChanged, 1, ExpenseChanged{ExpenseID: int64(i), Change: "created"})
		if err != nil {
			t.Fatalf("NewEvent: %v", err)
		}
		if seen[evt.ID] {
			t.Fatalf("duplicate event id %s", evt.ID)
		}
		seen[evt.ID] = true
	}
}

func TestEventFromJSONRejectsGarbage(t *testing.T) {
	if _, err := EventFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
