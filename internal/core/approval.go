package core

import (
	"errors"
	"time"
)

const (
	ActionCreate          ApprovalAction = "CREATE"
	ActionUpdate          ApprovalAction = "UPDATE"
	ActionDelete          ApprovalAction = "DELETE"
	ActionWithdrawSavings ApprovalAction = "WITHDRAW_SAVINGS"

	StatusPending   ApprovalStatus = "PENDING"
	StatusAccepted  ApprovalStatus = "ACCEPTED"
	StatusRejected  ApprovalStatus = "REJECTED"
	StatusCancelled ApprovalStatus = "CANCELLED"
)

type (
	ApprovalAction string
	ApprovalStatus string

	// Approval is a change request gated behind a second member's
	// review. It is created PENDING and transitions to exactly one
	// terminal state exactly once; the transition is the single point
	// of mutation.
	Approval struct {
		ID            int64
		HouseholdID   int64
		Action        ApprovalAction
		Status        ApprovalStatus
		RequestedByID int64
		ExpenseID     *int64 // required for UPDATE and DELETE
		Proposed      ProposedChange
		ReviewedByID  *int64
		Message       string
		ReviewedAt    *time.Time
		CreatedAt     time.Time
	}

	// ProposedChange is a tagged union keyed by the approval action:
	// exactly the variant matching the action is set, the others are
	// nil. DELETE carries no payload at all.
	ProposedChange struct {
		Create   *ExpenseDraft      `json:"create,omitempty"`
		Update   *ExpensePatch      `json:"update,omitempty"`
		Withdraw *SavingsWithdrawal `json:"withdraw,omitempty"`
	}

	// ExpenseDraft is the payload of a CREATE approval.
	ExpenseDraft struct {
		Name         string               `json:"name"`
		AmountCents  int64                `json:"amount_cents"`
		Category     ExpenseCategory      `json:"category"`
		Frequency    Frequency            `json:"frequency,omitempty"`
		Strategy     YearlyStrategy       `json:"strategy,omitempty"`
		Installments InstallmentFrequency `json:"installments,omitempty"`
		Count        int                  `json:"count,omitempty"`
		PaymentMonth int                  `json:"payment_month,omitempty"`
		Month        int                  `json:"month,omitempty"`
		Year         int                  `json:"year,omitempty"`
		PaidByUserID *int64               `json:"paid_by_user_id,omitempty"`
	}

	// ExpensePatch is the payload of an UPDATE approval: any subset of
	// the expense's mutable fields. Nil fields are left untouched.
	ExpensePatch struct {
		Name         *string               `json:"name,omitempty"`
		AmountCents  *int64                `json:"amount_cents,omitempty"`
		Category     *ExpenseCategory      `json:"category,omitempty"`
		Frequency    *Frequency            `json:"frequency,omitempty"`
		Strategy     *YearlyStrategy       `json:"strategy,omitempty"`
		Installments *InstallmentFrequency `json:"installments,omitempty"`
		Count        *int                  `json:"count,omitempty"`
		PaymentMonth *int                  `json:"payment_month,omitempty"`
		Month        *int                  `json:"month,omitempty"`
		Year         *int                  `json:"year,omitempty"`
		PaidByUserID *int64                `json:"paid_by_user_id,omitempty"`
	}

	// SavingsWithdrawal is the payload of a WITHDRAW_SAVINGS approval.
	SavingsWithdrawal struct {
		AmountCents int64 `json:"amount_cents"`
		Month       int   `json:"month"`
		Year        int   `json:"year"`
	}
)

var (
	ErrUnknownAction  = errors.New("unknown approval action")
	ErrMissingPayload = errors.New("proposed change does not match the approval action")
)

// Terminal reports whether the status admits no further transitions.
func (s ApprovalStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusCancelled
}

// Validate checks that exactly the variant required by the action is
// present.
func (c ProposedChange) Validate(action ApprovalAction) error {
	switch action {
	case ActionCreate:
		if c.Create == nil || c.Update != nil || c.Withdraw != nil {
			return ErrMissingPayload
		}
	case ActionUpdate:
		if c.Update == nil || c.Create != nil || c.Withdraw != nil {
			return ErrMissingPayload
		}
	case ActionDelete:
		if c.Create != nil || c.Update != nil || c.Withdraw != nil {
			return ErrMissingPayload
		}
	case ActionWithdrawSavings:
		if c.Withdraw == nil || c.Create != nil || c.Update != nil {
			return ErrMissingPayload
		}
	default:
		return ErrUnknownAction
	}
	return nil
}

// Expense materializes the draft as a SHARED expense owned by the
// requester. Accepted CREATE approvals always produce shared expenses;
// personal ones never need a review.
func (d ExpenseDraft) Expense(householdID, createdByID int64, now time.Time) Expense {
	return Expense{
		HouseholdID:  householdID,
		CreatedByID:  createdByID,
		Type:         ExpenseShared,
		Name:         d.Name,
		Amount:       Money{Cents: d.AmountCents},
		Category:     d.Category,
		Frequency:    d.Frequency,
		Strategy:     d.Strategy,
		Installments: d.Installments,
		Count:        d.Count,
		PaymentMonth: d.PaymentMonth,
		Month:        d.Month,
		Year:         d.Year,
		PaidByUserID: d.PaidByUserID,
		CreatedAt:    now,
	}
}

// Apply copies the patch's non-nil fields onto the expense.
func (p ExpensePatch) Apply(e *Expense) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.AmountCents != nil {
		e.Amount = Money{Cents: *p.AmountCents}
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Frequency != nil {
		e.Frequency = *p.Frequency
	}
	if p.Strategy != nil {
		e.Strategy = *p.Strategy
	}
	if p.Installments != nil {
		e.Installments = *p.Installments
	}
	if p.Count != nil {
		e.Count = *p.Count
	}
	if p.PaymentMonth != nil {
		e.PaymentMonth = *p.PaymentMonth
	}
	if p.Month != nil {
		e.Month = *p.Month
	}
	if p.Year != nil {
		e.Year = *p.Year
	}
	if p.PaidByUserID != nil {
		e.PaidByUserID = p.PaidByUserID
	}
}
