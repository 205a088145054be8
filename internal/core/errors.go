package core

import "errors"

// Kind classifies engine failures so callers can map them onto their
// own transport (HTTP status, RPC code) without parsing messages.
type Kind string

const (
	KindNotFound  Kind = "not_found"
	KindConflict  Kind = "conflict"
	KindForbidden Kind = "forbidden"
	KindInvalid   Kind = "invalid"
)

// Error carries a stable machine-checkable kind plus a human-readable
// message. Sentinel instances below compare with errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// KindOf returns the failure kind, or the empty Kind for errors that
// did not originate in the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinel failures. The conflict message for approval races is
// intentionally identical whether the approval was accepted, rejected
// or cancelled by someone else.
var (
	ErrNoHousehold      = &Error{KindNotFound, "user does not belong to any household"}
	ErrExpenseNotFound  = &Error{KindNotFound, "expense not found"}
	ErrApprovalNotFound = &Error{KindNotFound, "approval not found"}
	ErrSavingNotFound   = &Error{KindNotFound, "saving not found"}

	ErrAlreadyReviewed = &Error{KindConflict, "approval has already been reviewed or cancelled"}
	ErrAlreadySettled  = &Error{KindConflict, "a settlement already exists for this period"}

	ErrSelfReview   = &Error{KindForbidden, "you cannot review your own request"}
	ErrNotRequester = &Error{KindForbidden, "only the requester can cancel this approval"}
	ErrNotCreator   = &Error{KindForbidden, "only the creator can modify this expense"}

	ErrInsufficientSavings = &Error{KindInvalid, "withdrawal amount exceeds the available balance"}
	ErrNothingOwed         = &Error{KindInvalid, "nothing is owed for this period"}
)
