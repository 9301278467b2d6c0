package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestNotFound means the referenced request id does not exist.
	ErrRequestNotFound = errors.New("request not found")
	// ErrUnsupportedTransition means the target status is not legal for the request type.
	ErrUnsupportedTransition = errors.New("unsupported transition")
	// ErrPersistenceFailed means the status write affected no row although the
	// request still exists and was eligible.
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrAuditFailed means the status was written but the admin log entry was not.
	ErrAuditFailed = errors.New("audit log failed")
)

// Error carries the failing request and one of the sentinel kinds above.
type Error struct {
	Kind      error
	RequestID int64
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lifecycle: request %d: %v: %v", e.RequestID, e.Kind, e.Err)
	}
	return fmt.Sprintf("lifecycle: request %d: %v", e.RequestID, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Code is the short err_code used in handler summaries.
func (e *Error) Code() string {
	switch e.Kind {
	case ErrRequestNotFound:
		return "request_not_found"
	case ErrUnsupportedTransition:
		return "unsupported_transition"
	case ErrPersistenceFailed:
		return "persistence_failed"
	case ErrAuditFailed:
		return "audit_failed"
	}
	return "lifecycle"
}

func newError(kind error, id int64, cause error) *Error {
	return &Error{Kind: kind, RequestID: id, Err: cause}
}
