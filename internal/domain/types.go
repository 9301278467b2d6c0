// Package domain holds the closed value types shared by the store, the
// lifecycle engine and the Telegram shell.
package domain

// RequestType classifies a request.
type RequestType string

const (
	TypeMovie        RequestType = "movie"
	TypeTV           RequestType = "tv"
	TypeManualMedia  RequestType = "manual_media"
	TypeProblem      RequestType = "problem"
	TypeUserApproval RequestType = "user_approval"
)

// RequestTypes lists every request type in display order.
var RequestTypes = []RequestType{TypeMovie, TypeTV, TypeManualMedia, TypeProblem, TypeUserApproval}

func (t RequestType) Valid() bool {
	switch t {
	case TypeMovie, TypeTV, TypeManualMedia, TypeProblem, TypeUserApproval:
		return true
	}
	return false
}

func (t RequestType) String() string { return string(t) }

// IsMedia reports whether the request asks for a movie or show.
func (t RequestType) IsMedia() bool {
	return t == TypeMovie || t == TypeTV || t == TypeManualMedia
}

// RequestStatus is the lifecycle position of a request.
type RequestStatus string

const (
	StatusPendingAdmin RequestStatus = "pending_admin"
	StatusApproved     RequestStatus = "approved"
	StatusDenied       RequestStatus = "denied"
	StatusCompleted    RequestStatus = "completed"
	StatusAcknowledged RequestStatus = "acknowledged"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPendingAdmin, StatusApproved, StatusDenied, StatusCompleted, StatusAcknowledged:
		return true
	}
	return false
}

func (s RequestStatus) String() string { return string(s) }

// Terminal reports whether no further transition may leave s.
func (s RequestStatus) Terminal() bool {
	return s == StatusDenied || s == StatusCompleted
}

// ActionableStatuses are the statuses an admin can still act on.
var ActionableStatuses = []RequestStatus{StatusPendingAdmin, StatusApproved, StatusAcknowledged}

// ApprovalStatus is the access state of a user.
type ApprovalStatus string

const (
	ApprovalNew      ApprovalStatus = "new"
	ApprovalPending  ApprovalStatus = "pending_approval"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (a ApprovalStatus) Valid() bool {
	switch a {
	case ApprovalNew, ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

func (a ApprovalStatus) String() string { return string(a) }
