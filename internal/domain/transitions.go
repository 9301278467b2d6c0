package domain

import "slices"

var allowedTargets = map[RequestType][]RequestStatus{
	TypeMovie:        {StatusApproved, StatusDenied, StatusCompleted},
	TypeTV:           {StatusApproved, StatusDenied, StatusCompleted},
	TypeManualMedia:  {StatusApproved, StatusDenied, StatusCompleted},
	TypeUserApproval: {StatusApproved, StatusDenied, StatusCompleted},
	TypeProblem:      {StatusAcknowledged, StatusCompleted},
}

// AllowedTargets returns the statuses an admin may move a request of type t to.
func AllowedTargets(t RequestType) []RequestStatus {
	return slices.Clone(allowedTargets[t])
}

// CanTarget reports whether target is legal for type t.
func CanTarget(t RequestType, target RequestStatus) bool {
	return slices.Contains(allowedTargets[t], target)
}

// AllowedSources returns the statuses a row of type t may be in when it is
// moved to target. pending_admin is always a source; completed may also
// follow an intermediate approved or acknowledged status, except for account
// approval tasks, which are single-shot.
func AllowedSources(t RequestType, target RequestStatus) []RequestStatus {
	if !CanTarget(t, target) {
		return nil
	}
	sources := []RequestStatus{StatusPendingAdmin}
	if target != StatusCompleted || t == TypeUserApproval {
		return sources
	}
	for _, mid := range allowedTargets[t] {
		if mid != StatusCompleted && mid != StatusDenied {
			sources = append(sources, mid)
		}
	}
	return sources
}

// CanMove reports whether a row currently in from may move to target.
func CanMove(t RequestType, from, target RequestStatus) bool {
	return slices.Contains(AllowedSources(t, target), from)
}
