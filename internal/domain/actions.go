package domain

import (
	"fmt"
	"strings"
)

// Action is an admin button action key.
type Action string

const (
	ActionApprove               Action = "approve"
	ActionApproveWithNote       Action = "approve_with_note"
	ActionDeny                  Action = "deny"
	ActionDenyWithNote          Action = "deny_with_note"
	ActionMarkCompleted         Action = "mark_completed"
	ActionMarkCompletedWithNote Action = "mark_completed_with_note"
	ActionAcknowledge           Action = "acknowledge"
	ActionMarkResolved          Action = "mark_resolved"
	ActionMarkResolvedWithNote  Action = "mark_resolved_with_note"
	ActionCloseTask             Action = "close_task"

	// Audit keys for account approval tasks.
	ActionUserApprovedViaTask Action = "user_approved_via_task"
	ActionUserRejectedViaTask Action = "user_rejected_via_task"
)

const noteSuffix = "_with_note"

var actionTargets = map[Action]RequestStatus{
	ActionApprove:       StatusApproved,
	ActionDeny:          StatusDenied,
	ActionMarkCompleted: StatusCompleted,
	ActionAcknowledge:   StatusAcknowledged,
	ActionMarkResolved:  StatusCompleted,
}

// ActionSpec is the decoded meaning of an action key.
type ActionSpec struct {
	Key       Action
	Base      Action
	Target    RequestStatus
	WantsNote bool
	// Close is set for close_task, which changes nothing.
	Close bool
}

func (a Action) String() string { return string(a) }

// ParseAction decodes an admin action key.
func ParseAction(key string) (ActionSpec, error) {
	a := Action(strings.TrimSpace(key))
	if a == ActionCloseTask {
		return ActionSpec{Key: a, Base: a, Close: true}, nil
	}
	base := a
	wantsNote := false
	if trimmed, ok := strings.CutSuffix(string(a), noteSuffix); ok {
		base = Action(trimmed)
		wantsNote = true
	}
	target, ok := actionTargets[base]
	if !ok || (wantsNote && base == ActionAcknowledge) {
		return ActionSpec{}, fmt.Errorf("unknown action %q", key)
	}
	return ActionSpec{Key: a, Base: base, Target: target, WantsNote: wantsNote}, nil
}

// ActionsFor lists the admin buttons offered for a request of type t in
// status s.
func ActionsFor(t RequestType, s RequestStatus) []Action {
	if t == TypeUserApproval {
		return nil
	}
	var out []Action
	switch {
	case t == TypeProblem && s == StatusPendingAdmin:
		out = []Action{ActionAcknowledge, ActionMarkResolved, ActionMarkResolvedWithNote}
	case t == TypeProblem && s == StatusAcknowledged:
		out = []Action{ActionMarkResolved, ActionMarkResolvedWithNote}
	case s == StatusPendingAdmin:
		out = []Action{ActionApprove, ActionApproveWithNote, ActionDeny, ActionDenyWithNote, ActionMarkCompleted, ActionMarkCompletedWithNote}
	case s == StatusApproved:
		out = []Action{ActionMarkCompleted, ActionMarkCompletedWithNote}
	}
	if len(out) > 0 {
		out = append(out, ActionCloseTask)
	}
	return out
}
