package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/telecopter/core/metrics"
	"github.com/m3rciful/telecopter/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func dune() domain.Request {
	return domain.Request{
		RequestID:   7,
		UserID:      100,
		RequestType: domain.TypeMovie,
		Status:      domain.StatusPendingAdmin,
		Title:       "Dune",
		TMDBID:      ptr(int64(438631)),
		Year:        ptr(2021),
	}
}

func newEngine(t *testing.T) (*Engine, *fakeStore, *fakeNotifier) {
	t.Helper()
	st := newFakeStore()
	n := &fakeNotifier{}
	return New(st, n), st, n
}

func TestApplyTransitionDuneEndToEnd(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 100)

	out, err := e.ApplyTransition(context.Background(), Transition{
		RequestID: 7, Target: domain.StatusApproved, AdminID: 1, Action: "approve",
	})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.True(t, out.UserNotified)
	assert.Equal(t, domain.StatusApproved, out.NewStatus)
	assert.Equal(t, domain.StatusPendingAdmin, out.PreviousStatus)
	assert.Equal(t, "Request ID 7 status set to approved. User notified.", out.AdminSummary)

	assert.Equal(t, domain.StatusApproved, st.requests[7].Status)
	require.Len(t, st.logs, 1)
	assert.Equal(t, int64(1), st.logs[0].AdminUserID)
	assert.Equal(t, "approve", st.logs[0].Action)
	assert.Equal(t, int64(7), *st.logs[0].RequestID)
	assert.Nil(t, st.logs[0].Details)

	require.Len(t, n.sent, 1)
	assert.Equal(t, int64(100), n.sent[0].chatID)
	assert.Equal(t, `Great news! Your request for "Dune" has been approved.`, n.sent[0].text)
}

func TestApplyTransitionStatusMonotonicity(t *testing.T) {
	e, st, _ := newEngine(t)
	st.put(dune(), 100)
	ctx := context.Background()

	_, err := e.ApplyTransition(ctx, Transition{RequestID: 7, Target: domain.StatusDenied, AdminID: 1, Action: "deny"})
	require.NoError(t, err)

	for _, target := range []domain.RequestStatus{domain.StatusApproved, domain.StatusCompleted, domain.StatusDenied} {
		out, err := e.ApplyTransition(ctx, Transition{RequestID: 7, Target: target, AdminID: 2, Action: string(target)})
		require.NoError(t, err)
		assert.True(t, out.AlreadyProcessed, target)
		assert.Equal(t, domain.StatusDenied, out.NewStatus)
	}
	assert.Equal(t, []domain.RequestStatus{domain.StatusDenied}, st.writes)
	assert.Len(t, st.logs, 1)
}

func TestApplyTransitionCompletesAfterApproval(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 100)
	ctx := context.Background()

	_, err := e.ApplyTransition(ctx, Transition{RequestID: 7, Target: domain.StatusApproved, AdminID: 1, Action: "approve"})
	require.NoError(t, err)
	out, err := e.ApplyTransition(ctx, Transition{RequestID: 7, Target: domain.StatusCompleted, AdminID: 1, Action: "mark_completed"})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, domain.StatusApproved, out.PreviousStatus)
	assert.Equal(t, []domain.RequestStatus{domain.StatusApproved, domain.StatusCompleted}, st.writes)
	assert.Len(t, st.logs, 2)
	require.Len(t, n.sent, 2)
	assert.Equal(t, `Update: Your request for "Dune" is now completed and available!`, n.sent[1].text)
}

func TestApplyTransitionNotificationIndependence(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 100)
	n.err = errUnreachable

	out, err := e.ApplyTransition(context.Background(), Transition{RequestID: 7, Target: domain.StatusApproved, AdminID: 1, Action: "approve"})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.False(t, out.UserNotified)
	assert.True(t, out.SubmitterFound)
	assert.ErrorIs(t, out.NotifyError, errUnreachable)
	assert.Equal(t, "Request ID 7 status set to approved (User notification failed)", out.AdminSummary)
	assert.Equal(t, domain.StatusApproved, st.requests[7].Status)
	assert.Len(t, st.logs, 1)
}

func TestApplyTransitionSubmitterMissing(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 0)

	out, err := e.ApplyTransition(context.Background(), Transition{RequestID: 7, Target: domain.StatusDenied, AdminID: 1, Action: "deny"})
	require.NoError(t, err)
	assert.False(t, out.SubmitterFound)
	assert.Empty(t, n.sent)
	assert.Equal(t, "Request ID 7 status set to denied (User chat_id not found)", out.AdminSummary)
}

func TestApplyTransitionSubmitterLookupError(t *testing.T) {
	e, st, _ := newEngine(t)
	st.put(dune(), 100)
	st.chatErr = errors.New("db gone")

	out, err := e.ApplyTransition(context.Background(), Transition{RequestID: 7, Target: domain.StatusDenied, AdminID: 1, Action: "deny"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Error(t, out.NotifyError)
	assert.Equal(t, "Request ID 7 status set to denied (User notification failed)", out.AdminSummary)
}

func TestApplyTransitionAdminNoteRoundTrip(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 100)

	out, err := e.ApplyTransition(context.Background(), Transition{
		RequestID: 7, Target: domain.StatusApproved, AdminID: 1, Action: "approve_with_note", AdminNote: ptr("  4K copy next week "),
	})
	require.NoError(t, err)

	require.NotNil(t, st.requests[7].AdminNote)
	assert.Equal(t, "4K copy next week", *st.requests[7].AdminNote)
	require.Len(t, st.logs, 1)
	assert.Equal(t, "4K copy next week", *st.logs[0].Details)
	require.Len(t, n.sent, 1)
	assert.Equal(t, "Great news! Your request for \"Dune\" has been approved by the admin.\n\nAdmin's note: 4K copy next week", n.sent[0].text)
	assert.Equal(t, "Request ID 7 status set to approved with note. User notified.", out.AdminSummary)
}

func TestApplyTransitionKeepsFirstAdminNote(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 100)
	ctx := context.Background()

	_, err := e.ApplyTransition(ctx, Transition{
		RequestID: 7, Target: domain.StatusApproved, AdminID: 1, Action: "approve_with_note", AdminNote: ptr("first"),
	})
	require.NoError(t, err)
	out, err := e.ApplyTransition(ctx, Transition{
		RequestID: 7, Target: domain.StatusCompleted, AdminID: 1, Action: "mark_completed_with_note", AdminNote: ptr("second"),
	})
	require.NoError(t, err)
	assert.True(t, out.Success)

	require.NotNil(t, st.requests[7].AdminNote)
	assert.Equal(t, "first", *st.requests[7].AdminNote)
	require.Len(t, st.logs, 2)
	assert.Equal(t, "second", *st.logs[1].Details)
	require.Len(t, n.sent, 2)
	assert.Contains(t, n.sent[1].text, "Admin's note: second")
}

func TestApplyTransitionBlankNoteIsNoNote(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 100)

	_, err := e.ApplyTransition(context.Background(), Transition{RequestID: 7, Target: domain.StatusApproved, AdminID: 1, AdminNote: ptr("   ")})
	require.NoError(t, err)
	assert.Nil(t, st.requests[7].AdminNote)
	assert.Equal(t, "approved", st.logs[0].Action)
	assert.Equal(t, `Great news! Your request for "Dune" has been approved.`, n.sent[0].text)
}

func TestApplyTransitionAlreadyProcessedIdempotence(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(domain.Request{RequestID: 9, UserID: 5, RequestType: domain.TypeUserApproval, Status: domain.StatusPendingAdmin, Title: "User Access Request: Chani"}, 5)
	ctx := context.Background()
	tr := Transition{RequestID: 9, Target: domain.StatusApproved, AdminID: 1, Action: string(domain.ActionUserApprovedViaTask)}

	first, err := e.ApplyTransition(ctx, tr)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, domain.StatusApproved, first.NewStatus)

	second, err := e.ApplyTransition(ctx, Transition{RequestID: 9, Target: domain.StatusApproved, AdminID: 2, Action: string(domain.ActionUserApprovedViaTask)})
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.False(t, second.Success)
	assert.Equal(t, domain.StatusApproved, second.NewStatus)
	assert.Equal(t, "This task (ID: 9) was already completed with status: approved.", second.AdminSummary)

	assert.Len(t, st.writes, 1)
	assert.Len(t, st.logs, 1)
	assert.Len(t, n.sent, 1)
	assert.Equal(t, accountApprovedText, n.sent[0].text)
}

func TestApplyTransitionUserApprovalCannotCompleteAfterApproval(t *testing.T) {
	e, st, _ := newEngine(t)
	st.put(domain.Request{RequestID: 9, RequestType: domain.TypeUserApproval, Status: domain.StatusApproved, Title: "x"}, 5)

	out, err := e.ApplyTransition(context.Background(), Transition{RequestID: 9, Target: domain.StatusCompleted, AdminID: 1})
	require.NoError(t, err)
	assert.True(t, out.AlreadyProcessed)
	assert.Empty(t, st.writes)
}

func TestApplyTransitionTypeGated(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(domain.Request{RequestID: 3, UserID: 100, RequestType: domain.TypeProblem, Status: domain.StatusPendingAdmin, Title: "buffering on every episode"}, 100)
	ctx := context.Background()

	for _, target := range []domain.RequestStatus{domain.StatusApproved, domain.StatusDenied} {
		_, err := e.ApplyTransition(ctx, Transition{RequestID: 3, Target: target, AdminID: 1})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedTransition)
		var le *Error
		require.ErrorAs(t, err, &le)
		assert.Equal(t, "unsupported_transition", le.Code())
	}
	st.put(dune(), 100)
	_, err := e.ApplyTransition(ctx, Transition{RequestID: 7, Target: domain.StatusAcknowledged, AdminID: 1})
	assert.ErrorIs(t, err, ErrUnsupportedTransition)

	assert.Empty(t, st.writes)
	assert.Empty(t, st.logs)
	assert.Empty(t, n.sent)
}

func TestApplyTransitionProblemFlow(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(domain.Request{RequestID: 3, UserID: 100, RequestType: domain.TypeProblem, Status: domain.StatusPendingAdmin, Title: "buffering"}, 100)
	ctx := context.Background()

	_, err := e.ApplyTransition(ctx, Transition{RequestID: 3, Target: domain.StatusAcknowledged, AdminID: 1, Action: "acknowledge"})
	require.NoError(t, err)
	out, err := e.ApplyTransition(ctx, Transition{RequestID: 3, Target: domain.StatusCompleted, AdminID: 1, Action: "mark_resolved"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.Len(t, n.sent, 2)
	assert.Equal(t, `Update: Your problem report "buffering" has been acknowledged by the admin.`, n.sent[0].text)
	assert.Equal(t, `Update: Your problem report "buffering" has been marked as resolved.`, n.sent[1].text)
}

func TestApplyTransitionNotFound(t *testing.T) {
	e, st, _ := newEngine(t)
	_, err := e.ApplyTransition(context.Background(), Transition{RequestID: 404, Target: domain.StatusApproved, AdminID: 1})
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.Empty(t, st.logs)
	assert.Equal(t, "❗Error: Request ID 404 not found.", NotFoundText(404))
}

func TestApplyTransitionRaceLost(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 100)
	st.beforeUpdate = func(r *domain.Request) { r.Status = domain.StatusDenied }

	out, err := e.ApplyTransition(context.Background(), Transition{RequestID: 7, Target: domain.StatusApproved, AdminID: 1})
	require.NoError(t, err)
	assert.True(t, out.AlreadyProcessed)
	assert.Equal(t, domain.StatusDenied, out.NewStatus)
	assert.Empty(t, st.logs)
	assert.Empty(t, n.sent)
}

func TestApplyTransitionRowVanished(t *testing.T) {
	e, st, _ := newEngine(t)
	st.put(dune(), 100)
	st.beforeUpdate = func(*domain.Request) { delete(st.requests, 7) }

	_, err := e.ApplyTransition(context.Background(), Transition{RequestID: 7, Target: domain.StatusApproved, AdminID: 1})
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Empty(t, st.logs)
}

func TestApplyTransitionWriteErrorSkipsLog(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 100)
	st.updateErr = errors.New("deadlock detected")

	_, err := e.ApplyTransition(context.Background(), Transition{RequestID: 7, Target: domain.StatusApproved, AdminID: 1})
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.ErrorContains(t, err, "deadlock detected")
	assert.Empty(t, st.logs)
	assert.Empty(t, n.sent)
}

func TestApplyTransitionAuditFailureIsFatal(t *testing.T) {
	e, st, n := newEngine(t)
	st.put(dune(), 100)
	st.logErr = errors.New("disk full")

	before := testutil.ToFloat64(metrics.Transitions.WithLabelValues("movie", "approved", "audit_failed"))
	out, err := e.ApplyTransition(context.Background(), Transition{RequestID: 7, Target: domain.StatusApproved, AdminID: 1})
	require.ErrorIs(t, err, ErrAuditFailed)
	assert.False(t, out.Success)
	assert.Equal(t, domain.StatusApproved, st.requests[7].Status)
	assert.Empty(t, n.sent)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Transitions.WithLabelValues("movie", "approved", "audit_failed")))
}

func TestCheckAlreadyProcessed(t *testing.T) {
	e, st, _ := newEngine(t)
	st.put(dune(), 100)
	ctx := context.Background()

	status, done, err := e.CheckAlreadyProcessed(ctx, 7)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, domain.StatusPendingAdmin, status)

	st.requests[7].Status = domain.StatusCompleted
	status, done, err = e.CheckAlreadyProcessed(ctx, 7)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, domain.StatusCompleted, status)

	_, _, err = e.CheckAlreadyProcessed(ctx, 8)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
