// Package lifecycle applies admin status transitions to requests. Each call
// writes the row, appends one audit entry and then tries to notify the
// submitter, in that order.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/core/metrics"
	"github.com/m3rciful/telecopter/internal/domain"
)

const component = "service.lifecycle"

// Store is the slice of the row store the engine depends on.
type Store interface {
	GetRequest(ctx context.Context, id int64) (*domain.Request, error)
	UpdateRequestStatus(ctx context.Context, id int64, status domain.RequestStatus, adminNote *string, from []domain.RequestStatus) (bool, error)
	AppendAdminLog(ctx context.Context, entry domain.AdminLog) error
	GetSubmitterChatID(ctx context.Context, requestID int64) (int64, bool, error)
}

// Notifier delivers a plain text message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

var errNoNotifier = errors.New("no notifier configured")

// Transition is one admin decision on one request.
type Transition struct {
	RequestID int64
	Target    domain.RequestStatus
	AdminID   int64
	// Action is the audit key, e.g. "approve_with_note".
	Action    string
	AdminNote *string
}

// Outcome reports what ApplyTransition did.
type Outcome struct {
	RequestID        int64
	RequestType      domain.RequestType
	Success          bool
	PreviousStatus   domain.RequestStatus
	NewStatus        domain.RequestStatus
	WithNote         bool
	SubmitterFound   bool
	UserNotified     bool
	AlreadyProcessed bool
	AdminSummary     string
	Notification     string
	// NotifyError is the delivery failure, if any. It never fails the call.
	NotifyError error
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifyTimeout bounds a single delivery attempt.
func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.notifyTimeout = d
		}
	}
}

// Engine is safe for concurrent use; it holds no per-request state.
type Engine struct {
	store         Store
	notifier      Notifier
	notifyTimeout time.Duration
}

// New builds an engine over store and notifier.
func New(store Store, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{store: store, notifier: notifier, notifyTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplyTransition moves one request to tr.Target.
//
// A request that is no longer in a legal source status yields an Outcome
// with AlreadyProcessed set and a nil error; nothing is written, logged or
// sent. Persistence and audit failures are returned as *Error.
func (e *Engine) ApplyTransition(ctx context.Context, tr Transition) (out Outcome, err error) {
	ctx = logger.WithRequestID(ctx, tr.RequestID)
	note := normalizeNote(tr.AdminNote)
	action := strings.TrimSpace(tr.Action)
	if action == "" {
		action = string(tr.Target)
	}
	out = Outcome{RequestID: tr.RequestID, NewStatus: tr.Target}
	defer func() { e.record(ctx, tr.Target, action, out, err) }()

	req, err := e.store.GetRequest(ctx, tr.RequestID)
	if err != nil {
		return out, newError(ErrPersistenceFailed, tr.RequestID, err)
	}
	if req == nil {
		return out, newError(ErrRequestNotFound, tr.RequestID, nil)
	}
	out.RequestType = req.RequestType
	out.PreviousStatus = req.Status

	if !domain.CanTarget(req.RequestType, tr.Target) {
		return out, newError(ErrUnsupportedTransition, tr.RequestID,
			fmt.Errorf("%s request cannot move to %s", req.RequestType, tr.Target))
	}
	sources := domain.AllowedSources(req.RequestType, tr.Target)
	if !slices.Contains(sources, req.Status) {
		return alreadyProcessed(out, req.Status), nil
	}

	text := NotificationText(req.RequestType, tr.Target, req.Title, note)

	// The row keeps its first note; later ones live in the admin log.
	stored := note
	if req.AdminNote != nil {
		stored = nil
	}
	written, err := e.store.UpdateRequestStatus(ctx, tr.RequestID, tr.Target, stored, sources)
	if err != nil {
		return out, newError(ErrPersistenceFailed, tr.RequestID, err)
	}
	if !written {
		// Lost a race or the row vanished; re-read to tell which.
		cur, rerr := e.store.GetRequest(ctx, tr.RequestID)
		if rerr != nil {
			return out, newError(ErrPersistenceFailed, tr.RequestID, rerr)
		}
		if cur == nil || slices.Contains(sources, cur.Status) {
			return out, newError(ErrPersistenceFailed, tr.RequestID, nil)
		}
		return alreadyProcessed(out, cur.Status), nil
	}
	out.Success = true
	out.WithNote = note != nil
	out.Notification = text

	id := tr.RequestID
	entry := domain.AdminLog{AdminUserID: tr.AdminID, RequestID: &id, Action: action, Details: note}
	if err := e.store.AppendAdminLog(ctx, entry); err != nil {
		// The status is already written; NewStatus still reports it.
		out.Success = false
		return out, newError(ErrAuditFailed, tr.RequestID, err)
	}

	e.notify(ctx, &out)
	out.AdminSummary = AdminSummary(out)
	return out, nil
}

// CheckAlreadyProcessed returns the current status of a request and whether
// it has left pending_admin.
func (e *Engine) CheckAlreadyProcessed(ctx context.Context, requestID int64) (domain.RequestStatus, bool, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", false, newError(ErrPersistenceFailed, requestID, err)
	}
	if req == nil {
		return "", false, newError(ErrRequestNotFound, requestID, nil)
	}
	return req.Status, req.Status != domain.StatusPendingAdmin, nil
}

func (e *Engine) notify(ctx context.Context, out *Outcome) {
	chatID, found, err := e.store.GetSubmitterChatID(ctx, out.RequestID)
	switch {
	case err != nil:
		out.NotifyError = fmt.Errorf("resolve submitter: %w", err)
		metrics.Notifications.WithLabelValues("lookup_failed").Inc()
		logger.Warn(ctx, component, "lifecycle.notify", slog.String("status", "fail"), slog.Any("err", err))
		return
	case !found:
		metrics.Notifications.WithLabelValues("no_chat").Inc()
		logger.Warn(ctx, component, "lifecycle.notify", slog.String("status", "skip"), slog.String("reason", "no_chat"))
		return
	}
	out.SubmitterFound = true
	if out.Notification == "" {
		metrics.Notifications.WithLabelValues("no_template").Inc()
		return
	}
	if e.notifier == nil {
		out.NotifyError = errNoNotifier
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}

	nctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()
	if err := e.notifier.Notify(nctx, chatID, out.Notification); err != nil {
		out.NotifyError = err
		metrics.Notifications.WithLabelValues("failed").Inc()
		logger.Warn(ctx, component, "lifecycle.notify",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			slog.Any("err", err),
		)
		return
	}
	out.UserNotified = true
	metrics.Notifications.WithLabelValues("ok").Inc()
}

func (e *Engine) record(ctx context.Context, target domain.RequestStatus, action string, out Outcome, err error) {
	result := "ok"
	level := slog.LevelInfo
	switch {
	case out.AlreadyProcessed:
		result = "already_processed"
	case err != nil:
		var le *Error
		if errors.As(err, &le) {
			result = le.Code()
		} else {
			result = "error"
		}
		level = slog.LevelWarn
		if errors.Is(err, ErrPersistenceFailed) || errors.Is(err, ErrAuditFailed) {
			level = slog.LevelError
		}
	}
	reqType := string(out.RequestType)
	if reqType == "" {
		reqType = "unknown"
	}
	metrics.Transitions.WithLabelValues(reqType, string(target), result).Inc()

	status := logger.Status(err)
	if out.AlreadyProcessed {
		status = "already_processed"
	}
	logger.Event(ctx, component, level, "lifecycle.transition",
		slog.String("status", status),
		slog.String("request_type", string(out.RequestType)),
		slog.String("action", action),
		slog.String("from_status", string(out.PreviousStatus)),
		slog.String("target_status", string(target)),
		slog.Bool("notified", out.UserNotified),
		slog.Any("err", err),
	)
}

func alreadyProcessed(out Outcome, current domain.RequestStatus) Outcome {
	out.AlreadyProcessed = true
	out.Success = false
	out.NewStatus = current
	out.AdminSummary = AdminSummary(out)
	return out
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
