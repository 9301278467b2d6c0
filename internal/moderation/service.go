// Package moderation drives the admin side of the bot: action buttons,
// note capture, account approval tasks and the pending task list.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/core/telegram/format"
	"github.com/m3rciful/telecopter/core/telegram/state"
	"github.com/m3rciful/telecopter/internal/domain"
	"github.com/m3rciful/telecopter/internal/lifecycle"
)

const component = "service.moderation"

// StepTypingAdminNote waits for the admin to type a note for a pending action.
const StepTypingAdminNote state.Step = "typing_admin_note"

const (
	keyRequestID = "request_id"
	keyAction    = "action"
)

// ErrUnknownAction is returned for action keys that do not parse.
var ErrUnknownAction = errors.New("moderation: unknown action")

// Engine is the lifecycle engine as seen by moderation.
type Engine interface {
	ApplyTransition(ctx context.Context, tr lifecycle.Transition) (lifecycle.Outcome, error)
	CheckAlreadyProcessed(ctx context.Context, requestID int64) (domain.RequestStatus, bool, error)
}

// Store is the part of the row store used by moderation.
type Store interface {
	GetRequest(ctx context.Context, id int64) (*domain.Request, error)
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	UpsertUser(ctx context.Context, p domain.UserProfile) (*domain.User, error)
	SetApprovalStatus(ctx context.Context, userID int64, status domain.ApprovalStatus, from []domain.ApprovalStatus) (bool, error)
	CreateRequest(ctx context.Context, nr domain.NewRequest) (*domain.Request, error)
	ListPending(ctx context.Context, filter []domain.RequestType, page, pageSize int) ([]domain.Request, int, error)
	FindOpenApprovalTask(ctx context.Context, userID int64) (*domain.Request, error)
}

// AdminNotifier announces new tasks to the admin.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, req domain.Request) error
}

// ResultKind says what Act or SubmitNote did.
type ResultKind int

const (
	ResultApplied ResultKind = iota
	ResultAwaitingNote
	ResultClosed
	ResultAlreadyProcessed
)

// Result is returned to the Telegram layer for rendering.
type Result struct {
	Kind      ResultKind
	RequestID int64
	Action    domain.Action
	Outcome   lifecycle.Outcome
	// Message is the admin-facing summary line.
	Message string
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize overrides the task list page size.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// Service implements admin flows on top of the lifecycle engine.
type Service struct {
	engine   Engine
	store    Store
	tracker  state.Manager
	admins   AdminNotifier
	pageSize int
}

// New builds a Service.
func New(engine Engine, store Store, tracker state.Manager, admins AdminNotifier, opts ...Option) *Service {
	s := &Service{engine: engine, store: store, tracker: tracker, admins: admins, pageSize: domain.DefaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Act handles one admin action button on requestID.
func (s *Service) Act(ctx context.Context, adminID int64, actionKey string, requestID int64) (Result, error) {
	ctx = logger.WithRequestID(ctx, requestID)
	spec, err := domain.ParseAction(actionKey)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionKey)
	}
	res := Result{RequestID: requestID, Action: spec.Key}

	if spec.Close {
		res.Kind = ResultClosed
		res.Message = fmt.Sprintf("Task ID %d closed in this view.", requestID)
		return res, nil
	}

	if spec.WantsNote {
		req, err := s.store.GetRequest(ctx, requestID)
		if err != nil {
			return Result{}, err
		}
		if req == nil {
			return Result{}, &lifecycle.Error{Kind: lifecycle.ErrRequestNotFound, RequestID: requestID}
		}
		if !domain.CanTarget(req.RequestType, spec.Target) {
			return Result{}, &lifecycle.Error{Kind: lifecycle.ErrUnsupportedTransition, RequestID: requestID}
		}
		if !domain.CanMove(req.RequestType, req.Status, spec.Target) {
			return alreadyProcessed(requestID, spec.Key, req.Status), nil
		}
		s.tracker.Clear(adminID)
		s.tracker.SetStep(adminID, StepTypingAdminNote, map[string]string{
			keyRequestID: strconv.FormatInt(requestID, 10),
			keyAction:    string(spec.Base),
		})
		logger.Info(ctx, component, "moderation.await_note", slog.String("action", string(spec.Base)))
		res.Kind = ResultAwaitingNote
		res.Message = fmt.Sprintf("Please send the note for Request ID %d to be %s. Or /cancel.", requestID, pastTense(spec.Base))
		return res, nil
	}

	return s.apply(ctx, adminID, requestID, spec.Target, spec.Key, nil)
}

// SubmitNote completes a pending *_with_note action with the typed note.
func (s *Service) SubmitNote(ctx context.Context, adminID int64, note string) (Result, error) {
	requestID, err := state.TempInt64(s.tracker, adminID, keyRequestID)
	base, ok := s.tracker.GetTemp(adminID, keyAction)
	s.tracker.Clear(adminID)
	if err != nil || !ok {
		return Result{}, state.ErrExpiredSelection
	}
	spec, perr := domain.ParseAction(base)
	if perr != nil || spec.Close {
		return Result{}, state.ErrExpiredSelection
	}
	ctx = logger.WithRequestID(ctx, requestID)
	trimmed := format.Truncate(strings.TrimSpace(note), domain.MaxNoteLength)
	if trimmed == "" {
		return s.apply(ctx, adminID, requestID, spec.Target, spec.Base, nil)
	}
	return s.apply(ctx, adminID, requestID, spec.Target, domain.Action(string(spec.Base)+"_with_note"), &trimmed)
}

func (s *Service) apply(ctx context.Context, adminID, requestID int64, target domain.RequestStatus, action domain.Action, note *string) (Result, error) {
	out, err := s.engine.ApplyTransition(ctx, lifecycle.Transition{
		RequestID: requestID,
		Target:    target,
		AdminID:   adminID,
		Action:    string(action),
		AdminNote: note,
	})
	if err != nil {
		return Result{}, err
	}
	res := Result{Kind: ResultApplied, RequestID: requestID, Action: action, Outcome: out, Message: out.AdminSummary}
	if out.AlreadyProcessed {
		res.Kind = ResultAlreadyProcessed
	}
	return res, nil
}

// Tasks lists actionable requests of every type.
func (s *Service) Tasks(ctx context.Context, page int) (domain.RequestPage, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := s.store.ListPending(ctx, nil, page, s.pageSize)
	if err != nil {
		return domain.RequestPage{}, err
	}
	return domain.RequestPage{Items: items, Page: page, PageSize: s.pageSize, Total: total}, nil
}

// CancelNote drops a pending note capture.
func (s *Service) CancelNote(adminID int64) bool {
	return s.tracker.Clear(adminID)
}

func alreadyProcessed(requestID int64, action domain.Action, status domain.RequestStatus) Result {
	out := lifecycle.Outcome{RequestID: requestID, NewStatus: status, AlreadyProcessed: true}
	return Result{
		Kind:      ResultAlreadyProcessed,
		RequestID: requestID,
		Action:    action,
		Outcome:   out,
		Message:   lifecycle.AdminSummary(out),
	}
}

func pastTense(a domain.Action) string {
	switch a {
	case domain.ActionApprove:
		return "approved"
	case domain.ActionDeny:
		return "denied"
	case domain.ActionMarkCompleted:
		return "marked completed"
	case domain.ActionMarkResolved:
		return "marked resolved"
	}
	return string(a)
}
