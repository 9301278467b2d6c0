// Package submission drives the user side of the bot: media search and
// selection, manual requests, problem reports and request history.
package submission

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/core/telegram/format"
	"github.com/m3rciful/telecopter/core/telegram/state"
	"github.com/m3rciful/telecopter/internal/domain"
	"github.com/m3rciful/telecopter/internal/tmdb"
)

const component = "service.submission"

const (
	StepTypingMediaName state.Step = "typing_media_name"
	StepSelectMedia     state.Step = "select_media"
	StepConfirmMedia    state.Step = "confirm_media"
	StepTypingUserNote  state.Step = "typing_user_note"
	StepTypingManual    state.Step = "typing_manual_request_description"
	StepTypingProblem   state.Step = "typing_problem"
)

const (
	keyQuery     = "query"
	keyResults   = "results"
	keySelection = "selection"
)

// ErrInputTooShort is returned when typed text is below the flow minimum.
var ErrInputTooShort = errors.New("submission: input too short")

// Store is the part of the row store used by submissions.
type Store interface {
	CreateRequest(ctx context.Context, nr domain.NewRequest) (*domain.Request, error)
	ListUserRequests(ctx context.Context, userID int64, page, pageSize int) ([]domain.Request, int, error)
}

// Searcher looks up media metadata.
type Searcher interface {
	Search(ctx context.Context, query string) ([]tmdb.Result, error)
	Details(ctx context.Context, id int64, mediaType string) (*tmdb.Details, error)
}

// AdminNotifier announces new requests to the admin.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, req domain.Request) error
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize overrides the history page size.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// Service holds no per-user state of its own; everything lives in the tracker.
type Service struct {
	store    Store
	tracker  state.Manager
	search   Searcher
	admins   AdminNotifier
	pageSize int
}

// New builds a Service.
func New(store Store, tracker state.Manager, search Searcher, admins AdminNotifier, opts ...Option) *Service {
	s := &Service{store: store, tracker: tracker, search: search, admins: admins, pageSize: domain.DefaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartMediaSearch begins the media flow, dropping any previous one.
func (s *Service) StartMediaSearch(userID int64) {
	s.tracker.Clear(userID)
	s.tracker.SetStep(userID, StepTypingMediaName, nil)
}

// Search looks query up and offers the results for selection. With no
// results the user stays on the query step.
func (s *Service) Search(ctx context.Context, userID int64, query string) ([]tmdb.Result, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < domain.MinQueryLength {
		return nil, ErrInputTooShort
	}
	results, err := s.search.Search(ctx, query)
	if err != nil {
		s.tracker.SetStep(userID, StepTypingMediaName, map[string]string{keyQuery: query})
		return nil, err
	}
	if len(results) == 0 {
		s.tracker.SetStep(userID, StepTypingMediaName, map[string]string{keyQuery: query})
		return nil, nil
	}
	s.tracker.SetStep(userID, StepSelectMedia, map[string]string{keyQuery: query})
	if err := state.SetTempJSON(s.tracker, userID, keyResults, results); err != nil {
		s.tracker.Clear(userID)
		return nil, err
	}
	return results, nil
}

// Select fetches the chosen search result and asks for confirmation. A
// choice that is not among the stored results is treated as expired.
func (s *Service) Select(ctx context.Context, userID, tmdbID int64, mediaType string) (*tmdb.Details, error) {
	results, err := state.TempJSON[[]tmdb.Result](s.tracker, userID, keyResults)
	if err != nil {
		s.tracker.Clear(userID)
		return nil, state.ErrExpiredSelection
	}
	if !slices.ContainsFunc(results, func(r tmdb.Result) bool { return r.TMDBID == tmdbID && r.MediaType == mediaType }) {
		s.tracker.Clear(userID)
		return nil, state.ErrExpiredSelection
	}
	details, err := s.search.Details(ctx, tmdbID, mediaType)
	if err != nil {
		return nil, err
	}
	query, _ := s.tracker.GetTemp(userID, keyQuery)
	s.tracker.SetStep(userID, StepConfirmMedia, map[string]string{keyQuery: query})
	if err := state.SetTempJSON(s.tracker, userID, keySelection, details); err != nil {
		s.tracker.Clear(userID)
		return nil, err
	}
	return details, nil
}

// Confirm files the selected media, or moves to the note step when
// withNote is set. The returned request is nil in the latter case.
func (s *Service) Confirm(ctx context.Context, userID int64, withNote bool) (*domain.Request, error) {
	sel, err := state.TempJSON[tmdb.Details](s.tracker, userID, keySelection)
	if err != nil {
		s.tracker.Clear(userID)
		return nil, state.ErrExpiredSelection
	}
	if withNote {
		s.tracker.SetStep(userID, StepTypingUserNote, s.tracker.Scratch(userID))
		return nil, nil
	}
	return s.createMedia(ctx, userID, sel, nil)
}

// SubmitNote files the selected media with the user's note.
func (s *Service) SubmitNote(ctx context.Context, userID int64, note string) (*domain.Request, error) {
	sel, err := state.TempJSON[tmdb.Details](s.tracker, userID, keySelection)
	if err != nil {
		s.tracker.Clear(userID)
		return nil, state.ErrExpiredSelection
	}
	var notePtr *string
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		trimmed = format.Truncate(trimmed, domain.MaxNoteLength)
		notePtr = &trimmed
	}
	return s.createMedia(ctx, userID, sel, notePtr)
}

func (s *Service) createMedia(ctx context.Context, userID int64, sel tmdb.Details, note *string) (*domain.Request, error) {
	reqType := domain.TypeMovie
	if sel.MediaType == tmdb.MediaTV {
		reqType = domain.TypeTV
	}
	tmdbID := sel.TMDBID
	nr := domain.NewRequest{
		UserID:      userID,
		RequestType: reqType,
		Title:       sel.Title,
		TMDBID:      &tmdbID,
		Year:        sel.Year,
		IMDBID:      optional(sel.IMDBID),
		UserQuery:   s.query(userID),
		UserNote:    note,
	}
	req, err := s.create(ctx, nr)
	if err != nil {
		return nil, err
	}
	s.tracker.Clear(userID)
	return req, nil
}

// StartManual begins a manual request from scratch.
func (s *Service) StartManual(userID int64) {
	s.tracker.Clear(userID)
	s.tracker.SetStep(userID, StepTypingManual, nil)
}

// SwitchToManual moves from the media flow to a manual request, keeping
// the original query.
func (s *Service) SwitchToManual(userID int64) {
	scratch := map[string]string{}
	if q, ok := s.tracker.GetTemp(userID, keyQuery); ok && q != "" {
		scratch[keyQuery] = q
	}
	s.tracker.SetStep(userID, StepTypingManual, scratch)
}

// SubmitManual files a free-form media request.
func (s *Service) SubmitManual(ctx context.Context, userID int64, description string) (*domain.Request, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) < domain.MinManualLength {
		return nil, ErrInputTooShort
	}
	req, err := s.create(ctx, domain.NewRequest{
		UserID:      userID,
		RequestType: domain.TypeManualMedia,
		Title:       format.Truncate(description, domain.MaxReportLength),
		UserQuery:   s.query(userID),
	})
	if err != nil {
		return nil, err
	}
	s.tracker.Clear(userID)
	return req, nil
}

// StartProblem begins a problem report.
func (s *Service) StartProblem(userID int64) {
	s.tracker.Clear(userID)
	s.tracker.SetStep(userID, StepTypingProblem, nil)
}

// SubmitProblem files a problem report.
func (s *Service) SubmitProblem(ctx context.Context, userID int64, text string) (*domain.Request, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < domain.MinProblemLength {
		return nil, ErrInputTooShort
	}
	req, err := s.create(ctx, domain.NewRequest{
		UserID:      userID,
		RequestType: domain.TypeProblem,
		Title:       format.Truncate(text, domain.MaxReportLength),
	})
	if err != nil {
		return nil, err
	}
	s.tracker.Clear(userID)
	return req, nil
}

// History returns a page of the user's own requests, newest first.
func (s *Service) History(ctx context.Context, userID int64, page int) (domain.RequestPage, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := s.store.ListUserRequests(ctx, userID, page, s.pageSize)
	if err != nil {
		return domain.RequestPage{}, err
	}
	return domain.RequestPage{Items: items, Page: page, PageSize: s.pageSize, Total: total}, nil
}

// Cancel clears any active flow and reports whether one existed.
func (s *Service) Cancel(userID int64) bool {
	return s.tracker.Clear(userID)
}

func (s *Service) create(ctx context.Context, nr domain.NewRequest) (*domain.Request, error) {
	req, err := s.store.CreateRequest(ctx, nr)
	if err != nil {
		logger.Error(ctx, component, "submission.create",
			slog.String("status", "fail"),
			slog.String("request_type", string(nr.RequestType)),
			slog.Any("err", err),
		)
		return nil, err
	}
	ctx = logger.WithRequestID(ctx, req.RequestID)
	logger.Info(ctx, component, "submission.create",
		slog.String("status", "ok"),
		slog.String("request_type", string(req.RequestType)),
	)
	if s.admins != nil {
		if err := s.admins.NotifyAdmins(ctx, *req); err != nil {
			logger.Warn(ctx, component, "submission.notify_admin",
				slog.String("status", "fail"),
				slog.Any("err", err),
			)
		}
	}
	return req, nil
}

func (s *Service) query(userID int64) *string {
	q, ok := s.tracker.GetTemp(userID, keyQuery)
	if !ok {
		return nil
	}
	return optional(q)
}

func optional(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
