// Package store is the Postgres row store behind requests, users and the
// admin audit log. Every method is a single statement.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/telecopter/core/metrics"
	"github.com/m3rciful/telecopter/internal/domain"
)

// Store runs queries against a sqlx handle.
type Store struct {
	db *sqlx.DB
}

// New wraps db.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func observe(op string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveSince(metrics.StoreQueryDuration.WithLabelValues(op), start)
	}
}

func offset(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}

func statusArray[T ~string](values []T) any {
	if values == nil {
		return pq.Array([]string(nil))
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return pq.Array(out)
}

const requestColumns = `request_id, user_id, request_type, status, title, tmdb_id, year, imdb_id,
	user_query, user_note, admin_note, created_at, updated_at`

const userColumns = `user_id, chat_id, first_name, username, approval_status, created_at, last_active_at`

const qGetRequest = `SELECT ` + requestColumns + ` FROM requests WHERE request_id = $1`

// GetRequest returns nil, nil when the row does not exist.
func (s *Store) GetRequest(ctx context.Context, id int64) (*domain.Request, error) {
	defer observe("get_request")()
	var r domain.Request
	if err := s.db.GetContext(ctx, &r, qGetRequest, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get request: %w", err)
	}
	return &r, nil
}

const (
	qUpdateStatusFrom = `UPDATE requests
	SET status = $2, admin_note = COALESCE(admin_note, $3), updated_at = now()
	WHERE request_id = $1 AND status = ANY($4)`
	qUpdateStatus = `UPDATE requests
	SET status = $2, admin_note = COALESCE(admin_note, $3), updated_at = now()
	WHERE request_id = $1`
)

// UpdateRequestStatus sets status, and admin_note when non-nil and the row
// has no note yet; a note is written at most once. With a
// non-empty from the row must currently be in one of those statuses. The
// result reports whether a row was changed.
func (s *Store) UpdateRequestStatus(ctx context.Context, id int64, status domain.RequestStatus, adminNote *string, from []domain.RequestStatus) (bool, error) {
	defer observe("update_request_status")()
	var (
		res sql.Result
		err error
	)
	if len(from) > 0 {
		res, err = s.db.ExecContext(ctx, qUpdateStatusFrom, id, string(status), adminNote, statusArray(from))
	} else {
		res, err = s.db.ExecContext(ctx, qUpdateStatus, id, string(status), adminNote)
	}
	if err != nil {
		return false, fmt.Errorf("store: update request status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: update request status: %w", err)
	}
	return n > 0, nil
}

const qGetUser = `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

// GetUser returns nil, nil for unknown users.
func (s *Store) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	defer observe("get_user")()
	var u domain.User
	if err := s.db.GetContext(ctx, &u, qGetUser, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

const qUpsertUser = `INSERT INTO users (user_id, chat_id, first_name, username)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id) DO UPDATE SET
		chat_id = EXCLUDED.chat_id,
		first_name = EXCLUDED.first_name,
		username = EXCLUDED.username,
		last_active_at = now()
	RETURNING ` + userColumns

// UpsertUser records the profile and refreshes last_active_at. Approval
// status is never touched.
func (s *Store) UpsertUser(ctx context.Context, p domain.UserProfile) (*domain.User, error) {
	defer observe("upsert_user")()
	var username *string
	if p.Username != "" {
		username = &p.Username
	}
	var u domain.User
	if err := s.db.GetContext(ctx, &u, qUpsertUser, p.UserID, p.ChatID, p.FirstName, username); err != nil {
		return nil, fmt.Errorf("store: upsert user: %w", err)
	}
	return &u, nil
}

const qSetApproval = `UPDATE users SET approval_status = $2 WHERE user_id = $1 AND approval_status = ANY($3)`

// SetApprovalStatus moves a user to status if they are currently in from.
func (s *Store) SetApprovalStatus(ctx context.Context, userID int64, status domain.ApprovalStatus, from []domain.ApprovalStatus) (bool, error) {
	defer observe("set_approval_status")()
	res, err := s.db.ExecContext(ctx, qSetApproval, userID, string(status), statusArray(from))
	if err != nil {
		return false, fmt.Errorf("store: set approval status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: set approval status: %w", err)
	}
	return n > 0, nil
}

const qSeedAdmin = `INSERT INTO users (user_id, chat_id, first_name, approval_status)
	VALUES ($1, $1, 'admin', 'approved')
	ON CONFLICT (user_id) DO UPDATE SET approval_status = 'approved'`

// SeedAdmin makes sure the configured admin exists and is approved.
func (s *Store) SeedAdmin(ctx context.Context, userID int64) error {
	return SeedAdmin(ctx, s.db, userID)
}

// SeedAdmin runs the admin upsert on any handle, e.g. inside a seeder.
func SeedAdmin(ctx context.Context, db sqlx.ExecerContext, userID int64) error {
	defer observe("seed_admin")()
	if _, err := db.ExecContext(ctx, qSeedAdmin, userID); err != nil {
		return fmt.Errorf("store: seed admin: %w", err)
	}
	return nil
}

const qSubmitterChat = `SELECT u.chat_id FROM requests r JOIN users u ON u.user_id = r.user_id WHERE r.request_id = $1`

// GetSubmitterChatID resolves the chat of the user who filed requestID.
func (s *Store) GetSubmitterChatID(ctx context.Context, requestID int64) (int64, bool, error) {
	defer observe("get_submitter_chat")()
	var chatID int64
	if err := s.db.GetContext(ctx, &chatID, qSubmitterChat, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("store: get submitter chat: %w", err)
	}
	return chatID, true, nil
}

const qAppendLog = `INSERT INTO admin_logs (admin_user_id, request_id, action, details) VALUES ($1, $2, $3, $4)`

// AppendAdminLog inserts one audit entry.
func (s *Store) AppendAdminLog(ctx context.Context, entry domain.AdminLog) error {
	defer observe("append_admin_log")()
	if _, err := s.db.ExecContext(ctx, qAppendLog, entry.AdminUserID, entry.RequestID, entry.Action, entry.Details); err != nil {
		return fmt.Errorf("store: append admin log: %w", err)
	}
	return nil
}

const qCreateRequest = `INSERT INTO requests (user_id, request_type, title, tmdb_id, year, imdb_id, user_query, user_note)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + requestColumns

// CreateRequest inserts a pending request and returns the stored row.
func (s *Store) CreateRequest(ctx context.Context, nr domain.NewRequest) (*domain.Request, error) {
	defer observe("create_request")()
	if !nr.RequestType.Valid() {
		return nil, fmt.Errorf("store: create request: invalid type %q", nr.RequestType)
	}
	var r domain.Request
	err := s.db.GetContext(ctx, &r, qCreateRequest,
		nr.UserID, string(nr.RequestType), nr.Title, nr.TMDBID, nr.Year, nr.IMDBID, nr.UserQuery, nr.UserNote)
	if err != nil {
		return nil, fmt.Errorf("store: create request: %w", err)
	}
	return &r, nil
}

const (
	pendingWhere = ` WHERE status = ANY($1) AND ($2::text[] IS NULL OR request_type = ANY($2))`
	qListPending = `SELECT ` + requestColumns + ` FROM requests` + pendingWhere + `
	ORDER BY CASE status WHEN 'pending_admin' THEN 0 WHEN 'acknowledged' THEN 1 ELSE 2 END,
		created_at ASC, request_id ASC
	LIMIT $3 OFFSET $4`
	qCountPending = `SELECT COUNT(*) FROM requests` + pendingWhere
)

// ListPending pages through actionable requests, optionally restricted to
// filter types. Ordering is status priority, then age, then id, so pages
// stay stable while new rows arrive.
func (s *Store) ListPending(ctx context.Context, filter []domain.RequestType, page, pageSize int) ([]domain.Request, int, error) {
	defer observe("list_pending")()
	limit, off := offset(page, pageSize)
	var types any = statusArray[domain.RequestType](nil)
	if len(filter) > 0 {
		types = statusArray(filter)
	}
	statuses := statusArray(domain.ActionableStatuses)

	rows := []domain.Request{}
	if err := s.db.SelectContext(ctx, &rows, qListPending, statuses, types, limit, off); err != nil {
		return nil, 0, fmt.Errorf("store: list pending: %w", err)
	}
	var total int
	if err := s.db.GetContext(ctx, &total, qCountPending, statuses, types); err != nil {
		return nil, 0, fmt.Errorf("store: count pending: %w", err)
	}
	return rows, total, nil
}

const (
	qListUser = `SELECT ` + requestColumns + ` FROM requests WHERE user_id = $1
	ORDER BY created_at DESC, request_id DESC LIMIT $2 OFFSET $3`
	qCountUser = `SELECT COUNT(*) FROM requests WHERE user_id = $1`
)

// ListUserRequests pages through a user's own requests, newest first.
func (s *Store) ListUserRequests(ctx context.Context, userID int64, page, pageSize int) ([]domain.Request, int, error) {
	defer observe("list_user_requests")()
	limit, off := offset(page, pageSize)
	rows := []domain.Request{}
	if err := s.db.SelectContext(ctx, &rows, qListUser, userID, limit, off); err != nil {
		return nil, 0, fmt.Errorf("store: list user requests: %w", err)
	}
	var total int
	if err := s.db.GetContext(ctx, &total, qCountUser, userID); err != nil {
		return nil, 0, fmt.Errorf("store: count user requests: %w", err)
	}
	return rows, total, nil
}

const qOpenApproval = `SELECT ` + requestColumns + ` FROM requests
	WHERE user_id = $1 AND request_type = 'user_approval' AND status = 'pending_admin'
	ORDER BY request_id DESC LIMIT 1`

// FindOpenApprovalTask returns the pending account approval task of userID, if any.
func (s *Store) FindOpenApprovalTask(ctx context.Context, userID int64) (*domain.Request, error) {
	defer observe("find_open_approval")()
	var r domain.Request
	if err := s.db.GetContext(ctx, &r, qOpenApproval, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find open approval task: %w", err)
	}
	return &r, nil
}
