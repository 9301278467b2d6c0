package domain

import "time"

// User is a Telegram account known to the bot.
type User struct {
	UserID         int64          `db:"user_id"`
	ChatID         int64          `db:"chat_id"`
	FirstName      string         `db:"first_name"`
	Username       *string        `db:"username"`
	ApprovalStatus ApprovalStatus `db:"approval_status"`
	CreatedAt      time.Time      `db:"created_at"`
	LastActiveAt   time.Time      `db:"last_active_at"`
}

// DisplayName returns "First (@handle)" or just the first name.
func (u User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return u.FirstName + " (@" + *u.Username + ")"
	}
	return u.FirstName
}

// UserProfile is the identity reported by Telegram on each update.
type UserProfile struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Username  string
}

// Request is one row of the requests table.
type Request struct {
	RequestID   int64         `db:"request_id"`
	UserID      int64         `db:"user_id"`
	RequestType RequestType   `db:"request_type"`
	Status      RequestStatus `db:"status"`
	Title       string        `db:"title"`
	TMDBID      *int64        `db:"tmdb_id"`
	Year        *int          `db:"year"`
	IMDBID      *string       `db:"imdb_id"`
	UserQuery   *string       `db:"user_query"`
	UserNote    *string       `db:"user_note"`
	AdminNote   *string       `db:"admin_note"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

// NewRequest carries the fields a submitter provides.
type NewRequest struct {
	UserID      int64
	RequestType RequestType
	Title       string
	TMDBID      *int64
	Year        *int
	IMDBID      *string
	UserQuery   *string
	UserNote    *string
}

// AdminLog is one append-only audit entry.
type AdminLog struct {
	LogID       int64     `db:"log_id"`
	AdminUserID int64     `db:"admin_user_id"`
	RequestID   *int64    `db:"request_id"`
	Action      string    `db:"action"`
	Details     *string   `db:"details"`
	CreatedAt   time.Time `db:"created_at"`
}

// RequestPage is one page of a paginated listing. Page is 1-based.
type RequestPage struct {
	Items    []Request
	Page     int
	PageSize int
	Total    int
}

// Pages returns the number of pages, at least 1.
func (p RequestPage) Pages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// HasNext reports whether a further page exists.
func (p RequestPage) HasNext() bool { return p.Page < p.Pages() }
