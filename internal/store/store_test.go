package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/telecopter/internal/domain"
)

var requestCols = []string{
	"request_id", "user_id", "request_type", "status", "title", "tmdb_id", "year", "imdb_id",
	"user_query", "user_note", "admin_note", "created_at", "updated_at",
}

var userCols = []string{"user_id", "chat_id", "first_name", "username", "approval_status", "created_at", "last_active_at"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func duneRow(status string) *sqlmock.Rows {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return sqlmock.NewRows(requestCols).
		AddRow(int64(7), int64(100), "movie", status, "Dune", int64(438631), 2021, "tt1160419",
			"dune", nil, nil, now, now)
}

func TestGetRequest(t *testing.T) {
	tests := []struct {
		name         string
		mockBehavior func(mock sqlmock.Sqlmock)
		wantNil      bool
		wantErr      bool
	}{
		{
			name: "found",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(qGetRequest)).WithArgs(int64(7)).
					WillReturnRows(duneRow("pending_admin"))
			},
		},
		{
			name: "absent",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(qGetRequest)).WithArgs(int64(7)).
					WillReturnError(sql.ErrNoRows)
			},
			wantNil: true,
		},
		{
			name: "driver error",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(qGetRequest)).WithArgs(int64(7)).
					WillReturnError(errors.New("conn reset"))
			},
			wantNil: true,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t)
			tt.mockBehavior(mock)

			got, err := s.GetRequest(context.Background(), 7)
			if tt.wantErr {
				assert.ErrorContains(t, err, "store: get request")
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, domain.TypeMovie, got.RequestType)
				assert.Equal(t, domain.StatusPendingAdmin, got.Status)
				require.NotNil(t, got.TMDBID)
				assert.Equal(t, int64(438631), *got.TMDBID)
				assert.Nil(t, got.AdminNote)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateRequestStatusConditional(t *testing.T) {
	s, mock := newMock(t)
	note := "4K copy"
	from := []domain.RequestStatus{domain.StatusPendingAdmin}
	for _, q := range []string{qUpdateStatusFrom, qUpdateStatus} {
		assert.Contains(t, q, "admin_note = COALESCE(admin_note, $3)", "an existing note must win")
	}

	mock.ExpectExec(regexp.QuoteMeta(qUpdateStatusFrom)).
		WithArgs(int64(7), "approved", note, pq.Array([]string{"pending_admin"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(qUpdateStatusFrom)).
		WithArgs(int64(7), "denied", nil, pq.Array([]string{"pending_admin"})).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.UpdateRequestStatus(context.Background(), 7, domain.StatusApproved, &note, from)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UpdateRequestStatus(context.Background(), 7, domain.StatusDenied, nil, from)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRequestStatusUnconditional(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(qUpdateStatus)).
		WithArgs(int64(7), "completed", nil).
		WillReturnError(errors.New("boom"))

	_, err := s.UpdateRequestStatus(context.Background(), 7, domain.StatusCompleted, nil, nil)
	assert.ErrorContains(t, err, "store: update request status")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUser(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(qUpsertUser)).
		WithArgs(int64(100), int64(100), "Paul", "muaddib").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(100), int64(100), "Paul", "muaddib", "new", now, now))

	u, err := s.UpsertUser(context.Background(), domain.UserProfile{UserID: 100, ChatID: 100, FirstName: "Paul", Username: "muaddib"})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalNew, u.ApprovalStatus)
	assert.Equal(t, "Paul (@muaddib)", u.DisplayName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUserWithoutUsername(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(qUpsertUser)).
		WithArgs(int64(5), int64(5), "Chani", nil).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(5), int64(5), "Chani", nil, "approved", now, now))

	u, err := s.UpsertUser(context.Background(), domain.UserProfile{UserID: 5, ChatID: 5, FirstName: "Chani"})
	require.NoError(t, err)
	assert.Nil(t, u.Username)
	assert.Equal(t, "Chani", u.DisplayName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserAbsent(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(qGetUser)).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	u, err := s.GetUser(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetApprovalStatus(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(qSetApproval)).
		WithArgs(int64(5), "pending_approval", pq.Array([]string{"new"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.SetApprovalStatus(context.Background(), 5, domain.ApprovalPending, []domain.ApprovalStatus{domain.ApprovalNew})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdmin(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(qSeedAdmin)).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SeedAdmin(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubmitterChatID(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(qSubmitterChat)).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"chat_id"}).AddRow(int64(100)))
	mock.ExpectQuery(regexp.QuoteMeta(qSubmitterChat)).WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	chat, ok, err := s.GetSubmitterChatID(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(100), chat)

	_, ok, err = s.GetSubmitterChatID(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendAdminLog(t *testing.T) {
	s, mock := newMock(t)
	reqID := int64(7)
	details := "Request ID 7 status set to approved. User notified."
	mock.ExpectExec(regexp.QuoteMeta(qAppendLog)).
		WithArgs(int64(1), reqID, "approve", details).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.AppendAdminLog(context.Background(), domain.AdminLog{AdminUserID: 1, RequestID: &reqID, Action: "approve", Details: &details})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequest(t *testing.T) {
	s, mock := newMock(t)
	tmdbID := int64(438631)
	year := 2021
	imdb := "tt1160419"
	query := "dune"
	mock.ExpectQuery(regexp.QuoteMeta(qCreateRequest)).
		WithArgs(int64(100), "movie", "Dune", tmdbID, year, imdb, query, nil).
		WillReturnRows(duneRow("pending_admin"))

	r, err := s.CreateRequest(context.Background(), domain.NewRequest{
		UserID: 100, RequestType: domain.TypeMovie, Title: "Dune",
		TMDBID: &tmdbID, Year: &year, IMDBID: &imdb, UserQuery: &query,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), r.RequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestRejectsUnknownType(t *testing.T) {
	s, mock := newMock(t)
	_, err := s.CreateRequest(context.Background(), domain.NewRequest{UserID: 1, RequestType: "podcast", Title: "x"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPending(t *testing.T) {
	statuses := pq.Array([]string{"pending_admin", "approved", "acknowledged"})
	tests := []struct {
		name     string
		filter   []domain.RequestType
		page     int
		types    any
		limit    int
		offset   int
		wantRows int
	}{
		{name: "all types first page", page: 1, types: pq.Array([]string(nil)), limit: 5, offset: 0, wantRows: 1},
		{name: "filtered second page", filter: []domain.RequestType{domain.TypeProblem}, page: 2, types: pq.Array([]string{"problem"}), limit: 5, offset: 5},
		{name: "page below one", page: 0, types: pq.Array([]string(nil)), limit: 5, offset: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t)
			rows := sqlmock.NewRows(requestCols)
			if tt.wantRows > 0 {
				rows = duneRow("pending_admin")
			}
			mock.ExpectQuery(regexp.QuoteMeta(qListPending)).
				WithArgs(statuses, tt.types, tt.limit, tt.offset).
				WillReturnRows(rows)
			mock.ExpectQuery(regexp.QuoteMeta(qCountPending)).
				WithArgs(statuses, tt.types).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

			got, total, err := s.ListPending(context.Background(), tt.filter, tt.page, 0)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantRows)
			assert.Equal(t, 6, total)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListUserRequests(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(qListUser)).
		WithArgs(int64(100), 5, 10).
		WillReturnRows(duneRow("completed"))
	mock.ExpectQuery(regexp.QuoteMeta(qCountUser)).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	got, total, err := s.ListUserRequests(context.Background(), 100, 3, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.StatusCompleted, got[0].Status)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOpenApprovalTask(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(qOpenApproval)).WithArgs(int64(5)).WillReturnError(sql.ErrNoRows)

	r, err := s.FindOpenApprovalTask(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.NoError(t, mock.ExpectationsWereMet())
}
