package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/internal/domain"
	"github.com/m3rciful/telecopter/internal/moderation"
	"github.com/m3rciful/telecopter/internal/submission"
	"github.com/m3rciful/telecopter/internal/tmdb"
)

const (
	testAdmin = int64(1)
	testUser  = int64(10)
)

type apiCall struct {
	Method string
	Params map[string]any
}

func (c apiCall) text() string {
	s, _ := c.Params["text"].(string)
	return s
}

func (c apiCall) markup() string {
	s, _ := c.Params["reply_markup"].(string)
	return s
}

// apiServer records Bot API calls and answers each one with a stub message.
type apiServer struct {
	mu    sync.Mutex
	calls []apiCall
}

func newBot(t *testing.T) (*tele.Bot, *apiServer) {
	t.Helper()
	api := &apiServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		params := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&params)
		api.mu.Lock()
		api.calls = append(api.calls, apiCall{Method: method, Params: params})
		api.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":99,"date":0,"chat":{"id":10,"type":"private"}}}`))
	}))
	t.Cleanup(srv.Close)
	b, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "TOKEN", Offline: true})
	require.NoError(t, err)
	return b, api
}

// sent returns the calls of method, in order.
func (a *apiServer) sent(method string) []apiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []apiCall
	for _, c := range a.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (a *apiServer) lastText(t *testing.T) string {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.calls) - 1; i >= 0; i-- {
		if s := a.calls[i].text(); s != "" {
			return s
		}
	}
	t.Fatal("no message sent")
	return ""
}

func textCtx(b *tele.Bot, from int64, text string) tele.Context {
	return b.NewContext(tele.Update{ID: 1, Message: &tele.Message{
		ID:     7,
		Text:   text,
		Sender: &tele.User{ID: from, FirstName: "Paul", Username: "paul"},
		Chat:   &tele.Chat{ID: from, Type: tele.ChatPrivate},
	}})
}

func callbackCtx(b *tele.Bot, from int64, data, cardText string) tele.Context {
	return b.NewContext(tele.Update{ID: 2, Callback: &tele.Callback{
		ID:     "cb1",
		Sender: &tele.User{ID: from, FirstName: "Paul"},
		Data:   data,
		Message: &tele.Message{
			ID:   5,
			Text: cardText,
			Chat: &tele.Chat{ID: from, Type: tele.ChatPrivate},
		},
	}})
}

type fakeSubmitter struct {
	started   []string
	results   []tmdb.Result
	searchErr error
	details   *tmdb.Details
	selectErr error
	created   *domain.Request
	createErr error
	history   domain.RequestPage
	active    bool
}

func (f *fakeSubmitter) StartMediaSearch(int64) { f.started = append(f.started, "media") }
func (f *fakeSubmitter) Search(_ context.Context, _ int64, q string) ([]tmdb.Result, error) {
	if len(strings.TrimSpace(q)) < domain.MinQueryLength {
		return nil, submission.ErrInputTooShort
	}
	return f.results, f.searchErr
}
func (f *fakeSubmitter) Select(context.Context, int64, int64, string) (*tmdb.Details, error) {
	return f.details, f.selectErr
}
func (f *fakeSubmitter) Confirm(_ context.Context, _ int64, withNote bool) (*domain.Request, error) {
	if withNote {
		return nil, f.createErr
	}
	return f.created, f.createErr
}
func (f *fakeSubmitter) SubmitNote(context.Context, int64, string) (*domain.Request, error) {
	return f.created, f.createErr
}
func (f *fakeSubmitter) StartManual(int64)    { f.started = append(f.started, "manual") }
func (f *fakeSubmitter) SwitchToManual(int64) { f.started = append(f.started, "switch_manual") }
func (f *fakeSubmitter) SubmitManual(context.Context, int64, string) (*domain.Request, error) {
	return f.created, f.createErr
}
func (f *fakeSubmitter) StartProblem(int64) { f.started = append(f.started, "problem") }
func (f *fakeSubmitter) SubmitProblem(context.Context, int64, string) (*domain.Request, error) {
	return f.created, f.createErr
}
func (f *fakeSubmitter) History(_ context.Context, _ int64, page int) (domain.RequestPage, error) {
	p := f.history
	p.Page = page
	return p, nil
}
func (f *fakeSubmitter) Cancel(int64) bool {
	was := f.active
	f.active = false
	return was
}

type actCall struct {
	AdminID   int64
	Action    string
	RequestID int64
}

type fakeModerator struct {
	approved  map[int64]bool
	approvErr error
	access    moderation.AccessResult
	accessErr error
	result    moderation.Result
	err       error
	acts      []actCall
	notes     []string
	approvals []bool
	tasks     domain.RequestPage
}

func (f *fakeModerator) Register(context.Context, domain.UserProfile) (*domain.User, moderation.AccessResult, error) {
	return &domain.User{}, f.access, nil
}
func (f *fakeModerator) IsApproved(_ context.Context, id int64) (bool, error) {
	return f.approved[id], f.approvErr
}
func (f *fakeModerator) RequestAccess(context.Context, domain.UserProfile) (moderation.AccessResult, error) {
	if f.accessErr != nil {
		return moderation.AccessPending, f.accessErr
	}
	return moderation.AccessSubmitted, nil
}
func (f *fakeModerator) Act(_ context.Context, adminID int64, key string, id int64) (moderation.Result, error) {
	f.acts = append(f.acts, actCall{adminID, key, id})
	return f.result, f.err
}
func (f *fakeModerator) SubmitNote(_ context.Context, _ int64, note string) (moderation.Result, error) {
	f.notes = append(f.notes, note)
	return f.result, f.err
}
func (f *fakeModerator) ResolveUserApproval(_ context.Context, _ int64, _ int64, approve bool) (moderation.Result, error) {
	f.approvals = append(f.approvals, approve)
	return f.result, f.err
}
func (f *fakeModerator) Tasks(_ context.Context, page int) (domain.RequestPage, error) {
	p := f.tasks
	p.Page = page
	return p, nil
}
