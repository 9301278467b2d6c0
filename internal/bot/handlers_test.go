package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/telecopter/core/telegram"
	"github.com/m3rciful/telecopter/core/telegram/state"
	"github.com/m3rciful/telecopter/internal/domain"
	"github.com/m3rciful/telecopter/internal/lifecycle"
	"github.com/m3rciful/telecopter/internal/moderation"
	"github.com/m3rciful/telecopter/internal/tmdb"
)

type fixture struct {
	h       *Handlers
	sub     *fakeSubmitter
	mod     *fakeModerator
	tracker state.Manager
	reg     *tg.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sub:     &fakeSubmitter{},
		mod:     &fakeModerator{approved: map[int64]bool{}},
		tracker: state.NewMemoryManager(0),
		reg:     tg.NewRegistry(),
	}
	f.h = New(f.sub, f.mod, f.tracker, testAdmin)
	require.NoError(t, f.h.Register(f.reg))
	return f
}

func TestRegisterWiresCommandsAndCallbacks(t *testing.T) {
	f := newFixture(t)

	cmds := f.reg.Commands()
	for _, name := range []string{"/start", "/help", "/request", "/manual", "/report", "/myrequests", "/cancel", "/tasks"} {
		assert.Contains(t, cmds, name)
	}
	assert.True(t, cmds["/tasks"].AdminOnly)
	assert.True(t, cmds["/start"].Public)
	assert.False(t, cmds["/request"].Public)

	assert.ElementsMatch(t,
		[]string{cbAdminAct, cbUserApproval, cbSelect, cbConfirm, cbAccess, cbTasksPage, cbMyPage, cbCancel},
		f.reg.ListCallbacks())
	assert.NotNil(t, f.reg.CallbackNotFound())

	assert.ErrorContains(t, f.h.Register(f.reg), "callback already registered")
	assert.NotEmpty(t, f.h.Routes(f.reg))
}

func TestAllowGate(t *testing.T) {
	f := newFixture(t)
	b, _ := newBot(t)
	f.mod.approved[testUser] = true

	assert.True(t, f.h.allow(textCtx(b, testAdmin, "/request")))
	assert.True(t, f.h.allow(textCtx(b, testUser, "/request")))
	assert.False(t, f.h.allow(textCtx(b, 77, "/request")))

	f.mod.approvErr = errors.New("db down")
	assert.False(t, f.h.allow(textCtx(b, testUser, "/request")))
}

func TestStartByAccessState(t *testing.T) {
	tests := []struct {
		access moderation.AccessResult
		want   string
	}{
		{moderation.AccessApproved, welcomeText},
		{moderation.AccessPending, accessPendingText},
		{moderation.AccessRejected, accessRejectedText},
		{moderation.AccessNew, askAccessText},
	}
	for _, tt := range tests {
		f := newFixture(t)
		b, api := newBot(t)
		f.mod.access = tt.access
		require.NoError(t, f.h.onStart(textCtx(b, testUser, "/start")))
		assert.Equal(t, tt.want, api.lastText(t))
	}

	f := newFixture(t)
	b, api := newBot(t)
	f.mod.access = moderation.AccessNew
	require.NoError(t, f.h.onStart(textCtx(b, testUser, "/start")))
	assert.Contains(t, api.sent("sendMessage")[0].markup(), "access|request")
}

func TestMediaNameOffersResults(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)
	year := 2021
	f.sub.results = []tmdb.Result{{TMDBID: 438631, Title: "Dune", Year: &year, MediaType: tmdb.MediaMovie}}

	require.NoError(t, f.h.onMediaName(textCtx(b, testUser, "Dune")))

	msg := api.sent("sendMessage")[0]
	assert.Contains(t, msg.text(), "Dune (2021) · Movie")
	assert.Contains(t, msg.markup(), "tmdb_sel|438631|movie")
	assert.Contains(t, msg.markup(), "req_conf|manual")
}

func TestMediaNameEdgeCases(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		f := newFixture(t)
		b, api := newBot(t)
		require.NoError(t, f.h.onMediaName(textCtx(b, testUser, "D")))
		assert.Equal(t, queryTooShortText, api.lastText(t))
	})
	t.Run("no results", func(t *testing.T) {
		f := newFixture(t)
		b, api := newBot(t)
		require.NoError(t, f.h.onMediaName(textCtx(b, testUser, "Zzzz")))
		assert.Equal(t, noResultsText("Zzzz"), api.lastText(t))
	})
	t.Run("search disabled switches to manual", func(t *testing.T) {
		f := newFixture(t)
		b, api := newBot(t)
		f.sub.searchErr = tmdb.ErrDisabled
		require.NoError(t, f.h.onMediaName(textCtx(b, testUser, "Dune")))
		assert.Equal(t, searchDisabledText, api.lastText(t))
		assert.Equal(t, []string{"switch_manual"}, f.sub.started)
	})
}

func TestSelectExpired(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)
	f.sub.selectErr = state.ErrExpiredSelection

	require.NoError(t, f.h.onSelect(callbackCtx(b, testUser, "\ftmdb_sel|438631|movie", "results")))
	assert.Equal(t, expiredText, api.sent("editMessageText")[0].text())
}

func TestConfirmSubmits(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)
	f.sub.created = &domain.Request{RequestID: 42, RequestType: domain.TypeMovie, Title: "Dune"}

	require.NoError(t, f.h.onConfirm(callbackCtx(b, testUser, "\freq_conf|yes", "card")))
	assert.Equal(t, submittedText(f.sub.created), api.sent("editMessageText")[0].text())
}

func TestAdminActClosesCard(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)
	f.mod.result = moderation.Result{Kind: moderation.ResultApplied, RequestID: 42,
		Message: "Request ID 42 status set to approved. User notified."}

	require.NoError(t, f.h.onAdminAct(callbackCtx(b, testAdmin, "\fadmin_act|approve|42", "Movie · ID 42")))

	assert.Equal(t, []actCall{{testAdmin, "approve", 42}}, f.mod.acts)
	edits := api.sent("editMessageText")
	require.Len(t, edits, 1)
	assert.Equal(t, "Movie · ID 42\n\nRequest ID 42 status set to approved. User notified.", edits[0].text())
	assert.Empty(t, edits[0].markup())
}

func TestAdminActAwaitingNoteSendsPrompt(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)
	f.mod.result = moderation.Result{Kind: moderation.ResultAwaitingNote, RequestID: 42, Message: "Please send the note"}

	require.NoError(t, f.h.onAdminAct(callbackCtx(b, testAdmin, "\fadmin_act|approve_with_note|42", "card")))
	assert.Empty(t, api.sent("editMessageText"))
	assert.Equal(t, "Please send the note", api.sent("sendMessage")[0].text())
}

func TestAdminActNotFound(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)
	f.mod.err = &lifecycle.Error{Kind: lifecycle.ErrRequestNotFound, RequestID: 999}

	require.NoError(t, f.h.onAdminAct(callbackCtx(b, testAdmin, "\fadmin_act|approve|999", "card")))
	assert.Equal(t, lifecycle.NotFoundText(999), api.lastText(t))
}

func TestAdminActStorageFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	b, _ := newBot(t)
	f.mod.err = &lifecycle.Error{Kind: lifecycle.ErrPersistenceFailed, RequestID: 42}

	err := f.h.onAdminAct(callbackCtx(b, testAdmin, "\fadmin_act|approve|42", "card"))
	assert.ErrorIs(t, err, lifecycle.ErrPersistenceFailed)
}

func TestAdminButtonsRejectOthers(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)

	cb, ok := f.reg.GetCallback(cbAdminAct)
	require.True(t, ok)
	require.NoError(t, cb(callbackCtx(b, testUser, "\fadmin_act|approve|42", "card")))
	assert.Empty(t, f.mod.acts)
	assert.Equal(t, adminOnlyText, api.lastText(t))
}

func TestUserApprovalButton(t *testing.T) {
	f := newFixture(t)
	b, _ := newBot(t)
	f.mod.result = moderation.Result{Kind: moderation.ResultApplied, Message: "User Paul (ID: 10) has been approved. Task 42 closed."}

	require.NoError(t, f.h.onUserApproval(callbackCtx(b, testAdmin, "\fusr_app_task|approve|42", "card")))
	require.NoError(t, f.h.onUserApproval(callbackCtx(b, testAdmin, "\fusr_app_task|reject|42", "card")))
	require.NoError(t, f.h.onUserApproval(callbackCtx(b, testAdmin, "\fusr_app_task|maybe|42", "card")))
	assert.Equal(t, []bool{true, false}, f.mod.approvals)
}

func TestAdminNoteStepDispatch(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)
	f.tracker.SetStep(testAdmin, moderation.StepTypingAdminNote, map[string]string{"request_id": "42", "action": "deny"})
	f.mod.result = moderation.Result{Kind: moderation.ResultApplied, Message: "Request ID 42 status set to denied with note. User notified."}

	require.True(t, f.h.steps.InProgress(testAdmin))
	require.NoError(t, f.h.steps.ManagerHandler(textCtx(b, testAdmin, "Not available in your region")))
	assert.Equal(t, []string{"Not available in your region"}, f.mod.notes)
	assert.Equal(t, f.mod.result.Message, api.lastText(t))
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)

	f.sub.active = true
	require.NoError(t, f.h.onCancel(textCtx(b, testUser, "/cancel")))
	assert.Equal(t, cancelledText, api.lastText(t))
	require.NoError(t, f.h.onCancel(textCtx(b, testUser, "/cancel")))
	assert.Equal(t, nothingToCancel, api.lastText(t))
}

func TestTasksListsCardsAndPager(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)
	f.mod.tasks = domain.RequestPage{PageSize: 1, Total: 2, Items: []domain.Request{
		{RequestID: 3, RequestType: domain.TypeProblem, Status: domain.StatusPendingAdmin, Title: "Buffering"},
	}}

	require.NoError(t, f.h.onTasks(textCtx(b, testAdmin, "/tasks")))

	msgs := api.sent("sendMessage")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].markup(), "admin_act|acknowledge|3")
	assert.Equal(t, tasksFooterText(domain.RequestPage{Page: 1, PageSize: 1, Total: 2}), msgs[1].text())
	assert.Contains(t, msgs[1].markup(), "tasks_page|2")
}

func TestAccessFailureKeepsRetryButton(t *testing.T) {
	f := newFixture(t)
	b, api := newBot(t)
	f.mod.accessErr = errors.New("db down")

	err := f.h.onAccess(callbackCtx(b, testUser, "\faccess|request", "ask"))
	assert.EqualError(t, err, "db down")
	edits := api.sent("editMessageText")
	require.NotEmpty(t, edits)
	last := edits[len(edits)-1]
	assert.Equal(t, genericErrorText, last.text())
	assert.Contains(t, last.markup(), "access|request")
}
