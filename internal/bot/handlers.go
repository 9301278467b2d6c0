// Package bot binds the submission and moderation services to Telegram
// commands, inline buttons and conversation steps.
package bot

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/logger"
	tg "github.com/m3rciful/telecopter/core/telegram"
	"github.com/m3rciful/telecopter/core/telegram/commands"
	tghelpers "github.com/m3rciful/telecopter/core/telegram/helpers"
	"github.com/m3rciful/telecopter/core/telegram/router"
	"github.com/m3rciful/telecopter/core/telegram/state"
	"github.com/m3rciful/telecopter/core/telegram/ui"
	"github.com/m3rciful/telecopter/internal/domain"
	"github.com/m3rciful/telecopter/internal/moderation"
	"github.com/m3rciful/telecopter/internal/submission"
	"github.com/m3rciful/telecopter/internal/tmdb"
)

const component = "tg.bot"

// Submitter is the user-facing flow service.
type Submitter interface {
	StartMediaSearch(userID int64)
	Search(ctx context.Context, userID int64, query string) ([]tmdb.Result, error)
	Select(ctx context.Context, userID, tmdbID int64, mediaType string) (*tmdb.Details, error)
	Confirm(ctx context.Context, userID int64, withNote bool) (*domain.Request, error)
	SubmitNote(ctx context.Context, userID int64, note string) (*domain.Request, error)
	StartManual(userID int64)
	SwitchToManual(userID int64)
	SubmitManual(ctx context.Context, userID int64, description string) (*domain.Request, error)
	StartProblem(userID int64)
	SubmitProblem(ctx context.Context, userID int64, text string) (*domain.Request, error)
	History(ctx context.Context, userID int64, page int) (domain.RequestPage, error)
	Cancel(userID int64) bool
}

// Moderator is the admin-facing flow service.
type Moderator interface {
	Register(ctx context.Context, p domain.UserProfile) (*domain.User, moderation.AccessResult, error)
	IsApproved(ctx context.Context, userID int64) (bool, error)
	RequestAccess(ctx context.Context, p domain.UserProfile) (moderation.AccessResult, error)
	Act(ctx context.Context, adminID int64, actionKey string, requestID int64) (moderation.Result, error)
	SubmitNote(ctx context.Context, adminID int64, note string) (moderation.Result, error)
	ResolveUserApproval(ctx context.Context, adminID, taskID int64, approve bool) (moderation.Result, error)
	Tasks(ctx context.Context, page int) (domain.RequestPage, error)
}

// Handlers owns the Telegram side of the bot.
type Handlers struct {
	sub     Submitter
	mod     Moderator
	steps   *state.Handlers
	adminID int64
	texts   ui.TextFallbacks
}

// New builds Handlers. tracker must be the manager the services write to.
func New(sub Submitter, mod Moderator, tracker state.Manager, adminID int64) *Handlers {
	return &Handlers{
		sub:     sub,
		mod:     mod,
		steps:   state.NewHandlers(tracker),
		adminID: adminID,
		texts:   ui.TextFallbacks{Text: unknownText, Document: unknownDocText, Callback: unknownButtonText},
	}
}

// Register adds every command, callback and conversation step to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{Handler: h.onStart, Description: "Start the bot", Public: true})
	reg.RegisterCommand("/help", commands.Command{Handler: h.onHelp, Description: "How to use the bot", Public: true})
	reg.RegisterCommand("/request", commands.Command{Handler: h.onRequest, Description: "Request a movie or TV show"})
	reg.RegisterCommand("/manual", commands.Command{Handler: h.onManual, Description: "Describe a request manually"})
	reg.RegisterCommand("/report", commands.Command{Handler: h.onReport, Description: "Report a problem"})
	reg.RegisterCommand("/myrequests", commands.Command{Handler: h.onMyRequests, Description: "Your requests"})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.onCancel,
		Description: "Cancel the current action",
		Public:      true,
		Aliases:     []string{"cancel"},
	})
	reg.RegisterCommand("/tasks", commands.Command{Handler: h.onTasks, Description: "Pending tasks", AdminOnly: true})

	cbs := map[string]tele.HandlerFunc{
		cbAdminAct:     h.adminOnly(h.onAdminAct),
		cbUserApproval: h.adminOnly(h.onUserApproval),
		cbTasksPage:    h.adminOnly(h.onTasksPage),
		cbSelect:       h.onSelect,
		cbConfirm:      h.onConfirm,
		cbAccess:       h.onAccess,
		cbMyPage:       h.onMyPage,
		cbCancel:       h.onCancelButton,
	}
	for key, fn := range cbs {
		if err := reg.RegisterCallback(key, fn); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(h.texts.UnknownCallback())

	h.steps.Register(submission.StepTypingMediaName, h.onMediaName)
	h.steps.Register(submission.StepSelectMedia, h.onChooseAbove)
	h.steps.Register(submission.StepConfirmMedia, h.onChooseAbove)
	h.steps.Register(submission.StepTypingUserNote, h.onUserNote)
	h.steps.Register(submission.StepTypingManual, h.onManualText)
	h.steps.Register(submission.StepTypingProblem, h.onProblemText)
	h.steps.Register(moderation.StepTypingAdminNote, h.adminOnly(h.onAdminNote))
	return nil
}

// Routes wraps the registry into bot routes with the access gate applied.
func (h *Handlers) Routes(reg *tg.Registry) []tg.Route {
	cmdOpts := router.CommandRouteOptions{
		AdminID:       h.adminID,
		OnAdminReject: h.rejectNonAdmin,
		Allow:         h.allow,
		OnDenied:      h.denied,
	}
	routes := router.CommandRoutes(reg, cmdOpts)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: h.texts.UnknownCallback(),
		Allow:    h.allow,
		OnDenied: h.denied,
		Public:   []string{cbAccess, cbCancel},
	}))
	return append(routes, router.TextRoutes(h.steps, reg, router.TextOptions{
		UnknownText:     h.texts.UnknownText(),
		UnknownDocument: h.texts.UnknownDocument(),
		Commands:        cmdOpts,
	})...)
}

// allow admits the admin and approved users. Lookup failures deny.
func (h *Handlers) allow(c tele.Context) bool {
	sender := c.Sender()
	if sender == nil {
		return false
	}
	if sender.ID == h.adminID {
		return true
	}
	ctx := tghelpers.BuildContext(c)
	ok, err := h.mod.IsApproved(ctx, sender.ID)
	if err != nil {
		logger.Warn(ctx, component, "access.check", slog.String("status", "fail"), slog.Any("err", err))
		return false
	}
	return ok
}

func (h *Handlers) denied(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Toast(c, notApprovedText)
	}
	return tghelpers.SendText(c, notApprovedText)
}

func (h *Handlers) rejectNonAdmin(c tele.Context) error {
	return tghelpers.SendText(c, adminOnlyText)
}

func (h *Handlers) isAdmin(c tele.Context) bool {
	return c.Sender() != nil && c.Sender().ID == h.adminID
}

func (h *Handlers) adminOnly(fn tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !h.isAdmin(c) {
			return h.rejectNonAdmin(c)
		}
		return fn(c)
	}
}

func profileOf(c tele.Context) domain.UserProfile {
	s := c.Sender()
	p := domain.UserProfile{UserID: s.ID, ChatID: s.ID, FirstName: s.FirstName, Username: s.Username}
	if chat := c.Chat(); chat != nil {
		p.ChatID = chat.ID
	}
	return p
}

// send replies with text and, when non-nil, an inline keyboard.
func send(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return tghelpers.SendText(c, text)
	}
	return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}

// edit rewrites the message behind a button, or sends text when there is none.
func edit(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return tghelpers.EditOrSendText(c, text)
	}
	return tghelpers.EditOrSendText(c, text, markup)
}
