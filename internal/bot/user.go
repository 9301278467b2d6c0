package bot

import (
	"errors"
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/telecopter/core/telegram/helpers"
	"github.com/m3rciful/telecopter/core/telegram/state"
	"github.com/m3rciful/telecopter/internal/moderation"
	"github.com/m3rciful/telecopter/internal/submission"
	"github.com/m3rciful/telecopter/internal/tmdb"
)

func (h *Handlers) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if h.isAdmin(c) {
		return tghelpers.SendText(c, adminWelcomeText)
	}
	_, access, err := h.mod.Register(ctx, profileOf(c))
	if err != nil {
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}
	switch access {
	case moderation.AccessApproved:
		return tghelpers.SendText(c, welcomeText)
	case moderation.AccessPending, moderation.AccessSubmitted:
		return tghelpers.SendText(c, accessPendingText)
	case moderation.AccessRejected:
		return tghelpers.SendText(c, accessRejectedText)
	}
	return send(c, askAccessText, accessMarkup())
}

func (h *Handlers) onHelp(c tele.Context) error {
	if h.isAdmin(c) {
		return tghelpers.SendText(c, adminWelcomeText)
	}
	return tghelpers.SendText(c, welcomeText)
}

func (h *Handlers) onAccess(c tele.Context) error {
	if callbacks.CallbackPayload(c) != accessRequest {
		return edit(c, accessLaterText, nil)
	}
	access, err := h.mod.RequestAccess(tghelpers.BuildContext(c), profileOf(c))
	if err != nil {
		// Keep the button so the user can retry.
		_ = edit(c, genericErrorText, accessMarkup())
		return err
	}
	switch access {
	case moderation.AccessSubmitted:
		return edit(c, accessSubmittedText, nil)
	case moderation.AccessApproved:
		return edit(c, welcomeText, nil)
	case moderation.AccessRejected:
		return edit(c, accessRejectedText, nil)
	}
	return edit(c, accessPendingText, nil)
}

func (h *Handlers) onRequest(c tele.Context) error {
	h.sub.StartMediaSearch(c.Sender().ID)
	return send(c, promptMediaText, cancelMarkup())
}

func (h *Handlers) onManual(c tele.Context) error {
	h.sub.StartManual(c.Sender().ID)
	return send(c, promptManualText, cancelMarkup())
}

func (h *Handlers) onReport(c tele.Context) error {
	h.sub.StartProblem(c.Sender().ID)
	return send(c, promptProblemText, cancelMarkup())
}

func (h *Handlers) onCancel(c tele.Context) error {
	if h.sub.Cancel(c.Sender().ID) {
		return tghelpers.SendText(c, cancelledText)
	}
	return tghelpers.SendText(c, nothingToCancel)
}

func (h *Handlers) onCancelButton(c tele.Context) error {
	h.sub.Cancel(c.Sender().ID)
	return edit(c, cancelledText, nil)
}

func (h *Handlers) onMyRequests(c tele.Context) error {
	return h.showHistory(c, 1)
}

func (h *Handlers) onMyPage(c tele.Context) error {
	page, err := callbacks.PayloadInt(c)
	if err != nil {
		page = 1
	}
	return h.showHistory(c, page)
}

func (h *Handlers) showHistory(c tele.Context, page int) error {
	p, err := h.sub.History(tghelpers.BuildContext(c), c.Sender().ID, page)
	if err != nil {
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}
	if p.Total == 0 {
		return edit(c, noRequestsText, nil)
	}
	return edit(c, historyText(p), pagerMarkup(cbMyPage, p))
}

func (h *Handlers) onMediaName(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	uid := c.Sender().ID
	query := c.Text()
	results, err := h.sub.Search(ctx, uid, query)
	switch {
	case errors.Is(err, submission.ErrInputTooShort):
		return tghelpers.SendText(c, queryTooShortText)
	case errors.Is(err, tmdb.ErrDisabled):
		h.sub.SwitchToManual(uid)
		return send(c, searchDisabledText, cancelMarkup())
	case err != nil:
		logger.Warn(ctx, component, "search", slog.String("status", "fail"), slog.Any("err", err))
		return send(c, searchFailedText, manualMarkup())
	case len(results) == 0:
		return send(c, noResultsText(query), manualMarkup())
	}
	return send(c, resultsText(results), resultsMarkup(results))
}

func (h *Handlers) onChooseAbove(c tele.Context) error {
	return tghelpers.SendText(c, chooseAboveText)
}

func (h *Handlers) onSelect(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, 2)
	if err != nil {
		return edit(c, expiredText, nil)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return edit(c, expiredText, nil)
	}
	details, err := h.sub.Select(tghelpers.BuildContext(c), c.Sender().ID, id, parts[1])
	if err != nil {
		return h.flowError(c, err)
	}
	return edit(c, confirmText(details), confirmMarkup())
}

func (h *Handlers) onConfirm(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	uid := c.Sender().ID
	switch callbacks.CallbackPayload(c) {
	case confirmManual:
		h.sub.SwitchToManual(uid)
		return edit(c, promptManualText, cancelMarkup())
	case confirmNote:
		if _, err := h.sub.Confirm(ctx, uid, true); err != nil {
			return h.flowError(c, err)
		}
		return edit(c, promptNoteText, cancelMarkup())
	case confirmYes:
		req, err := h.sub.Confirm(ctx, uid, false)
		if err != nil {
			return h.flowError(c, err)
		}
		return edit(c, submittedText(req), nil)
	}
	return tghelpers.Toast(c, unknownButtonText)
}

func (h *Handlers) onUserNote(c tele.Context) error {
	req, err := h.sub.SubmitNote(tghelpers.BuildContext(c), c.Sender().ID, c.Text())
	if err != nil {
		return h.flowError(c, err)
	}
	return tghelpers.SendText(c, submittedText(req))
}

func (h *Handlers) onManualText(c tele.Context) error {
	req, err := h.sub.SubmitManual(tghelpers.BuildContext(c), c.Sender().ID, c.Text())
	if errors.Is(err, submission.ErrInputTooShort) {
		return tghelpers.SendText(c, manualTooShortText)
	}
	if err != nil {
		return h.flowError(c, err)
	}
	return tghelpers.SendText(c, submittedText(req))
}

func (h *Handlers) onProblemText(c tele.Context) error {
	req, err := h.sub.SubmitProblem(tghelpers.BuildContext(c), c.Sender().ID, c.Text())
	if errors.Is(err, submission.ErrInputTooShort) {
		return tghelpers.SendText(c, problemTooShortText)
	}
	if err != nil {
		return h.flowError(c, err)
	}
	return tghelpers.SendText(c, submittedText(req))
}

// flowError answers a failed user step. Expired selections are an expected
// outcome; anything else is returned for the handler summary.
func (h *Handlers) flowError(c tele.Context, err error) error {
	if errors.Is(err, state.ErrExpiredSelection) {
		return edit(c, expiredText, nil)
	}
	_ = tghelpers.SendText(c, genericErrorText)
	return err
}
