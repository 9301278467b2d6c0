package bot

import (
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/telecopter/core/telegram/helpers"
	"github.com/m3rciful/telecopter/core/telegram/state"
	"github.com/m3rciful/telecopter/internal/lifecycle"
	"github.com/m3rciful/telecopter/internal/moderation"
)

func (h *Handlers) onTasks(c tele.Context) error {
	return h.showTasks(c, 1)
}

func (h *Handlers) onTasksPage(c tele.Context) error {
	page, err := callbacks.PayloadInt(c)
	if err != nil {
		page = 1
	}
	return h.showTasks(c, page)
}

// showTasks sends one card per pending task, then a footer with the pager.
func (h *Handlers) showTasks(c tele.Context, page int) error {
	p, err := h.mod.Tasks(tghelpers.BuildContext(c), page)
	if err != nil {
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}
	if p.Total == 0 {
		return tghelpers.SendText(c, noPendingTasks)
	}
	for _, req := range p.Items {
		if err := send(c, taskText(req), taskMarkup(req)); err != nil {
			return err
		}
	}
	return send(c, tasksFooterText(p), pagerMarkup(cbTasksPage, p))
}

func (h *Handlers) onAdminAct(c tele.Context) error {
	action, id, err := callbacks.ActionID(callbacks.CallbackPayload(c))
	if err != nil {
		return tghelpers.Toast(c, unknownButtonText)
	}
	ctx := tghelpers.WithRequestID(c, id)
	res, err := h.mod.Act(ctx, c.Sender().ID, action, id)
	if err != nil {
		return h.adminError(c, id, err)
	}
	if res.Kind == moderation.ResultAwaitingNote {
		return send(c, res.Message, cancelMarkup())
	}
	return h.closeCard(c, res.Message)
}

func (h *Handlers) onUserApproval(c tele.Context) error {
	verb, id, err := callbacks.ActionID(callbacks.CallbackPayload(c))
	if err != nil || (verb != approvalAccept && verb != approvalReject) {
		return tghelpers.Toast(c, unknownButtonText)
	}
	ctx := tghelpers.WithRequestID(c, id)
	res, err := h.mod.ResolveUserApproval(ctx, c.Sender().ID, id, verb == approvalAccept)
	if err != nil {
		return h.adminError(c, id, err)
	}
	return h.closeCard(c, res.Message)
}

func (h *Handlers) onAdminNote(c tele.Context) error {
	res, err := h.mod.SubmitNote(tghelpers.BuildContext(c), c.Sender().ID, c.Text())
	if errors.Is(err, state.ErrExpiredSelection) {
		return tghelpers.SendText(c, "This note prompt has expired. Please press the action button again.")
	}
	if err != nil {
		return h.adminError(c, res.RequestID, err)
	}
	return tghelpers.SendText(c, res.Message)
}

// closeCard appends result to the task card and drops its buttons. Without
// a card (e.g. after a note prompt) result is sent as a new message.
func (h *Handlers) closeCard(c tele.Context, result string) error {
	card := ""
	if msg := c.Message(); msg != nil && c.Callback() != nil {
		card = msg.Text
	}
	return edit(c, withResult(card, result), nil)
}

// adminError reports engine failures to the admin. Storage failures are
// also returned so the handler summary records them.
func (h *Handlers) adminError(c tele.Context, id int64, err error) error {
	var lerr *lifecycle.Error
	if errors.As(err, &lerr) && lerr.RequestID != 0 {
		id = lerr.RequestID
	}
	switch {
	case errors.Is(err, lifecycle.ErrRequestNotFound):
		return tghelpers.SendText(c, lifecycle.NotFoundText(id))
	case errors.Is(err, lifecycle.ErrUnsupportedTransition):
		return tghelpers.SendText(c, fmt.Sprintf("❗Error: that action does not apply to Request ID %d.", id))
	case errors.Is(err, moderation.ErrUnknownAction):
		return tghelpers.Toast(c, unknownButtonText)
	}
	_ = tghelpers.SendText(c, fmt.Sprintf("❗Error: could not update Request ID %d. Please try again.", id))
	return err
}
