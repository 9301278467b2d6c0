package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/telegram/callbacks"
	"github.com/m3rciful/telecopter/core/telegram/keyboard"
	"github.com/m3rciful/telecopter/internal/domain"
	"github.com/m3rciful/telecopter/internal/tmdb"
)

// Callback unique keys.
const (
	cbAdminAct     = "admin_act"
	cbUserApproval = "usr_app_task"
	cbSelect       = "tmdb_sel"
	cbConfirm      = "req_conf"
	cbAccess       = "access"
	cbTasksPage    = "tasks_page"
	cbMyPage       = "my_page"
	cbCancel       = "cancel"
)

const (
	confirmYes     = "yes"
	confirmNote    = "yes_note"
	confirmManual  = "manual"
	accessRequest  = "request"
	accessLater    = "later"
	approvalAccept = "approve"
	approvalReject = "reject"
)

var actionLabels = map[domain.Action]string{
	domain.ActionApprove:               "✅ Approve",
	domain.ActionApproveWithNote:       "✅ Approve + note",
	domain.ActionDeny:                  "❌ Deny",
	domain.ActionDenyWithNote:          "❌ Deny + note",
	domain.ActionMarkCompleted:         "🏁 Completed",
	domain.ActionMarkCompletedWithNote: "🏁 Completed + note",
	domain.ActionAcknowledge:           "👀 Acknowledge",
	domain.ActionMarkResolved:          "🛠 Resolved",
	domain.ActionMarkResolvedWithNote:  "🛠 Resolved + note",
	domain.ActionCloseTask:             "🗂 Close",
}

// taskMarkup returns the admin buttons for req, two per row. Account
// approval tasks get approve/reject buttons instead of lifecycle actions.
func taskMarkup(req domain.Request) *tele.ReplyMarkup {
	if req.RequestType == domain.TypeUserApproval {
		if req.Status != domain.StatusPendingAdmin {
			return nil
		}
		return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
			keyboard.ActionBtn("✅ Approve user", cbUserApproval, approvalAccept, req.RequestID),
			keyboard.ActionBtn("❌ Reject user", cbUserApproval, approvalReject, req.RequestID),
		})
	}
	actions := domain.ActionsFor(req.RequestType, req.Status)
	if len(actions) == 0 {
		return nil
	}
	var rows [][]keyboard.InlineBtn
	var row []keyboard.InlineBtn
	for _, a := range actions {
		row = append(row, keyboard.ActionBtn(actionLabels[a], cbAdminAct, string(a), req.RequestID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	rows = append(rows, row)
	return keyboard.InlineButtonsRows(rows...)
}

func resultsMarkup(results []tmdb.Result) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(results)+2)
	for _, r := range results {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   titleYear(r.Title, r.Year) + " · " + mediaLabel(r.MediaType),
			Unique: cbSelect,
			Data:   callbacks.Data(strconv.FormatInt(r.TMDBID, 10), r.MediaType),
		})
	}
	buttons = append(buttons, manualBtn(), keyboard.CancelBtn(cbCancel))
	return keyboard.InlineButtons(buttons)
}

func confirmMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "✅ Yes, request it", Unique: cbConfirm, Data: confirmYes},
			{Text: "📝 Yes, add a note", Unique: cbConfirm, Data: confirmNote},
		},
		[]keyboard.InlineBtn{manualBtn()},
		[]keyboard.InlineBtn{keyboard.CancelBtn(cbCancel)},
	)
}

func manualMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{manualBtn(), keyboard.CancelBtn(cbCancel)})
}

func manualBtn() keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: "✍️ Describe manually", Unique: cbConfirm, Data: confirmManual}
}

func accessMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "🙋 Request access", Unique: cbAccess, Data: accessRequest},
		{Text: "Later", Unique: cbAccess, Data: accessLater},
	})
}

func pagerMarkup(unique string, p domain.RequestPage) *tele.ReplyMarkup {
	row := keyboard.PagerRow(unique, p.Page, p.Total, p.PageSize)
	if len(row) == 0 {
		return nil
	}
	return keyboard.InlineButtonsRows(row)
}

func cancelMarkup() *tele.ReplyMarkup {
	return keyboard.SingleCancelMarkup(cbCancel)
}
