// Package keyboard builds inline keyboards.
package keyboard

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/telegram/callbacks"
)

// InlineBtn describes a convenience wrapper for inline button properties.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

const (
	defaultCancelButtonText = "❌ Cancel"
	prevText                = "« Prev"
	nextText                = "Next »"
)

// InlineButtons places each button on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
// Empty rows are skipped.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// CancelBtn returns the shared cancel button bound to unique.
func CancelBtn(unique string) InlineBtn {
	return InlineBtn{Text: defaultCancelButtonText, Unique: unique, Data: "cancel"}
}

// SingleCancelMarkup creates an inline keyboard with a single cancel button.
func SingleCancelMarkup(unique string) *tele.ReplyMarkup {
	return InlineButtonsRows([]InlineBtn{CancelBtn(unique)})
}

// PageCount returns how many pages of size pageSize hold total rows.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// PagerRow returns prev/next buttons around page (1-based). The row is
// empty when everything fits on one page.
func PagerRow(unique string, page, total, pageSize int) []InlineBtn {
	pages := PageCount(total, pageSize)
	var row []InlineBtn
	if page > 1 {
		row = append(row, InlineBtn{Text: prevText, Unique: unique, Data: strconv.Itoa(page - 1)})
	}
	if page < pages {
		row = append(row, InlineBtn{Text: nextText, Unique: unique, Data: strconv.Itoa(page + 1)})
	}
	return row
}

// ActionBtn binds an "<action>|<id>" payload to unique.
func ActionBtn(text, unique, action string, id int64) InlineBtn {
	return InlineBtn{Text: text, Unique: unique, Data: callbacks.Data(action, strconv.FormatInt(id, 10))}
}
