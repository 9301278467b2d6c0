package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/internal/domain"
)

// Sender is the part of *tele.Bot used for out-of-band messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Runner executes one outbound call under the retry policy; satisfied by
// *sender.Dispatcher.
type Runner interface {
	Do(ctx context.Context, action, endpoint string, run func() error) error
}

// Notifier delivers messages that are not replies to an update: status
// changes to submitters and new task cards to the admin. Sends are
// synchronous so callers learn whether delivery worked.
type Notifier struct {
	bot     Sender
	runner  Runner
	adminID int64
}

// NewNotifier returns a Notifier over bot whose sends go through runner.
// Task cards go to adminID.
func NewNotifier(bot Sender, runner Runner, adminID int64) *Notifier {
	return &Notifier{bot: bot, runner: runner, adminID: adminID}
}

// Notify sends text to chatID.
func (n *Notifier) Notify(ctx context.Context, chatID int64, text string) error {
	return n.send(ctx, "notify.user", chatID, text, nil)
}

// NotifyAdmins sends the task card for req with its action buttons.
func (n *Notifier) NotifyAdmins(ctx context.Context, req domain.Request) error {
	return n.send(ctx, "notify.admin", n.adminID, taskText(req), taskMarkup(req))
}

func (n *Notifier) send(ctx context.Context, action string, chatID int64, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	return n.runner.Do(ctx, action, "sendMessage", func() error {
		_, err := n.bot.Send(tele.ChatID(chatID), text, opts)
		return err
	})
}
