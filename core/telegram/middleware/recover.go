package middleware

import (
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/core/metrics"
	tghelpers "github.com/m3rciful/telecopter/core/telegram/helpers"
)

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
					slog.String("status", "fail"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				metrics.HandlerResults.WithLabelValues("panic", "fail").Inc()
				err = nil
			}
		}()
		return next(c)
	}
}
