package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/telecopter/core/telegram"
	"github.com/m3rciful/telecopter/core/telegram/callbacks"
	"github.com/m3rciful/telecopter/core/telegram/middleware"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	// Allow gates callbacks whose key is not listed in Public.
	Allow    func(tele.Context) bool
	OnDenied tele.HandlerFunc
	Public   []string
}

// CallbackRoute returns a handler that routes callbacks through the registry.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	public := make(map[string]struct{}, len(opts.Public))
	for _, k := range opts.Public {
		public[k] = struct{}{}
	}

	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.ParseCallbackData(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, name, start, func() error {
				if fallback != nil {
					return fallback(c)
				}
				return c.Respond()
			}, extras...)
		}

		if _, open := public[key]; !open && opts.Allow != nil {
			cbHandler = middleware.Gate(opts.Allow, opts.OnDenied)(cbHandler)
		}
		return handleWithSummary(c, name, start, func() error {
			defer func() { _ = c.Respond() }()
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
