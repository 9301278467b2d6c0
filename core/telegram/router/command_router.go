package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/logger"
	tg "github.com/m3rciful/telecopter/core/telegram"
	"github.com/m3rciful/telecopter/core/telegram/commands"
	"github.com/m3rciful/telecopter/core/telegram/middleware"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	// Allow gates every non-public command; OnDenied answers rejected users.
	Allow    func(tele.Context) bool
	OnDenied tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		inner := wrapCommand(def, opts)
		h := func(c tele.Context) error {
			return handleWithSummary(c, name, timeNow(), func() error { return inner(c) })
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}

// wrapCommand applies the admin check and the access gate to def.Handler.
func wrapCommand(def commands.Command, opts CommandRouteOptions) tele.HandlerFunc {
	h := def.Handler
	if def.AdminOnly {
		h = middleware.AdminOnlyMiddleware(middleware.AdminOptions{
			AdminID:  opts.AdminID,
			OnReject: opts.OnAdminReject,
		})(h)
	} else if !def.Public && opts.Allow != nil {
		h = middleware.Gate(opts.Allow, opts.OnDenied)(h)
	}
	return h
}
