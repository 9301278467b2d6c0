package state

import (
	"log/slog"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/logger"
	tghelpers "github.com/m3rciful/telecopter/core/telegram/helpers"
)

// Handlers routes free-form input to the handler registered for the
// sender's current step.
type Handlers struct {
	mgr Manager

	mu       sync.RWMutex
	handlers map[Step]tele.HandlerFunc
}

// NewHandlers returns an empty step router over mgr.
func NewHandlers(mgr Manager) *Handlers {
	return &Handlers{mgr: mgr, handlers: make(map[Step]tele.HandlerFunc)}
}

// Register associates a step with its handler.
func (h *Handlers) Register(step Step, fn tele.HandlerFunc) {
	if fn == nil || step == StepIdle {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[step] = fn
}

// InProgress reports whether the user has an active step with a handler.
func (h *Handlers) InProgress(userID int64) bool {
	step := h.mgr.GetStep(userID)
	if step == StepIdle {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.handlers[step]
	return ok
}

// ManagerHandler executes the handler registered for the sender's current step.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	userID := c.Sender().ID
	current := h.mgr.GetStep(userID)
	ctx := tghelpers.BuildContext(c)

	h.mu.RLock()
	handler, ok := h.handlers[current]
	h.mu.RUnlock()

	status := "ok"
	if !ok {
		status = "skip"
	}
	logger.Debug(ctx, "tg", "fsm.dispatch",
		slog.String("status", status),
		slog.String("step", string(current)),
	)
	if !ok {
		return nil
	}
	return handler(c)
}
