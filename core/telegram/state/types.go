package state

import (
	"errors"
	"maps"
	"time"
)

// Step identifies a conversation step.
type Step string

// StepIdle indicates there is no active conversation with the user.
const StepIdle Step = "idle"

// ErrExpiredSelection is returned when a step needs scratch data that is no
// longer present, for example after a cancel, a TTL expiry or a restart.
var ErrExpiredSelection = errors.New("state: selection expired")

// Session stores the step and scratch data of one user.
type Session struct {
	Step      Step              `json:"step"`
	Scratch   map[string]string `json:"scratch,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (s *Session) clone() *Session {
	if s == nil {
		return &Session{Step: StepIdle, Scratch: map[string]string{}}
	}
	out := *s
	out.Scratch = maps.Clone(s.Scratch)
	if out.Scratch == nil {
		out.Scratch = map[string]string{}
	}
	return &out
}

// Manager is implemented by every backend. Methods never fail: backend
// errors are logged and the user reads as idle.
type Manager interface {
	// GetStep returns the current step or StepIdle.
	GetStep(userID int64) Step
	// SetStep enters step, replacing any previous scratch with scratch.
	SetStep(userID int64, step Step, scratch map[string]string)
	// Scratch returns a copy of the scratch map; never nil.
	Scratch(userID int64) map[string]string
	SetTemp(userID int64, key, value string)
	GetTemp(userID int64, key string) (string, bool)
	ClearTemp(userID int64, key string)
	// Clear removes the session and reports whether a non-idle one existed.
	Clear(userID int64) bool
	InProgress(userID int64) bool
}
