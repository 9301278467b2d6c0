package state

import (
	"maps"
	"sync"
	"time"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryManager constructs an in-process Manager. A ttl of zero keeps
// sessions until they are cleared.
func NewMemoryManager(ttl time.Duration) Manager {
	return &memoryManager{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// live returns the session if present and not expired. Caller holds mu.
func (m *memoryManager) live(userID int64) (*Session, bool) {
	sess, ok := m.sessions[userID]
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && m.now().Sub(sess.UpdatedAt) > m.ttl {
		return nil, false
	}
	return sess, true
}

func (m *memoryManager) GetStep(userID int64) Step {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.live(userID); ok {
		return sess.Step
	}
	return StepIdle
}

func (m *memoryManager) SetStep(userID int64, step Step, scratch map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc := maps.Clone(scratch)
	if sc == nil {
		sc = map[string]string{}
	}
	m.sessions[userID] = &Session{Step: step, Scratch: sc, UpdatedAt: m.now()}
}

func (m *memoryManager) Scratch(userID int64) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, _ := m.live(userID)
	return sess.clone().Scratch
}

func (m *memoryManager) SetTemp(userID int64, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.live(userID)
	if !ok {
		sess = &Session{Step: StepIdle, Scratch: map[string]string{}}
		m.sessions[userID] = sess
	}
	sess.Scratch[key] = value
	sess.UpdatedAt = m.now()
}

func (m *memoryManager) GetTemp(userID int64, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.live(userID)
	if !ok {
		return "", false
	}
	v, ok := sess.Scratch[key]
	return v, ok
}

func (m *memoryManager) ClearTemp(userID int64, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.live(userID); ok {
		delete(sess.Scratch, key)
	}
}

func (m *memoryManager) Clear(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.live(userID)
	delete(m.sessions, userID)
	return ok && sess.Step != StepIdle
}

func (m *memoryManager) InProgress(userID int64) bool {
	return m.GetStep(userID) != StepIdle
}
