package lifecycle

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/m3rciful/telecopter/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	requests map[int64]*domain.Request
	chats    map[int64]int64
	logs     []domain.AdminLog
	writes   []domain.RequestStatus

	getErr    error
	updateErr error
	logErr    error
	chatErr   error
	// beforeUpdate runs inside UpdateRequestStatus, before the compare.
	beforeUpdate func(r *domain.Request)
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: map[int64]*domain.Request{}, chats: map[int64]int64{}}
}

func (s *fakeStore) put(r domain.Request, chatID int64) {
	s.requests[r.RequestID] = &r
	if chatID != 0 {
		s.chats[r.RequestID] = chatID
	}
}

func (s *fakeStore) GetRequest(_ context.Context, id int64) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) UpdateRequestStatus(_ context.Context, id int64, status domain.RequestStatus, note *string, from []domain.RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return false, s.updateErr
	}
	r, ok := s.requests[id]
	if s.beforeUpdate != nil {
		s.beforeUpdate(r)
		if _, still := s.requests[id]; !still {
			return false, nil
		}
	}
	if !ok || (len(from) > 0 && !slices.Contains(from, r.Status)) {
		return false, nil
	}
	r.Status = status
	if note != nil && r.AdminNote == nil {
		n := *note
		r.AdminNote = &n
	}
	s.writes = append(s.writes, status)
	return true, nil
}

func (s *fakeStore) AppendAdminLog(_ context.Context, entry domain.AdminLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, entry)
	return nil
}

func (s *fakeStore) GetSubmitterChatID(_ context.Context, id int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatErr != nil {
		return 0, false, s.chatErr
	}
	chat, ok := s.chats[id]
	return chat, ok, nil
}

type sent struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sent{chatID: chatID, text: text})
	return nil
}

var errUnreachable = errors.New("telegram unreachable")
