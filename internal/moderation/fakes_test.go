package moderation

import (
	"context"
	"slices"
	"sync"

	"github.com/m3rciful/telecopter/internal/domain"
)

// memStore satisfies both the moderation and the lifecycle store.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*domain.Request
	users    map[int64]*domain.User
	logs     []domain.AdminLog
	writes   int

	createErr error
}

func newMemStore() *memStore {
	return &memStore{requests: map[int64]*domain.Request{}, users: map[int64]*domain.User{}}
}

func (s *memStore) GetRequest(_ context.Context, id int64) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) UpdateRequestStatus(_ context.Context, id int64, status domain.RequestStatus, note *string, from []domain.RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || (len(from) > 0 && !slices.Contains(from, r.Status)) {
		return false, nil
	}
	r.Status = status
	if note != nil && r.AdminNote == nil {
		n := *note
		r.AdminNote = &n
	}
	s.writes++
	return true, nil
}

func (s *memStore) AppendAdminLog(_ context.Context, e domain.AdminLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, e)
	return nil
}

func (s *memStore) GetSubmitterChatID(_ context.Context, id int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return 0, false, nil
	}
	u, ok := s.users[r.UserID]
	if !ok {
		return 0, false, nil
	}
	return u.ChatID, true, nil
}

func (s *memStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) UpsertUser(_ context.Context, p domain.UserProfile) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[p.UserID]
	if !ok {
		u = &domain.User{UserID: p.UserID, ApprovalStatus: domain.ApprovalNew}
		s.users[p.UserID] = u
	}
	u.ChatID = p.ChatID
	u.FirstName = p.FirstName
	if p.Username != "" {
		name := p.Username
		u.Username = &name
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) SetApprovalStatus(_ context.Context, id int64, status domain.ApprovalStatus, from []domain.ApprovalStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !slices.Contains(from, u.ApprovalStatus) {
		return false, nil
	}
	u.ApprovalStatus = status
	return true, nil
}

func (s *memStore) CreateRequest(_ context.Context, nr domain.NewRequest) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	r := &domain.Request{
		RequestID:   s.nextID,
		UserID:      nr.UserID,
		RequestType: nr.RequestType,
		Status:      domain.StatusPendingAdmin,
		Title:       nr.Title,
	}
	s.requests[r.RequestID] = r
	cp := *r
	return &cp, nil
}

func (s *memStore) ListPending(_ context.Context, _ []domain.RequestType, page, size int) ([]domain.Request, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.Request
	for id := int64(1); id <= s.nextID; id++ {
		if r, ok := s.requests[id]; ok && slices.Contains(domain.ActionableStatuses, r.Status) {
			all = append(all, *r)
		}
	}
	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := min(start+size, len(all))
	return all[start:end], len(all), nil
}

func (s *memStore) FindOpenApprovalTask(_ context.Context, userID int64) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.UserID == userID && r.RequestType == domain.TypeUserApproval && r.Status == domain.StatusPendingAdmin {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

type recorder struct {
	mu    sync.Mutex
	texts map[int64][]string
	tasks []domain.Request
	err   error
}

func (r *recorder) Notify(_ context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.texts == nil {
		r.texts = map[int64][]string{}
	}
	r.texts[chatID] = append(r.texts[chatID], text)
	return nil
}

func (r *recorder) NotifyAdmins(_ context.Context, req domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, req)
	return nil
}
