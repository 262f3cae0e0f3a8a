package phone

import (
	"context"
	"sync"
	"time"

	"callbridge/internal/apperr"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu     sync.Mutex
	byUser map[string]PhoneNumber

	// OnDelete is invoked with the deleted row id, used to mirror the
	// ON DELETE SET NULL behaviour of the SQL schema.
	OnDelete func(phoneID string)

	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: map[string]PhoneNumber{}, clock: time.Now}
}

func (s *MemoryStore) Upsert(ctx context.Context, userID, number string) (PhoneNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	p, ok := s.byUser[userID]
	if !ok {
		p = PhoneNumber{ID: uuid.NewString(), UserID: userID, CreatedAt: now}
	}
	p.Number = number
	p.VerifiedAt = nil
	p.UpdatedAt = now
	s.byUser[userID] = p
	return p, nil
}

func (s *MemoryStore) GetByUser(ctx context.Context, userID string) (PhoneNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byUser[userID]
	if !ok {
		return PhoneNumber{}, apperr.ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) FindVerifiedByNumber(ctx context.Context, number string) (PhoneNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byUser {
		if p.Number == number && p.IsVerified() {
			return p, nil
		}
	}
	return PhoneNumber{}, apperr.ErrNotFound
}

func (s *MemoryStore) MarkVerified(ctx context.Context, id string, at time.Time) (PhoneNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uid, p := range s.byUser {
		if p.ID != id {
			continue
		}
		t := at.UTC()
		p.VerifiedAt = &t
		p.UpdatedAt = s.clock().UTC()
		s.byUser[uid] = p
		return p, nil
	}
	return PhoneNumber{}, apperr.ErrNotFound
}

func (s *MemoryStore) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	p, ok := s.byUser[userID]
	if ok {
		delete(s.byUser, userID)
	}
	onDelete := s.OnDelete
	s.mu.Unlock()

	if ok && onDelete != nil {
		onDelete(p.ID)
	}
	return ok, nil
}

// Count returns the number of stored rows for a principal (0 or 1).
func (s *MemoryStore) Count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[userID]; ok {
		return 1
	}
	return 0
}
