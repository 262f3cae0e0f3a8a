package calls

import (
	"context"
	"sort"
	"sync"
	"time"

	"callbridge/internal/apperr"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]*memRow
	bySid map[string]string // carrier sid -> id
	seq   int64

	clock func() time.Time
}

type memRow struct {
	rec CallRecord
	seq int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]*memRow{}, bySid: map[string]string{}, clock: time.Now}
}

func (s *MemoryStore) Create(ctx context.Context, rec CallRecord) (CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.HasCarrierSid() {
		if _, ok := s.bySid[*rec.CarrierSid]; ok {
			return CallRecord{}, apperr.ErrDuplicate
		}
	}
	now := s.clock().UTC()
	rec.ID = uuid.NewString()
	if rec.Status == "" {
		rec.Status = StatusInitiated
	}
	if rec.Direction == "" {
		rec.Direction = DirectionOutbound
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	s.seq++
	s.byID[rec.ID] = &memRow{rec: rec, seq: s.seq}
	if rec.HasCarrierSid() {
		s.bySid[*rec.CarrierSid] = rec.ID
	}
	return rec, nil
}

func (s *MemoryStore) FindByCarrierSid(ctx context.Context, sid string) (CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySid[sid]
	if !ok {
		return CallRecord{}, apperr.ErrNotFound
	}
	return s.byID[id].rec, nil
}

func (s *MemoryStore) AssignCarrierSid(ctx context.Context, id, sid string, status Status) (CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.byID[id]
	if !ok {
		return CallRecord{}, apperr.ErrNotFound
	}
	if row.rec.HasCarrierSid() {
		return CallRecord{}, apperr.ErrDuplicate
	}
	if _, taken := s.bySid[sid]; taken {
		return CallRecord{}, apperr.ErrDuplicate
	}
	row.rec.CarrierSid = &sid
	if status != "" {
		row.rec.Status = status
	}
	row.rec.UpdatedAt = s.clock().UTC()
	s.bySid[sid] = id
	return row.rec, nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id, message string) (CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.byID[id]
	if !ok {
		return CallRecord{}, apperr.ErrNotFound
	}
	row.rec.Status = StatusFailed
	row.rec.ErrorMessage = &message
	row.rec.UpdatedAt = s.clock().UTC()
	return row.rec, nil
}

func (s *MemoryStore) SaveStatus(ctx context.Context, id string, ch StatusChange) (CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.byID[id]
	if !ok {
		return CallRecord{}, apperr.ErrNotFound
	}
	cur := ch.ApplyTo(row.rec)
	cur.UpdatedAt = s.clock().UTC()
	row.rec = cur
	return cur, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]*memRow, 0)
	for _, row := range s.byID {
		if row.rec.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].rec.CreatedAt.Equal(rows[j].rec.CreatedAt) {
			return rows[i].rec.CreatedAt.After(rows[j].rec.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]CallRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.rec)
	}
	return out, nil
}

// DetachPhone nulls the phone reference on every record pointing at phoneID,
// mirroring ON DELETE SET NULL.
func (s *MemoryStore) DetachPhone(phoneID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.byID {
		if row.rec.PhoneNumberID != nil && *row.rec.PhoneNumberID == phoneID {
			row.rec.PhoneNumberID = nil
		}
	}
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
