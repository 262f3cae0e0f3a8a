package reporting

import (
	"context"
	"time"

	"callbridge/internal/calls"
)

// CallHistory is the read side of the call store.
type CallHistory interface {
	ListByUser(ctx context.Context, userID string) ([]calls.CallRecord, error)
}

// StoreRepo serves reporting reads from a calls store. Per-principal volume
// is small, so the range filter runs in process.
type StoreRepo struct {
	history CallHistory
}

func NewStoreRepo(history CallHistory) *StoreRepo { return &StoreRepo{history: history} }

func (r *StoreRepo) ListCalls(ctx context.Context, userID string, from, to time.Time) ([]calls.CallRecord, error) {
	recs, err := r.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return calls.InRange(recs, from, to), nil
}
