package calls

import (
	"context"
	"time"
)

// Store persists CallRecords. Every method is a single-row atomic write or read.
type Store interface {
	// Create inserts rec, assigning ID and timestamps. Returns apperr.ErrDuplicate
	// when rec.CarrierSid is already recorded.
	Create(ctx context.Context, rec CallRecord) (CallRecord, error)
	// FindByCarrierSid returns apperr.ErrNotFound when no row carries sid.
	FindByCarrierSid(ctx context.Context, sid string) (CallRecord, error)
	// AssignCarrierSid sets the carrier sid and status only while the sid is
	// still null. Returns apperr.ErrDuplicate when the row already has a sid or
	// another row owns it.
	AssignCarrierSid(ctx context.Context, id, sid string, status Status) (CallRecord, error)
	MarkFailed(ctx context.Context, id, message string) (CallRecord, error)
	// SaveStatus writes only the fields present in ch, in one statement, so
	// concurrent events for the same call cannot restore values the other
	// already replaced. It never writes the carrier sid.
	SaveStatus(ctx context.Context, id string, ch StatusChange) (CallRecord, error)
	// ListByUser returns the principal's records newest first.
	ListByUser(ctx context.Context, userID string) ([]CallRecord, error)
}

// InRange filters records created in [from, to). A zero bound is open.
func InRange(recs []CallRecord, from, to time.Time) []CallRecord {
	out := make([]CallRecord, 0, len(recs))
	for _, r := range recs {
		if !from.IsZero() && r.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !r.CreatedAt.Before(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}
