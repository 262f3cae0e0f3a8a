package phone

import (
	"context"
	"time"
)

// Store persists PhoneNumber rows. Implementations must make Upsert an
// atomic single-row write keyed by user id.
type Store interface {
	// Upsert creates or replaces the principal's number, clearing verified_at.
	// The row id is kept stable across replacements.
	Upsert(ctx context.Context, userID, number string) (PhoneNumber, error)
	// GetByUser returns apperr.ErrNotFound when the principal has no number.
	GetByUser(ctx context.Context, userID string) (PhoneNumber, error)
	// FindVerifiedByNumber returns apperr.ErrNotFound unless a verified row matches.
	FindVerifiedByNumber(ctx context.Context, number string) (PhoneNumber, error)
	MarkVerified(ctx context.Context, id string, at time.Time) (PhoneNumber, error)
	// DeleteByUser reports whether a row existed. Dependent call records keep
	// their history with a null phone reference.
	DeleteByUser(ctx context.Context, userID string) (bool, error)
}
