package phone

import "time"

// PhoneNumber is the single phone number a principal may own.
//
// Invariant: at most one row per UserID. Registering again replaces the
// number in place and clears VerifiedAt.
type PhoneNumber struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Number string `json:"phone_number" db:"number"`

	VerifiedAt *time.Time `json:"verified_at" db:"verified_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsVerified reports whether the code check succeeded for the current number.
func (p PhoneNumber) IsVerified() bool {
	return p.VerifiedAt != nil
}
