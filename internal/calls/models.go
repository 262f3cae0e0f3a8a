package calls

import (
	"time"

	"github.com/shopspring/decimal"
)

// CallRecord is the durable lifecycle record of one call attempt.
//
// Invariant: CarrierSid, once set, never changes and is unique across rows.
//
// Status is written by call initiation (initiated / failed / the carrier's
// create-call status) and afterwards only by status events.
type CallRecord struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// PhoneNumberID is nil once the originating number has been deleted.
	PhoneNumberID *string `json:"phone_number_id" db:"phone_number_id"`

	Direction         Direction `json:"direction" db:"direction"`
	DestinationNumber string    `json:"destination_number" db:"destination_number"`

	CarrierSid *string `json:"twilio_call_sid" db:"twilio_call_sid"`
	Status     Status  `json:"status" db:"status"`

	StartTime *time.Time `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time" db:"end_time"`

	// Duration is the call duration in seconds.
	Duration int                 `json:"duration" db:"duration"`
	Price    decimal.NullDecimal `json:"price" db:"price"`

	ErrorMessage *string `json:"error_message" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Status is an open enumeration: the carrier owns the value space, so any
// string is accepted. The constants below are the values we recognise.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no-answer"
	StatusCanceled   Status = "canceled"
)

// IsTerminal is informational only. Status events are still applied after a
// terminal value.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer, StatusCanceled:
		return true
	}
	return false
}

// HasCarrierSid reports whether the carrier identifier has been assigned.
func (r CallRecord) HasCarrierSid() bool {
	return r.CarrierSid != nil && *r.CarrierSid != ""
}
