package telephony

import (
	"context"
)

// Carrier capabilities consumed by business logic.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Request/response types stay provider-agnostic.
// - Failures are returned as *apperr.CarrierError carrying the provider's text.

// Verifier sends and checks one-time codes.
type Verifier interface {
	// Configured reports whether a verification service identifier is present.
	Configured() bool
	SendCode(ctx context.Context, to, channel string) (Verification, error)
	CheckCode(ctx context.Context, to, code string) (VerificationCheck, error)
}

// CallClient opens and updates voice calls.
type CallClient interface {
	CreateCall(ctx context.Context, req CreateCallRequest) (CreatedCall, error)
	UpdateCall(ctx context.Context, callSid string, status string) error
}

const (
	ChannelSMS = "sms"

	// VerificationApproved is the check status that marks a code as correct.
	VerificationApproved = "approved"

	// CallStatusCompleted asks the carrier to hang up an in-progress call.
	CallStatusCompleted = "completed"
)

// StatusCallbackEvents is the full set of call progress events we subscribe to.
var StatusCallbackEvents = []string{"initiated", "ringing", "answered", "completed", "failed", "busy", "no-answer"}

type Verification struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

type VerificationCheck struct {
	Status string `json:"status"`
}

func (c VerificationCheck) Approved() bool {
	return c.Status == VerificationApproved
}

// CreateCallRequest describes an outbound call and where the carrier should
// fetch call-control instructions and post progress events.
type CreateCallRequest struct {
	To   string
	From string

	ControlURL    string
	ControlMethod string

	StatusURL    string
	StatusMethod string
	StatusEvents []string
}

type CreatedCall struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}
