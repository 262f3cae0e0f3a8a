package calls

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"callbridge/internal/apperr"
	"callbridge/internal/phone"
	"callbridge/internal/telephony"
	"callbridge/pkg/logger"
)

// PhoneLookup is the slice of the phone store call initiation needs.
type PhoneLookup interface {
	GetByUser(ctx context.Context, userID string) (phone.PhoneNumber, error)
}

// CallerIDPolicy picks the outbound caller-id: the shared platform number or
// the principal's own verified number.
type CallerIDPolicy struct {
	UsePlatformNumber bool
	PlatformNumber    string
}

func (p CallerIDPolicy) Resolve(own phone.PhoneNumber) string {
	if p.UsePlatformNumber && p.PlatformNumber != "" {
		return p.PlatformNumber
	}
	return own.Number
}

// Webhook paths, relative to the public base URL.
const (
	PathStatusCallback = "/webhooks/twilio/voice/status"
	PathTwiML          = "/webhooks/twilio/voice/twiml"
	PathOutgoing       = "/webhooks/twilio/voice/outgoing"
	PathIncoming       = "/webhooks/twilio/voice/incoming"
)

// CallbackURLs are the absolute URLs the carrier calls back on.
type CallbackURLs struct {
	Control string
	Status  string
}

func NewCallbackURLs(publicBaseURL string) CallbackURLs {
	base := strings.TrimRight(publicBaseURL, "/")
	return CallbackURLs{Control: base + PathTwiML, Status: base + PathStatusCallback}
}

type Service struct {
	phones   PhoneLookup
	store    Store
	carrier  telephony.CallClient
	callerID CallerIDPolicy
	urls     CallbackURLs
}

func NewService(phones PhoneLookup, store Store, carrier telephony.CallClient, callerID CallerIDPolicy, urls CallbackURLs) *Service {
	return &Service{phones: phones, store: store, carrier: carrier, callerID: callerID, urls: urls}
}

// PlaceCallResult is returned to the principal after a successful create call.
type PlaceCallResult struct {
	CallSid  string `json:"call_sid"`
	RecordID string `json:"call_log_id"`
	Status   Status `json:"status"`
}

// PlaceCall opens an outbound call from the principal's verified number.
//
// The record is written as initiated before the carrier is contacted. A
// carrier failure leaves it as failed with the carrier's message.
func (s *Service) PlaceCall(ctx context.Context, userID, destination string) (PlaceCallResult, error) {
	own, err := VerifiedNumber(ctx, s.phones, userID)
	if err != nil {
		return PlaceCallResult{}, err
	}

	to, err := phone.Normalize(destination)
	if err != nil {
		return PlaceCallResult{}, err
	}

	phoneID := own.ID
	rec, err := s.store.Create(ctx, CallRecord{
		UserID:            userID,
		PhoneNumberID:     &phoneID,
		Direction:         DirectionOutbound,
		DestinationNumber: to,
		Status:            StatusInitiated,
	})
	if err != nil {
		return PlaceCallResult{}, err
	}

	log := logger.From(ctx).With("call_log_id", rec.ID, "user_id", userID)

	created, err := s.carrier.CreateCall(ctx, telephony.CreateCallRequest{
		To:            to,
		From:          s.callerID.Resolve(own),
		ControlURL:    s.urls.Control,
		ControlMethod: http.MethodPost,
		StatusURL:     s.urls.Status,
		StatusMethod:  http.MethodPost,
		StatusEvents:  telephony.StatusCallbackEvents,
	})
	if err != nil {
		msg := apperr.CarrierMessage(err)
		if _, mErr := s.store.MarkFailed(ctx, rec.ID, msg); mErr != nil {
			log.Error("mark call failed", "error", mErr)
		}
		log.Warn("create call rejected by carrier", "error", msg)
		return PlaceCallResult{}, apperr.Carrier("could not initiate call", err)
	}

	status := Status(created.Status)
	if status == "" {
		status = StatusInitiated
	}
	rec, err = s.store.AssignCarrierSid(ctx, rec.ID, created.Sid, status)
	if err != nil {
		// The carrier call exists; status events will not find it without the sid.
		log.Error("assign carrier sid", "call_sid", created.Sid, "error", err)
		return PlaceCallResult{}, err
	}

	log.Info("call initiated", "call_sid", created.Sid, "status", string(rec.Status))
	return PlaceCallResult{CallSid: created.Sid, RecordID: rec.ID, Status: rec.Status}, nil
}

// CancelCall asks the carrier to complete an in-progress call.
func (s *Service) CancelCall(ctx context.Context, callSid string) error {
	if strings.TrimSpace(callSid) == "" {
		return apperr.Validation("call_sid is required")
	}
	if err := s.carrier.UpdateCall(ctx, callSid, telephony.CallStatusCompleted); err != nil {
		return apperr.Carrier("could not end call", err)
	}
	logger.From(ctx).Info("call end requested", "call_sid", callSid)
	return nil
}

// CancelOwnedCall cancels callSid only if it belongs to userID. A call owned
// by someone else is reported as not found.
func (s *Service) CancelOwnedCall(ctx context.Context, userID, callSid string) error {
	rec, err := s.store.FindByCarrierSid(ctx, callSid)
	if err != nil {
		return err
	}
	if rec.UserID != userID {
		return apperr.ErrNotFound
	}
	return s.CancelCall(ctx, callSid)
}

// History lists the principal's call records newest first.
func (s *Service) History(ctx context.Context, userID string) ([]CallRecord, error) {
	return s.store.ListByUser(ctx, userID)
}

// VerifiedNumber loads the principal's number and requires it to be verified.
// A missing number is reported as not verified.
func VerifiedNumber(ctx context.Context, phones PhoneLookup, userID string) (phone.PhoneNumber, error) {
	p, err := phones.GetByUser(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return phone.PhoneNumber{}, apperr.ErrNotVerified
	}
	if err != nil {
		return phone.PhoneNumber{}, err
	}
	if !p.IsVerified() {
		return phone.PhoneNumber{}, apperr.ErrNotVerified
	}
	return p, nil
}
