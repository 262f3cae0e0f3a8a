package callcontrol

import (
	"context"
	"errors"
	"strings"

	"callbridge/internal/apperr"
	"callbridge/internal/calls"
	"callbridge/internal/phone"
	"callbridge/internal/telephony"
	"callbridge/pkg/logger"
)

// Spoken messages returned to callers.
const (
	MsgUnavailable   = "La persona a la que llama no está disponible en este momento. Por favor, inténtelo más tarde."
	MsgInvalidNumber = "El número al que ha llamado no es válido."
	MsgUserNotFound  = "Usuario no encontrado."
	MsgConfigError   = "Error en la configuración de la llamada. Por favor, inténtelo de nuevo más tarde."
)

// DefaultDialTimeout is how long an incoming call rings the softphone.
const DefaultDialTimeout = 20

// PhoneFinder is the slice of the phone store the responder reads.
type PhoneFinder interface {
	GetByUser(ctx context.Context, userID string) (phone.PhoneNumber, error)
	FindVerifiedByNumber(ctx context.Context, number string) (phone.PhoneNumber, error)
}

// Recorder creates call records for calls first seen through a webhook.
type Recorder interface {
	Create(ctx context.Context, rec calls.CallRecord) (calls.CallRecord, error)
}

// Responder answers the carrier's synchronous call-control webhooks.
//
// It never fails: every outcome is an instruction, and recording faults are
// logged so the caller still gets connected.
type Responder struct {
	phones      PhoneFinder
	records     Recorder
	callerID    calls.CallerIDPolicy
	dialTimeout int
}

func NewResponder(phones PhoneFinder, records Recorder, callerID calls.CallerIDPolicy, dialTimeoutSeconds int) *Responder {
	if dialTimeoutSeconds <= 0 {
		dialTimeoutSeconds = DefaultDialTimeout
	}
	return &Responder{phones: phones, records: records, callerID: callerID, dialTimeout: dialTimeoutSeconds}
}

// IncomingCall is a PSTN call arriving on a number.
type IncomingCall struct {
	CallSid string
	From    string
	To      string
}

// Incoming rings the softphone of whoever verified the dialled number, then
// plays the unavailable message if nobody picks up.
func (r *Responder) Incoming(ctx context.Context, in IncomingCall) telephony.Instruction {
	log := logger.From(ctx).With("call_sid", in.CallSid)

	owner, err := r.phones.FindVerifiedByNumber(ctx, strings.TrimSpace(in.To))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			log.Error("incoming call lookup", "to", in.To, "error", err)
		}
		return telephony.SayOnly(MsgInvalidNumber)
	}

	r.record(ctx, calls.CallRecord{
		UserID:            owner.UserID,
		PhoneNumberID:     &owner.ID,
		Direction:         calls.DirectionInbound,
		DestinationNumber: owner.Number,
	}, in.CallSid)

	return telephony.Instruction{
		Dial: &telephony.DialTarget{
			Client:         telephony.ClientIdentity(owner.UserID),
			TimeoutSeconds: r.dialTimeout,
		},
		Say: MsgUnavailable,
	}
}

// OutgoingCall is a softphone-originated call reaching the carrier.
type OutgoingCall struct {
	CallSid string
	// From is the client identity, e.g. "client:user_42".
	From string
	To   string
}

// Outgoing bridges a softphone call to the PSTN using the caller's resolved
// caller-id, recording it against the inbound call sid.
func (r *Responder) Outgoing(ctx context.Context, in OutgoingCall) telephony.Instruction {
	log := logger.From(ctx).With("call_sid", in.CallSid)

	userID, err := telephony.ParseClientIdentity(in.From)
	if err != nil {
		log.Warn("outgoing call from unrecognised identity", "from", in.From)
		return telephony.SayOnly(MsgUserNotFound)
	}

	own, err := calls.VerifiedNumber(ctx, r.phones, userID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotVerified) {
			log.Error("outgoing call lookup", "user_id", userID, "error", err)
		}
		return telephony.SayOnly(MsgUserNotFound)
	}

	to := strings.TrimSpace(in.To)
	if to == "" {
		return telephony.SayOnly(MsgConfigError)
	}

	r.record(ctx, calls.CallRecord{
		UserID:            userID,
		PhoneNumberID:     &own.ID,
		Direction:         calls.DirectionOutbound,
		DestinationNumber: to,
	}, in.CallSid)

	return telephony.DialNumber(to, r.callerID.Resolve(own))
}

// Generic dials To when present, otherwise speaks the configuration error.
func (r *Responder) Generic(to string) telephony.Instruction {
	to = strings.TrimSpace(to)
	if to == "" {
		return telephony.SayOnly(MsgConfigError)
	}
	return telephony.Instruction{Dial: &telephony.DialTarget{Number: to}}
}

// record stores rec tagged with callSid. A carrier retry of the same webhook
// finds the sid already recorded and is a no-op.
func (r *Responder) record(ctx context.Context, rec calls.CallRecord, callSid string) {
	log := logger.From(ctx)
	if callSid == "" {
		log.Warn("call-control webhook without CallSid; not recorded")
		return
	}
	rec.CarrierSid = &callSid
	rec.Status = calls.StatusInitiated

	created, err := r.records.Create(ctx, rec)
	switch {
	case errors.Is(err, apperr.ErrDuplicate):
		log.Debug("call already recorded", "call_sid", callSid)
	case err != nil:
		log.Error("record call", "call_sid", callSid, "error", err)
	default:
		log.Info("call recorded", "call_sid", callSid, "call_log_id", created.ID, "direction", string(created.Direction))
	}
}
