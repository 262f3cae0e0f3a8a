package phone

import (
	"context"
	"errors"
	"time"

	"callbridge/internal/apperr"
	"callbridge/internal/telephony"
	"callbridge/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// Service runs the SMS one-time-code verification flow.
type Service struct {
	store    Store
	verifier telephony.Verifier
	sessions SessionStore
	validate *validator.Validate
	clock    func() time.Time
}

// NewService builds the flow. sessions may be nil.
func NewService(store Store, verifier telephony.Verifier, sessions SessionStore) *Service {
	return &Service{
		store:    store,
		verifier: verifier,
		sessions: sessions,
		validate: validator.New(),
		clock:    time.Now,
	}
}

type VerificationRequested struct {
	VerificationSid string `json:"verification_sid"`
	PhoneNumber     string `json:"phone_number"`
}

type VerificationResult struct {
	Verified    bool   `json:"verified"`
	PhoneNumber string `json:"phone_number"`
}

// NumberStatus is the principal's view of their number.
type NumberStatus struct {
	PhoneNumber         string     `json:"phone_number"`
	IsVerified          bool       `json:"is_verified"`
	VerifiedAt          *time.Time `json:"verified_at"`
	VerificationPending bool       `json:"verification_pending"`
}

type confirmInput struct {
	Code string `validate:"required,numeric,len=6"`
}

// RequestVerification sends a code to number and replaces the principal's
// number with it, unverified. A failed send leaves the stored number as is.
func (s *Service) RequestVerification(ctx context.Context, userID, number string) (VerificationRequested, error) {
	if !s.verifier.Configured() {
		return VerificationRequested{}, apperr.Configuration("twilio verify service")
	}
	normalized, err := Normalize(number)
	if err != nil {
		return VerificationRequested{}, err
	}

	v, err := s.verifier.SendCode(ctx, normalized, telephony.ChannelSMS)
	if err != nil {
		return VerificationRequested{}, carrierFailure("could not send verification code", err)
	}

	if _, err := s.store.Upsert(ctx, userID, normalized); err != nil {
		return VerificationRequested{}, err
	}

	log := logger.From(ctx)
	if s.sessions != nil {
		if err := s.sessions.Put(ctx, userID, v.Sid); err != nil {
			log.Warn("store verification session", "user_id", userID, "error", err)
		}
	}
	log.Info("verification code sent", "user_id", userID, "verification_sid", v.Sid)
	return VerificationRequested{VerificationSid: v.Sid, PhoneNumber: normalized}, nil
}

// ConfirmVerification checks code against the principal's stored number.
func (s *Service) ConfirmVerification(ctx context.Context, userID, code string) (VerificationResult, error) {
	if err := s.validate.Struct(confirmInput{Code: code}); err != nil {
		return VerificationResult{}, apperr.Validation("code must be exactly 6 digits")
	}

	p, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return VerificationResult{}, err
	}

	check, err := s.verifier.CheckCode(ctx, p.Number, code)
	if err != nil {
		return VerificationResult{}, carrierFailure("could not verify code", err)
	}
	if !check.Approved() {
		logger.From(ctx).Info("verification code rejected", "user_id", userID, "status", check.Status)
		return VerificationResult{}, apperr.ErrInvalidCode
	}

	if _, err := s.store.MarkVerified(ctx, p.ID, s.clock()); err != nil {
		return VerificationResult{}, err
	}
	s.clearSession(ctx, userID)
	logger.From(ctx).Info("phone number verified", "user_id", userID)
	return VerificationResult{Verified: true, PhoneNumber: p.Number}, nil
}

// Status returns the principal's number, or apperr.ErrNotFound.
func (s *Service) Status(ctx context.Context, userID string) (NumberStatus, error) {
	p, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return NumberStatus{}, err
	}
	out := NumberStatus{PhoneNumber: p.Number, IsVerified: p.IsVerified(), VerifiedAt: p.VerifiedAt}
	if s.sessions != nil && !out.IsVerified {
		pending, err := s.sessions.Pending(ctx, userID)
		if err != nil {
			logger.From(ctx).Warn("read verification session", "user_id", userID, "error", err)
		}
		out.VerificationPending = pending
	}
	return out, nil
}

// Remove deletes the principal's number. Call history is kept.
func (s *Service) Remove(ctx context.Context, userID string) error {
	ok, err := s.store.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}
	s.clearSession(ctx, userID)
	logger.From(ctx).Info("phone number removed", "user_id", userID)
	return nil
}

func (s *Service) clearSession(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Clear(ctx, userID); err != nil {
		logger.From(ctx).Warn("clear verification session", "user_id", userID, "error", err)
	}
}

// carrierFailure passes configuration errors through untouched.
func carrierFailure(op string, err error) error {
	if errors.Is(err, apperr.ErrConfiguration) {
		return err
	}
	return apperr.Carrier(op, err)
}
