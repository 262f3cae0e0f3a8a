package telephony

import (
	"context"
	"errors"

	"callbridge/internal/apperr"

	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

// TwilioConfig holds the REST credentials for the carrier adapter.
type TwilioConfig struct {
	AccountSID       string
	AuthToken        string
	VerifyServiceSID string
}

// TwilioCarrier implements Verifier and CallClient on top of the Twilio REST API.
// It is constructed once at startup and passed to each component.
//
// The SDK does not take a context; ctx is accepted for interface symmetry.
type TwilioCarrier struct {
	client           *twilio.RestClient
	verifyServiceSID string
}

func NewTwilioCarrier(cfg TwilioConfig) *TwilioCarrier {
	return &TwilioCarrier{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		verifyServiceSID: cfg.VerifyServiceSID,
	}
}

func (c *TwilioCarrier) Configured() bool { return c.verifyServiceSID != "" }

func (c *TwilioCarrier) SendCode(ctx context.Context, to, channel string) (Verification, error) {
	if !c.Configured() {
		return Verification{}, apperr.Configuration("twilio verify service")
	}
	params := &verify.CreateVerificationParams{}
	params.SetTo(to)
	params.SetChannel(channel)

	resp, err := c.client.VerifyV2.CreateVerification(c.verifyServiceSID, params)
	if err != nil {
		return Verification{}, carrierErr("send verification", err)
	}
	return Verification{Sid: deref(resp.Sid), Status: deref(resp.Status)}, nil
}

func (c *TwilioCarrier) CheckCode(ctx context.Context, to, code string) (VerificationCheck, error) {
	if !c.Configured() {
		return VerificationCheck{}, apperr.Configuration("twilio verify service")
	}
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(to)
	params.SetCode(code)

	resp, err := c.client.VerifyV2.CreateVerificationCheck(c.verifyServiceSID, params)
	if err != nil {
		return VerificationCheck{}, carrierErr("check verification", err)
	}
	return VerificationCheck{Status: deref(resp.Status)}, nil
}

func (c *TwilioCarrier) CreateCall(ctx context.Context, req CreateCallRequest) (CreatedCall, error) {
	params := &api.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetUrl(req.ControlURL)
	params.SetMethod(req.ControlMethod)
	params.SetStatusCallback(req.StatusURL)
	params.SetStatusCallbackMethod(req.StatusMethod)
	params.SetStatusCallbackEvent(req.StatusEvents)

	resp, err := c.client.Api.CreateCall(params)
	if err != nil {
		return CreatedCall{}, carrierErr("create call", err)
	}
	return CreatedCall{Sid: deref(resp.Sid), Status: deref(resp.Status)}, nil
}

func (c *TwilioCarrier) UpdateCall(ctx context.Context, callSid string, status string) error {
	params := &api.UpdateCallParams{}
	params.SetStatus(status)
	if _, err := c.client.Api.UpdateCall(callSid, params); err != nil {
		return carrierErr("update call", err)
	}
	return nil
}

// carrierErr keeps only the provider's human readable message so it can be
// surfaced to the principal without leaking request internals.
func carrierErr(op string, err error) error {
	msg := err.Error()
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) && restErr.Message != "" {
		msg = restErr.Message
	}
	return &apperr.CarrierError{Op: op, Message: msg, Err: err}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
