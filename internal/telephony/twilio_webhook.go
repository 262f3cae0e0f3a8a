package telephony

import (
	"net/http"
	"strings"
)

// TwilioVoiceForm captures the subset of voice webhook fields we care about.
// Twilio sends application/x-www-form-urlencoded by default (GET for some
// TwiML App configurations, so query values are accepted too).
// Ref: https://www.twilio.com/docs/voice/twiml
//
// Keep it minimal and provider-adapter-only.
type TwilioVoiceForm struct {
	CallSid       string
	ParentCallSid string
	AccountSid    string
	From          string
	To            string
	Direction     string
	CallStatus    string
	ApiVersion    string
}

func ParseTwilioVoice(r *http.Request) (TwilioVoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioVoiceForm{}, err
	}
	return TwilioVoiceForm{
		CallSid:       strings.TrimSpace(r.FormValue("CallSid")),
		ParentCallSid: strings.TrimSpace(r.FormValue("ParentCallSid")),
		AccountSid:    r.FormValue("AccountSid"),
		From:          normalizePhone(r.FormValue("From")),
		To:            normalizePhone(r.FormValue("To")),
		Direction:     r.FormValue("Direction"),
		CallStatus:    r.FormValue("CallStatus"),
		ApiVersion:    r.FormValue("ApiVersion"),
	}, nil
}

// TwilioStatusForm is a call progress event. Optional fields are nil when the
// carrier did not send them (or sent them empty).
type TwilioStatusForm struct {
	CallSid       string
	ParentCallSid string
	CallStatus    string

	CallDuration *string
	StartTime    *string
	EndTime      *string
	Price        *string
	ErrorMessage *string
}

func ParseTwilioStatus(r *http.Request) (TwilioStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioStatusForm{}, err
	}
	return TwilioStatusForm{
		CallSid:       strings.TrimSpace(r.FormValue("CallSid")),
		ParentCallSid: strings.TrimSpace(r.FormValue("ParentCallSid")),
		CallStatus:    strings.TrimSpace(r.FormValue("CallStatus")),
		CallDuration:  optional(r, "CallDuration"),
		StartTime:     optional(r, "StartTime"),
		EndTime:       optional(r, "EndTime"),
		Price:         optional(r, "Price"),
		ErrorMessage:  optional(r, "ErrorMessage"),
	}, nil
}

func optional(r *http.Request, key string) *string {
	if _, ok := r.Form[key]; !ok {
		return nil
	}
	v := strings.TrimSpace(r.Form.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return s
}
