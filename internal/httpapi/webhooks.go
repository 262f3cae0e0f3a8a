package httpapi

import (
	"net/http"

	"callbridge/internal/callcontrol"
	"callbridge/internal/calls"
	"callbridge/internal/metrics"
	"callbridge/internal/telephony"
	"callbridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Webhooks handles carrier callbacks. None of these carry a session, and
// none answer with an error status for internal faults: the carrier would
// otherwise retry indefinitely.
type Webhooks struct {
	Reconciler *calls.Reconciler
	Responder  *callcontrol.Responder
	Metrics    *metrics.Metrics
}

func (w Webhooks) StatusCallback(c *gin.Context) {
	ctx := c.Request.Context()
	form, err := telephony.ParseTwilioStatus(c.Request)
	if err != nil {
		logger.From(ctx).Warn("unreadable status callback", "error", err)
		w.Metrics.StatusEvent(string(calls.OutcomeFailed))
		c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
		return
	}

	outcome := w.Reconciler.ApplyStatusEvent(ctx, calls.StatusEvent{
		CallSid:       form.CallSid,
		ParentCallSid: form.ParentCallSid,
		Status:        form.CallStatus,
		StartTime:     form.StartTime,
		EndTime:       form.EndTime,
		Duration:      form.CallDuration,
		Price:         form.Price,
		ErrorMessage:  form.ErrorMessage,
	})
	w.Metrics.StatusEvent(string(outcome))
	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}

func (w Webhooks) TwiML(c *gin.Context) {
	form, ok := w.voiceForm(c)
	if !ok {
		return
	}
	w.respond(c, "twiml", w.Responder.Generic(form.To))
}

func (w Webhooks) Outgoing(c *gin.Context) {
	form, ok := w.voiceForm(c)
	if !ok {
		return
	}
	w.respond(c, "outgoing", w.Responder.Outgoing(c.Request.Context(), callcontrol.OutgoingCall{
		CallSid: form.CallSid,
		From:    form.From,
		To:      form.To,
	}))
}

func (w Webhooks) Incoming(c *gin.Context) {
	form, ok := w.voiceForm(c)
	if !ok {
		return
	}
	w.respond(c, "incoming", w.Responder.Incoming(c.Request.Context(), callcontrol.IncomingCall{
		CallSid: form.CallSid,
		From:    form.From,
		To:      form.To,
	}))
}

func (w Webhooks) voiceForm(c *gin.Context) (telephony.TwilioVoiceForm, bool) {
	form, err := telephony.ParseTwilioVoice(c.Request)
	if err != nil {
		logger.From(c.Request.Context()).Warn("unreadable call-control webhook", "path", c.FullPath(), "error", err)
		w.respond(c, "invalid", telephony.SayOnly(callcontrol.MsgConfigError))
		return telephony.TwilioVoiceForm{}, false
	}
	return form, true
}

func (w Webhooks) respond(c *gin.Context, webhook string, in telephony.Instruction) {
	body, err := telephony.RenderTwiML(in)
	if err != nil {
		logger.From(c.Request.Context()).Error("render twiml", "webhook", webhook, "error", err)
		in = telephony.SayOnly(callcontrol.MsgConfigError)
		body, _ = telephony.RenderTwiML(in)
	}
	verb := "say"
	if in.Dial != nil {
		verb = "dial"
	}
	w.Metrics.Instruction(webhook, verb)
	c.Data(http.StatusOK, telephony.ContentTypeTwiML, []byte(body))
}
