package calls

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatusEvent is one asynchronous call progress notification from the carrier.
// Optional fields are nil when absent.
type StatusEvent struct {
	CallSid       string
	ParentCallSid string
	Status        string

	StartTime    *string
	EndTime      *string
	Duration     *string
	Price        *string
	ErrorMessage *string
}

// Carrier timestamps are RFC 1123 with a numeric zone; RFC 3339 is accepted
// for events replayed from other sources.
var eventTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339Nano,
}

// StatusChange is the parsed subset of a StatusEvent that will be written.
// A nil field (or an invalid Price) was absent or malformed in the event and
// must be left as stored.
type StatusChange struct {
	Status       *Status
	StartTime    *time.Time
	EndTime      *time.Time
	Duration     *int
	Price        decimal.NullDecimal
	ErrorMessage *string
}

// ChangeFrom parses ev field by field. Malformed optional values are dropped
// individually; an empty status leaves the stored status alone.
func ChangeFrom(ev StatusEvent) StatusChange {
	var ch StatusChange
	if s := strings.TrimSpace(ev.Status); s != "" {
		st := Status(s)
		ch.Status = &st
	}
	if t, ok := parseEventTime(ev.StartTime); ok {
		ch.StartTime = &t
	}
	if t, ok := parseEventTime(ev.EndTime); ok {
		ch.EndTime = &t
	}
	if d, ok := parseDuration(ev.Duration); ok {
		ch.Duration = &d
	}
	if p, ok := parsePrice(ev.Price); ok {
		ch.Price = decimal.NewNullDecimal(p)
	}
	if ev.ErrorMessage != nil && *ev.ErrorMessage != "" {
		msg := *ev.ErrorMessage
		ch.ErrorMessage = &msg
	}
	return ch
}

// ApplyTo returns rec with the present fields overwritten. CarrierSid is
// never touched.
func (ch StatusChange) ApplyTo(rec CallRecord) CallRecord {
	if ch.Status != nil {
		rec.Status = *ch.Status
	}
	if ch.StartTime != nil {
		t := *ch.StartTime
		rec.StartTime = &t
	}
	if ch.EndTime != nil {
		t := *ch.EndTime
		rec.EndTime = &t
	}
	if ch.Duration != nil {
		rec.Duration = *ch.Duration
	}
	if ch.Price.Valid {
		rec.Price = ch.Price
	}
	if ch.ErrorMessage != nil {
		msg := *ch.ErrorMessage
		rec.ErrorMessage = &msg
	}
	return rec
}

// Apply overwrites rec with the values present in ev and returns the result.
//
// It is a pure function of (record, event): applying the same event twice
// yields the same record.
func Apply(rec CallRecord, ev StatusEvent) CallRecord {
	return ChangeFrom(ev).ApplyTo(rec)
}

func parseEventTime(v *string) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	s := strings.TrimSpace(*v)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseDuration(v *string) (int, bool) {
	if v == nil {
		return 0, false
	}
	d, err := strconv.Atoi(strings.TrimSpace(*v))
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

func parsePrice(v *string) (decimal.Decimal, bool) {
	if v == nil {
		return decimal.Decimal{}, false
	}
	p, err := decimal.NewFromString(strings.TrimSpace(*v))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return p, true
}
