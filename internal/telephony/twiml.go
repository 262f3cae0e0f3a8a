package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary.

// ContentTypeTwiML is the content type the carrier expects for call-control responses.
const ContentTypeTwiML = "text/xml; charset=utf-8"

// Instruction is a provider-agnostic call-control decision: optionally bridge
// to one target, then optionally speak a message.
type Instruction struct {
	Dial *DialTarget `json:"dial,omitempty"`
	Say  string      `json:"say,omitempty"`
}

// DialTarget is either a PSTN number or a softphone client identity.
type DialTarget struct {
	Number   string `json:"number,omitempty"`
	Client   string `json:"client,omitempty"`
	CallerID string `json:"caller_id,omitempty"`
	// TimeoutSeconds bounds how long the target rings. Zero keeps the carrier default.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// SayOnly builds an instruction that only speaks msg.
func SayOnly(msg string) Instruction {
	return Instruction{Say: msg}
}

// DialNumber bridges to a PSTN number.
func DialNumber(number, callerID string) Instruction {
	return Instruction{Dial: &DialTarget{Number: number, CallerID: callerID}}
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlDial struct {
	XMLName  xml.Name     `xml:"Dial"`
	CallerID string       `xml:"callerId,attr,omitempty"`
	Timeout  int          `xml:"timeout,attr,omitempty"`
	Number   string       `xml:"Number,omitempty"`
	Client   *twimlClient `xml:"Client,omitempty"`
	Sip      *twimlSip    `xml:"Sip,omitempty"`
}

type twimlClient struct {
	Identity string `xml:",chardata"`
}

type twimlSip struct {
	URI string `xml:",chardata"`
}

// RenderTwiML maps an Instruction to TwiML.
func RenderTwiML(in Instruction) (string, error) {
	var r twimlResponse

	if in.Dial != nil {
		d := twimlDial{CallerID: in.Dial.CallerID, Timeout: in.Dial.TimeoutSeconds}
		switch {
		case strings.TrimSpace(in.Dial.Client) != "":
			d.Client = &twimlClient{Identity: in.Dial.Client}
		case strings.HasPrefix(strings.ToLower(in.Dial.Number), "sip:"):
			d.Sip = &twimlSip{URI: in.Dial.Number}
		case strings.TrimSpace(in.Dial.Number) != "":
			d.Number = in.Dial.Number
		default:
			return "", errors.New("telephony: dial target required")
		}
		r.Verbs = append(r.Verbs, d)
	}
	if in.Say != "" {
		r.Verbs = append(r.Verbs, twimlSay{Text: in.Say})
	}
	if len(r.Verbs) == 0 {
		return "", errors.New("telephony: empty instruction")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
