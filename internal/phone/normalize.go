package phone

import (
	"strings"

	"callbridge/internal/apperr"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number is given without a leading +.
const DefaultRegion = "US"

// Normalize parses a user supplied number and returns it in E.164, the
// format the carrier expects on every API call and webhook.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Validation("phone number is required")
	}
	parsed, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", apperr.Validation("phone number is not valid")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
