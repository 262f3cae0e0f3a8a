package telephony

import (
	"errors"
	"strings"
)

const clientIdentityPrefix = "user_"

var ErrMalformedIdentity = errors.New("telephony: malformed client identity")

// ClientIdentity is the softphone identity registered for a principal.
func ClientIdentity(principalID string) string {
	return clientIdentityPrefix + principalID
}

// ParseClientIdentity extracts the principal id from a webhook From value of
// the form "<prefix>:user_<id>" (e.g. "client:user_42").
func ParseClientIdentity(from string) (string, error) {
	prefix, rest, ok := strings.Cut(strings.TrimSpace(from), ":")
	if !ok || prefix == "" {
		return "", ErrMalformedIdentity
	}
	id, ok := strings.CutPrefix(rest, clientIdentityPrefix)
	if !ok || id == "" {
		return "", ErrMalformedIdentity
	}
	for _, r := range id {
		if !isIdentityRune(r) {
			return "", ErrMalformedIdentity
		}
	}
	return id, nil
}

func isIdentityRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z')
}
