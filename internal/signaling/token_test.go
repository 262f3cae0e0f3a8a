package signaling

import (
	"context"
	"testing"
	"time"

	"callbridge/internal/apperr"
	"callbridge/internal/phone"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	AccountSID:   "ACtest",
	APIKeySID:    "SKtest",
	APIKeySecret: "secret",
	AppSID:       "APtest",
}

func verifiedPhones(t *testing.T, userID string) *phone.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := phone.NewMemoryStore()
	p, err := s.Upsert(ctx, userID, "+15551234567")
	require.NoError(t, err)
	_, err = s.MarkVerified(ctx, p.ID, time.Now())
	require.NoError(t, err)
	return s
}

func TestIssueTokenClaims(t *testing.T) {
	iss := NewIssuer(verifiedPhones(t, "42"), testCreds)
	now := time.Now().Truncate(time.Second)
	iss.clock = func() time.Time { return now }

	tok, err := iss.IssueToken(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "user_42", tok.Identity)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)

	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(tok.Token, &claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "twilio-fpa;v=1", parsed.Header["cty"])
	assert.Equal(t, "SKtest", claims.Issuer)
	assert.Equal(t, "ACtest", claims.Subject)
	assert.Contains(t, claims.ID, "SKtest-")
	assert.Equal(t, "user_42", claims.Grants.Identity)
	assert.True(t, claims.Grants.Voice.Incoming.Allow)
	assert.Equal(t, "APtest", claims.Grants.Voice.Outgoing.ApplicationSID)
}

func TestIssueTokenRequiresVerifiedNumber(t *testing.T) {
	ctx := context.Background()
	phones := phone.NewMemoryStore()
	iss := NewIssuer(phones, testCreds)

	_, err := iss.IssueToken(ctx, "42")
	assert.ErrorIs(t, err, apperr.ErrNotVerified)

	_, err = phones.Upsert(ctx, "42", "+15551234567")
	require.NoError(t, err)
	_, err = iss.IssueToken(ctx, "42")
	assert.ErrorIs(t, err, apperr.ErrNotVerified)
}

func TestIssueTokenRequiresAllCredentials(t *testing.T) {
	partial := testCreds
	partial.AppSID = ""
	iss := NewIssuer(verifiedPhones(t, "42"), partial)

	_, err := iss.IssueToken(context.Background(), "42")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}
