package signaling

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"callbridge/internal/apperr"
	"callbridge/internal/calls"
	"callbridge/internal/telephony"
	"callbridge/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of a softphone access token.
const TokenTTL = time.Hour

// contentType marks the JWT as a carrier access token.
const contentType = "twilio-fpa;v=1"

// Credentials are the four values needed to sign softphone tokens.
type Credentials struct {
	AccountSID   string
	APIKeySID    string
	APIKeySecret string
	AppSID       string
}

func (c Credentials) Complete() bool {
	return c.AccountSID != "" && c.APIKeySID != "" && c.APIKeySecret != "" && c.AppSID != ""
}

type voiceGrant struct {
	Incoming struct {
		Allow bool `json:"allow"`
	} `json:"incoming"`
	Outgoing struct {
		ApplicationSID string `json:"application_sid"`
	} `json:"outgoing"`
}

type grants struct {
	Identity string     `json:"identity"`
	Voice    voiceGrant `json:"voice"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Grants grants `json:"grants"`
}

// Token is handed to the browser softphone.
type Token struct {
	Token     string    `json:"token"`
	Identity  string    `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer signs softphone access tokens for principals with a verified number.
type Issuer struct {
	phones calls.PhoneLookup
	creds  Credentials
	ttl    time.Duration
	clock  func() time.Time
}

func NewIssuer(phones calls.PhoneLookup, creds Credentials) *Issuer {
	return &Issuer{phones: phones, creds: creds, ttl: TokenTTL, clock: time.Now}
}

func (i *Issuer) IssueToken(ctx context.Context, userID string) (Token, error) {
	if _, err := calls.VerifiedNumber(ctx, i.phones, userID); err != nil {
		return Token{}, err
	}
	if !i.creds.Complete() {
		logger.From(ctx).Error("softphone token requested but signaling credentials are missing")
		return Token{}, apperr.Configuration("twilio signaling credentials")
	}

	now := i.clock()
	identity := telephony.ClientIdentity(userID)
	exp := now.Add(i.ttl)

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        i.creds.APIKeySID + "-" + strconv.FormatInt(now.Unix(), 10),
			Issuer:    i.creds.APIKeySID,
			Subject:   i.creds.AccountSID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	claims.Grants.Identity = identity
	claims.Grants.Voice.Incoming.Allow = true
	claims.Grants.Voice.Outgoing.ApplicationSID = i.creds.AppSID

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["cty"] = contentType

	signed, err := t.SignedString([]byte(i.creds.APIKeySecret))
	if err != nil {
		return Token{}, fmt.Errorf("sign access token: %w", err)
	}
	return Token{Token: signed, Identity: identity, ExpiresAt: exp}, nil
}
