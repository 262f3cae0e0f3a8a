package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"callbridge/internal/apperr"
	"callbridge/internal/phone"
	"callbridge/internal/telephony"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCallClient struct {
	createFn func(ctx context.Context, req telephony.CreateCallRequest) (telephony.CreatedCall, error)
	updateFn func(ctx context.Context, callSid, status string) error

	created []telephony.CreateCallRequest
	updated []string
}

func (f *fakeCallClient) CreateCall(ctx context.Context, req telephony.CreateCallRequest) (telephony.CreatedCall, error) {
	f.created = append(f.created, req)
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return telephony.CreatedCall{Sid: "CA1", Status: "initiated"}, nil
}

func (f *fakeCallClient) UpdateCall(ctx context.Context, callSid, status string) error {
	f.updated = append(f.updated, callSid+"="+status)
	if f.updateFn != nil {
		return f.updateFn(ctx, callSid, status)
	}
	return nil
}

type fixture struct {
	phones  *phone.MemoryStore
	store   *MemoryStore
	carrier *fakeCallClient
	svc     *Service
}

func newFixture(t *testing.T, policy CallerIDPolicy) fixture {
	t.Helper()
	f := fixture{phones: phone.NewMemoryStore(), store: NewMemoryStore(), carrier: &fakeCallClient{}}
	f.svc = NewService(f.phones, f.store, f.carrier, policy, NewCallbackURLs("https://api.example.com/"))
	return f
}

func (f fixture) verify(t *testing.T, userID, number string) phone.PhoneNumber {
	t.Helper()
	ctx := context.Background()
	p, err := f.phones.Upsert(ctx, userID, number)
	require.NoError(t, err)
	p, err = f.phones.MarkVerified(ctx, p.ID, time.Now())
	require.NoError(t, err)
	return p
}

func TestPlaceCallRequiresVerifiedNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, CallerIDPolicy{})

	_, err := f.svc.PlaceCall(ctx, "u1", "+15553334444")
	assert.ErrorIs(t, err, apperr.ErrNotVerified)

	_, err = f.svc.PlaceCall(ctx, "u1", "not-a-number")
	assert.ErrorIs(t, err, apperr.ErrNotVerified)
	assert.NotErrorIs(t, err, apperr.ErrValidation)

	_, err = f.phones.Upsert(ctx, "u1", "+15551234567")
	require.NoError(t, err)
	_, err = f.svc.PlaceCall(ctx, "u1", "+15553334444")
	assert.ErrorIs(t, err, apperr.ErrNotVerified)
	_, err = f.svc.PlaceCall(ctx, "u1", "not-a-number")
	assert.ErrorIs(t, err, apperr.ErrNotVerified)

	assert.Empty(t, f.carrier.created, "carrier must not be reached")
	assert.Zero(t, f.store.Len(), "no record may be created")
}

func TestPlaceCallRecordsCarrierSid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, CallerIDPolicy{})
	own := f.verify(t, "u1", "+15551234567")

	res, err := f.svc.PlaceCall(ctx, "u1", "+15553334444")
	require.NoError(t, err)
	assert.Equal(t, "CA1", res.CallSid)
	assert.Equal(t, StatusInitiated, res.Status)

	rec, err := f.store.FindByCarrierSid(ctx, "CA1")
	require.NoError(t, err)
	assert.Equal(t, res.RecordID, rec.ID)
	assert.Equal(t, "+15553334444", rec.DestinationNumber)
	assert.Equal(t, own.ID, *rec.PhoneNumberID)

	require.Len(t, f.carrier.created, 1)
	req := f.carrier.created[0]
	assert.Equal(t, "+15551234567", req.From, "own number is the caller-id by default")
	assert.Equal(t, "https://api.example.com/webhooks/twilio/voice/twiml", req.ControlURL)
	assert.Equal(t, "https://api.example.com/webhooks/twilio/voice/status", req.StatusURL)
	assert.Equal(t, "POST", req.StatusMethod)
	assert.Equal(t, []string{"initiated", "ringing", "answered", "completed", "failed", "busy", "no-answer"}, req.StatusEvents)
}

func TestPlaceCallUsesPlatformNumberWhenConfigured(t *testing.T) {
	f := newFixture(t, CallerIDPolicy{UsePlatformNumber: true, PlatformNumber: "+15550000000"})
	f.verify(t, "u1", "+15551234567")

	_, err := f.svc.PlaceCall(context.Background(), "u1", "+15553334444")
	require.NoError(t, err)
	assert.Equal(t, "+15550000000", f.carrier.created[0].From)
}

func TestPlaceCallCarrierFailureKeepsFailedRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, CallerIDPolicy{})
	f.verify(t, "u1", "+15551234567")
	f.carrier.createFn = func(context.Context, telephony.CreateCallRequest) (telephony.CreatedCall, error) {
		return telephony.CreatedCall{}, &apperr.CarrierError{Op: "create call", Message: "Number is unverified"}
	}

	_, err := f.svc.PlaceCall(ctx, "u1", "+15553334444")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrCarrier)
	assert.Equal(t, "could not initiate call: Number is unverified", err.Error())

	list, err := f.store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusFailed, list[0].Status)
	require.NotNil(t, list[0].ErrorMessage)
	assert.Equal(t, "Number is unverified", *list[0].ErrorMessage)
	assert.Nil(t, list[0].CarrierSid)
}

func TestPlaceCallRejectsBadDestination(t *testing.T) {
	f := newFixture(t, CallerIDPolicy{})
	f.verify(t, "u1", "+15551234567")

	_, err := f.svc.PlaceCall(context.Background(), "u1", "not a number")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, f.carrier.created)
}

func TestCancelCall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, CallerIDPolicy{})

	require.NoError(t, f.svc.CancelCall(ctx, "CA1"))
	assert.Equal(t, []string{"CA1=completed"}, f.carrier.updated)

	f.carrier.updateFn = func(context.Context, string, string) error {
		return &apperr.CarrierError{Op: "update call", Message: "Call is not in-progress"}
	}
	err := f.svc.CancelCall(ctx, "CA1")
	assert.ErrorIs(t, err, apperr.ErrCarrier)
	assert.Contains(t, err.Error(), "Call is not in-progress")
}

func TestCancelOwnedCallHidesOtherPrincipalsCalls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, CallerIDPolicy{})
	f.verify(t, "u1", "+15551234567")
	_, err := f.svc.PlaceCall(ctx, "u1", "+15553334444")
	require.NoError(t, err)

	err = f.svc.CancelOwnedCall(ctx, "u2", "CA1")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Empty(t, f.carrier.updated)

	require.NoError(t, f.svc.CancelOwnedCall(ctx, "u1", "CA1"))
	assert.Len(t, f.carrier.updated, 1)
}
