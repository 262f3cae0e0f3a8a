package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"callbridge/internal/apperr"
	"callbridge/internal/calls"

	"github.com/shopspring/decimal"
)

type fakeHistory map[string][]calls.CallRecord

func (f fakeHistory) ListByUser(_ context.Context, userID string) ([]calls.CallRecord, error) {
	return f[userID], nil
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestReporting_UserIsolation(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	repo := NewStoreRepo(fakeHistory{
		"u1": {{ID: "c1", UserID: "u1", Status: calls.StatusCompleted, Duration: 30, CreatedAt: now}},
		"u2": {{ID: "c2", UserID: "u2", Status: calls.StatusCompleted, Duration: 50, CreatedAt: now}},
	})
	svc := NewService(repo)

	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{UserID: "u1", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 1 || out.TotalDurationSeconds != 30 {
		t.Fatalf("expected only u1 calls, got %+v", out)
	}
}

func TestReporting_SummaryAggregates(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	repo := NewStoreRepo(fakeHistory{"u": {
		{ID: "c1", Status: calls.StatusCompleted, Duration: 60, Price: price("-0.0170"), CreatedAt: now},
		{ID: "c2", Status: calls.StatusCompleted, Duration: 0, CreatedAt: now},
		{ID: "c3", Status: calls.StatusNoAnswer, Direction: calls.DirectionInbound, CreatedAt: now},
		{ID: "c4", Status: calls.StatusFailed, Price: price("-0.0030"), CreatedAt: now},
		{ID: "c5", Status: calls.Status("answered"), CreatedAt: now},
		{ID: "old", Status: calls.StatusCompleted, Duration: 999, CreatedAt: now.Add(-48 * time.Hour)},
	}})
	svc := NewService(repo)

	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{UserID: "u", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 5 {
		t.Fatalf("expected 5 calls in range, got %d", out.TotalCalls)
	}
	if out.CompletedCalls != 2 || out.NoAnswerCalls != 1 || out.FailedCalls != 1 {
		t.Fatalf("unexpected status counts: %+v", out)
	}
	if out.InboundCalls != 1 || out.OutboundCalls != 4 {
		t.Fatalf("unexpected direction counts: %+v", out)
	}
	if out.AverageDurationSeconds != 12 {
		t.Fatalf("expected average 12, got %d", out.AverageDurationSeconds)
	}
	if !out.TotalPrice.Equal(decimal.RequireFromString("-0.02")) {
		t.Fatalf("expected total price -0.02, got %s", out.TotalPrice)
	}
	if out.ConnectionRate != 0.2 {
		t.Fatalf("expected connection rate 0.2, got %v", out.ConnectionRate)
	}
}

func TestReporting_OpenRange(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	svc := NewService(NewStoreRepo(fakeHistory{"u": {
		{ID: "c1", CreatedAt: now},
		{ID: "c2", CreatedAt: now.Add(-365 * 24 * time.Hour)},
	}}))
	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{UserID: "u"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 2 {
		t.Fatalf("expected all calls, got %d", out.TotalCalls)
	}
}

func TestReporting_InvalidRange(t *testing.T) {
	now := time.Now()
	svc := NewService(NewStoreRepo(fakeHistory{}))
	_, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{UserID: "u", Range: TimeRange{From: now, To: now.Add(-time.Hour)}})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
