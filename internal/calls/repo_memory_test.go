package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"callbridge/internal/apperr"
)

func TestMemoryStoreAssignCarrierSidOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec, err := s.Create(ctx, CallRecord{UserID: "u1", DestinationNumber: "+15553334444"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Status != StatusInitiated || rec.Direction != DirectionOutbound {
		t.Fatalf("unexpected defaults: %+v", rec)
	}

	if _, err := s.AssignCarrierSid(ctx, rec.ID, "CA1", "queued"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := s.AssignCarrierSid(ctx, rec.ID, "CA2", "queued"); !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected duplicate on reassign, got %v", err)
	}

	got, err := s.FindByCarrierSid(ctx, "CA1")
	if err != nil || got.ID != rec.ID {
		t.Fatalf("expected CA1 to resolve, got %v", err)
	}
	if _, err := s.FindByCarrierSid(ctx, "CA2"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for CA2")
	}
}

func TestMemoryStoreCreateRejectsDuplicateSid(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sid := "CA9"
	if _, err := s.Create(ctx, CallRecord{UserID: "u1", CarrierSid: &sid}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, CallRecord{UserID: "u2", CarrierSid: &sid}); !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one row")
	}
}

func TestMemoryStoreSaveStatusWritesPresentFieldsOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sid := "CA1"
	rec, _ := s.Create(ctx, CallRecord{UserID: "u1", CarrierSid: &sid})

	d := 42
	if _, err := s.SaveStatus(ctx, rec.ID, StatusChange{Duration: &d}); err != nil {
		t.Fatalf("save: %v", err)
	}
	st := StatusCompleted
	saved, err := s.SaveStatus(ctx, rec.ID, StatusChange{Status: &st})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if *saved.CarrierSid != "CA1" || saved.Status != StatusCompleted || saved.Duration != 42 {
		t.Fatalf("unexpected saved record: %+v", saved)
	}

	if _, err := s.SaveStatus(ctx, "missing", StatusChange{Status: &st}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.clock = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	first, _ := s.Create(ctx, CallRecord{UserID: "u1", DestinationNumber: "1"})
	_, _ = s.Create(ctx, CallRecord{UserID: "u2", DestinationNumber: "x"})
	second, _ := s.Create(ctx, CallRecord{UserID: "u1", DestinationNumber: "2"})

	list, err := s.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestMemoryStoreDetachPhone(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	pid := "p1"
	rec, _ := s.Create(ctx, CallRecord{UserID: "u1", PhoneNumberID: &pid})

	s.DetachPhone("p1")

	list, _ := s.ListByUser(ctx, "u1")
	if len(list) != 1 || list[0].ID != rec.ID || list[0].PhoneNumberID != nil {
		t.Fatalf("expected history kept with null phone ref: %+v", list)
	}
}

func TestInRange(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []CallRecord{
		{ID: "a", CreatedAt: base},
		{ID: "b", CreatedAt: base.Add(time.Hour)},
		{ID: "c", CreatedAt: base.Add(2 * time.Hour)},
	}
	got := InRange(recs, base.Add(time.Hour), base.Add(2*time.Hour))
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected %+v", got)
	}
	if len(InRange(recs, time.Time{}, time.Time{})) != 3 {
		t.Fatalf("open range must keep all")
	}
}
