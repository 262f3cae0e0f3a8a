package calls

import (
	"context"
	"errors"

	"callbridge/internal/apperr"
	"callbridge/pkg/logger"
)

// Outcome describes what happened to one status event.
type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeAppliedToParent Outcome = "applied_parent"
	OutcomeDropped         Outcome = "dropped"
	OutcomeFailed          Outcome = "failed"
)

// Reconciler applies carrier status events to call records.
//
// Events may be duplicated or reordered; the later arrival wins. Nothing is
// returned as an error because the carrier must always be acknowledged.
type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

func (r *Reconciler) ApplyStatusEvent(ctx context.Context, ev StatusEvent) Outcome {
	log := logger.From(ctx).With("call_sid", ev.CallSid, "parent_call_sid", ev.ParentCallSid, "call_status", ev.Status)

	rec, outcome, err := r.lookup(ctx, ev)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Warn("status event for unknown call dropped")
		return OutcomeDropped
	}
	if err != nil {
		log.Error("status event lookup", "error", err)
		return OutcomeFailed
	}

	// Only the lookup uses rec; the write is a field-wise update of the
	// stored row, not a write-back of what was read.
	if _, err := r.store.SaveStatus(ctx, rec.ID, ChangeFrom(ev)); err != nil {
		log.Error("status event save", "call_log_id", rec.ID, "error", err)
		return OutcomeFailed
	}
	log.Debug("status event applied", "call_log_id", rec.ID, "outcome", string(outcome))
	return outcome
}

func (r *Reconciler) lookup(ctx context.Context, ev StatusEvent) (CallRecord, Outcome, error) {
	if ev.CallSid != "" {
		rec, err := r.store.FindByCarrierSid(ctx, ev.CallSid)
		if err == nil {
			return rec, OutcomeApplied, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return CallRecord{}, OutcomeFailed, err
		}
	}
	if ev.ParentCallSid != "" {
		rec, err := r.store.FindByCarrierSid(ctx, ev.ParentCallSid)
		if err != nil {
			return CallRecord{}, OutcomeFailed, err
		}
		return rec, OutcomeAppliedToParent, nil
	}
	return CallRecord{}, OutcomeDropped, apperr.ErrNotFound
}
