package postgres

import (
	"context"
	"errors"
	"fmt"

	"callbridge/internal/apperr"
	"callbridge/internal/calls"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CallRepo is the Postgres calls.Store.
type CallRepo struct {
	db DB
}

func NewCallRepo(db DB) *CallRepo { return &CallRepo{db: db} }

// price is read as text so the decimal is never routed through float64.
const callColumns = `id, user_id, phone_number_id, direction, destination_number, twilio_call_sid, status,
        start_time, end_time, duration, price::text, error_message, created_at, updated_at`

func scanCall(row pgx.Row) (calls.CallRecord, error) {
	var (
		rec       calls.CallRecord
		direction string
		status    string
		price     *string
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.PhoneNumberID, &direction, &rec.DestinationNumber, &rec.CarrierSid, &status,
		&rec.StartTime, &rec.EndTime, &rec.Duration, &price, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return calls.CallRecord{}, err
	}
	rec.Direction = calls.Direction(direction)
	rec.Status = calls.Status(status)
	if price != nil {
		d, err := decimal.NewFromString(*price)
		if err != nil {
			return calls.CallRecord{}, fmt.Errorf("parse price %q: %w", *price, err)
		}
		rec.Price = decimal.NewNullDecimal(d)
	}
	return rec, nil
}

func (r *CallRepo) Create(ctx context.Context, rec calls.CallRecord) (calls.CallRecord, error) {
	if rec.Status == "" {
		rec.Status = calls.StatusInitiated
	}
	if rec.Direction == "" {
		rec.Direction = calls.DirectionOutbound
	}
	out, err := scanCall(r.db.QueryRow(ctx, `
        INSERT INTO call_logs (
            id, user_id, phone_number_id, direction, destination_number,
            twilio_call_sid, status, duration, price, error_message
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
        )
        ON CONFLICT (twilio_call_sid) DO NOTHING
        RETURNING `+callColumns,
		uuid.NewString(),
		rec.UserID,
		rec.PhoneNumberID,
		string(rec.Direction),
		rec.DestinationNumber,
		rec.CarrierSid,
		string(rec.Status),
		rec.Duration,
		rec.Price,
		rec.ErrorMessage,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return calls.CallRecord{}, apperr.ErrDuplicate
	}
	if err != nil {
		return calls.CallRecord{}, fmt.Errorf("insert call log: %w", mapErr(err))
	}
	return out, nil
}

func (r *CallRepo) FindByCarrierSid(ctx context.Context, sid string) (calls.CallRecord, error) {
	rec, err := scanCall(r.db.QueryRow(ctx, `SELECT `+callColumns+` FROM call_logs WHERE twilio_call_sid = $1`, sid))
	return rec, mapErr(err)
}

func (r *CallRepo) AssignCarrierSid(ctx context.Context, id, sid string, status calls.Status) (calls.CallRecord, error) {
	rec, err := scanCall(r.db.QueryRow(ctx, `
        UPDATE call_logs
        SET twilio_call_sid = $2, status = COALESCE(NULLIF($3, ''), status), updated_at = now()
        WHERE id = $1 AND twilio_call_sid IS NULL
        RETURNING `+callColumns, id, sid, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the row is gone or it already carries a sid; both mean the
		// sid cannot be assigned here.
		return calls.CallRecord{}, apperr.ErrDuplicate
	}
	return rec, mapErr(err)
}

func (r *CallRepo) MarkFailed(ctx context.Context, id, message string) (calls.CallRecord, error) {
	rec, err := scanCall(r.db.QueryRow(ctx, `
        UPDATE call_logs SET status = $2, error_message = $3, updated_at = now()
        WHERE id = $1
        RETURNING `+callColumns, id, string(calls.StatusFailed), message))
	return rec, mapErr(err)
}

// SaveStatus sets only the columns ch carries; a NULL argument keeps the
// stored value.
func (r *CallRepo) SaveStatus(ctx context.Context, id string, ch calls.StatusChange) (calls.CallRecord, error) {
	var status *string
	if ch.Status != nil {
		s := string(*ch.Status)
		status = &s
	}
	out, err := scanCall(r.db.QueryRow(ctx, `
        UPDATE call_logs
        SET status = COALESCE($2, status),
            start_time = COALESCE($3, start_time),
            end_time = COALESCE($4, end_time),
            duration = COALESCE($5, duration),
            price = COALESCE($6, price),
            error_message = COALESCE($7, error_message),
            updated_at = now()
        WHERE id = $1
        RETURNING `+callColumns,
		id,
		status,
		ch.StartTime,
		ch.EndTime,
		ch.Duration,
		ch.Price,
		ch.ErrorMessage,
	))
	return out, mapErr(err)
}

func (r *CallRepo) ListByUser(ctx context.Context, userID string) ([]calls.CallRecord, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+callColumns+` FROM call_logs
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	defer rows.Close()

	out := make([]calls.CallRecord, 0)
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
