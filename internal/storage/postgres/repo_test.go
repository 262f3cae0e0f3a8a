package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"callbridge/internal/apperr"
	"callbridge/internal/calls"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
)

var (
	phoneCols = []string{"id", "user_id", "number", "verified_at", "created_at", "updated_at"}
	callCols  = []string{
		"id", "user_id", "phone_number_id", "direction", "destination_number", "twilio_call_sid", "status",
		"start_time", "end_time", "duration", "price", "error_message", "created_at", "updated_at",
	}
	ts = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
)

func sp(s string) *string { return &s }

func callRow(rows *pgxmock.Rows, id, sid, status string, price *string) *pgxmock.Rows {
	var sidp *string
	if sid != "" {
		sidp = sp(sid)
	}
	return rows.AddRow(
		id, "u1", sp("p1"), "outbound", "+15553334444", sidp, status,
		(*time.Time)(nil), (*time.Time)(nil), 0, price, (*string)(nil), ts, ts,
	)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestPhoneRepo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupMock func(pgxmock.PgxPoolIface)
		run       func(*PhoneRepo) error
		wantErr   error
	}{
		{
			name: "upsert resets verification",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO phone_numbers`).
					WithArgs(pgxmock.AnyArg(), "u1", "+15551234567").
					WillReturnRows(pgxmock.NewRows(phoneCols).AddRow("p1", "u1", "+15551234567", (*time.Time)(nil), ts, ts))
			},
			run: func(r *PhoneRepo) error {
				p, err := r.Upsert(context.Background(), "u1", "+15551234567")
				if err != nil {
					return err
				}
				if p.ID != "p1" || p.IsVerified() {
					return errors.New("unexpected phone number")
				}
				return nil
			},
		},
		{
			name: "get by user not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .* FROM phone_numbers WHERE user_id = \$1`).
					WithArgs("u404").
					WillReturnRows(pgxmock.NewRows(phoneCols))
			},
			run: func(r *PhoneRepo) error {
				_, err := r.GetByUser(context.Background(), "u404")
				return err
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name: "find verified by number",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				verified := ts
				mock.ExpectQuery(`WHERE number = \$1 AND verified_at IS NOT NULL`).
					WithArgs("+15551234567").
					WillReturnRows(pgxmock.NewRows(phoneCols).AddRow("p1", "u1", "+15551234567", &verified, ts, ts))
			},
			run: func(r *PhoneRepo) error {
				p, err := r.FindVerifiedByNumber(context.Background(), "+15551234567")
				if err != nil {
					return err
				}
				if !p.IsVerified() {
					return errors.New("expected verified")
				}
				return nil
			},
		},
		{
			name: "delete reports missing row",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM phone_numbers WHERE user_id = \$1`).
					WithArgs("u1").
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
			},
			run: func(r *PhoneRepo) error {
				ok, err := r.DeleteByUser(context.Background(), "u1")
				if err != nil {
					return err
				}
				if ok {
					return errors.New("expected no row deleted")
				}
				return nil
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mock := newMock(t)
			tc.setupMock(mock)

			err := tc.run(NewPhoneRepo(mock))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestCallRepo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupMock func(pgxmock.PgxPoolIface)
		run       func(*CallRepo) error
		wantErr   error
	}{
		{
			name: "create initiated record",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO call_logs`).
					WithArgs(
						pgxmock.AnyArg(), "u1", pgxmock.AnyArg(), "outbound", "+15553334444",
						pgxmock.AnyArg(), "initiated", 0, pgxmock.AnyArg(), pgxmock.AnyArg(),
					).
					WillReturnRows(callRow(pgxmock.NewRows(callCols), "c1", "", "initiated", nil))
			},
			run: func(r *CallRepo) error {
				rec, err := r.Create(context.Background(), calls.CallRecord{UserID: "u1", PhoneNumberID: sp("p1"), DestinationNumber: "+15553334444"})
				if err != nil {
					return err
				}
				if rec.ID != "c1" || rec.Status != calls.StatusInitiated || rec.HasCarrierSid() {
					return errors.New("unexpected record")
				}
				return nil
			},
		},
		{
			name: "create with recorded sid is duplicate",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`(?s)INSERT INTO call_logs .* ON CONFLICT \(twilio_call_sid\) DO NOTHING`).
					WithArgs(
						pgxmock.AnyArg(), "u1", pgxmock.AnyArg(), "inbound", "+15551234567",
						pgxmock.AnyArg(), "initiated", 0, pgxmock.AnyArg(), pgxmock.AnyArg(),
					).
					WillReturnRows(pgxmock.NewRows(callCols))
			},
			run: func(r *CallRepo) error {
				_, err := r.Create(context.Background(), calls.CallRecord{
					UserID: "u1", Direction: calls.DirectionInbound, DestinationNumber: "+15551234567", CarrierSid: sp("CA1"),
				})
				return err
			},
			wantErr: apperr.ErrDuplicate,
		},
		{
			name: "assign sid only while null",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`(?s)UPDATE call_logs\s+SET twilio_call_sid = \$2 .* WHERE id = \$1 AND twilio_call_sid IS NULL`).
					WithArgs("c1", "CA2", "queued").
					WillReturnRows(pgxmock.NewRows(callCols))
			},
			run: func(r *CallRepo) error {
				_, err := r.AssignCarrierSid(context.Background(), "c1", "CA2", calls.StatusQueued)
				return err
			},
			wantErr: apperr.ErrDuplicate,
		},
		{
			name: "find by sid parses price",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM call_logs WHERE twilio_call_sid = \$1`).
					WithArgs("CA1").
					WillReturnRows(callRow(pgxmock.NewRows(callCols), "c1", "CA1", "completed", sp("-0.01750")))
			},
			run: func(r *CallRepo) error {
				rec, err := r.FindByCarrierSid(context.Background(), "CA1")
				if err != nil {
					return err
				}
				if !rec.Price.Valid || !rec.Price.Decimal.Equal(decimal.RequireFromString("-0.0175")) {
					return errors.New("unexpected price")
				}
				return nil
			},
		},
		{
			name: "find by unknown sid",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM call_logs WHERE twilio_call_sid = \$1`).
					WithArgs("CA404").
					WillReturnRows(pgxmock.NewRows(callCols))
			},
			run: func(r *CallRepo) error {
				_, err := r.FindByCarrierSid(context.Background(), "CA404")
				return err
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name: "save status keeps absent fields",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`(?s)UPDATE call_logs\s+SET status = COALESCE\(\$2, status\),.*duration = COALESCE\(\$5, duration\),.*price = COALESCE\(\$6, price\)`).
					WithArgs("c1", sp("completed"), (*time.Time)(nil), (*time.Time)(nil), (*int)(nil), pgxmock.AnyArg(), (*string)(nil)).
					WillReturnRows(callRow(pgxmock.NewRows(callCols), "c1", "CA1", "completed", sp("0.02000")))
			},
			run: func(r *CallRepo) error {
				st := calls.StatusCompleted
				rec, err := r.SaveStatus(context.Background(), "c1", calls.StatusChange{Status: &st})
				if err != nil {
					return err
				}
				if !rec.Price.Valid || *rec.CarrierSid != "CA1" {
					return errors.New("stored price and sid must survive a status-only change")
				}
				return nil
			},
		},
		{
			name: "save status on missing row",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE call_logs`).
					WithArgs("c404", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows(callCols))
			},
			run: func(r *CallRepo) error {
				d := 42
				_, err := r.SaveStatus(context.Background(), "c404", calls.StatusChange{Duration: &d})
				return err
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name: "mark failed",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE call_logs SET status = \$2, error_message = \$3`).
					WithArgs("c1", "failed", "Number is unverified").
					WillReturnRows(callRow(pgxmock.NewRows(callCols), "c1", "", "failed", nil))
			},
			run: func(r *CallRepo) error {
				rec, err := r.MarkFailed(context.Background(), "c1", "Number is unverified")
				if err != nil {
					return err
				}
				if rec.Status != calls.StatusFailed {
					return errors.New("expected failed")
				}
				return nil
			},
		},
		{
			name: "list by user newest first",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(callCols)
				callRow(rows, "c2", "CA2", "ringing", nil)
				callRow(rows, "c1", "CA1", "completed", sp("0.01"))
				mock.ExpectQuery(`WHERE user_id = \$1\s+ORDER BY created_at DESC`).
					WithArgs("u1").
					WillReturnRows(rows)
			},
			run: func(r *CallRepo) error {
				list, err := r.ListByUser(context.Background(), "u1")
				if err != nil {
					return err
				}
				if len(list) != 2 || list[0].ID != "c2" {
					return errors.New("unexpected list")
				}
				return nil
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mock := newMock(t)
			tc.setupMock(mock)

			err := tc.run(NewCallRepo(mock))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestMigrate(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS phone_numbers`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS call_logs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCommit()

	if err := Migrate(context.Background(), mock, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
