package postgres

import (
	"context"
	"fmt"
	"time"

	"callbridge/internal/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PhoneRepo is the Postgres phone.Store.
type PhoneRepo struct {
	db DB
}

func NewPhoneRepo(db DB) *PhoneRepo { return &PhoneRepo{db: db} }

const phoneColumns = `id, user_id, number, verified_at, created_at, updated_at`

func scanPhone(row pgx.Row) (phone.PhoneNumber, error) {
	var p phone.PhoneNumber
	if err := row.Scan(&p.ID, &p.UserID, &p.Number, &p.VerifiedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return phone.PhoneNumber{}, mapErr(err)
	}
	return p, nil
}

func (r *PhoneRepo) Upsert(ctx context.Context, userID, number string) (phone.PhoneNumber, error) {
	p, err := scanPhone(r.db.QueryRow(ctx, `
        INSERT INTO phone_numbers (id, user_id, number, verified_at)
        VALUES ($1, $2, $3, NULL)
        ON CONFLICT (user_id) DO UPDATE
        SET number = EXCLUDED.number, verified_at = NULL, updated_at = now()
        RETURNING `+phoneColumns,
		uuid.NewString(), userID, number))
	if err != nil {
		return phone.PhoneNumber{}, fmt.Errorf("upsert phone number: %w", err)
	}
	return p, nil
}

func (r *PhoneRepo) GetByUser(ctx context.Context, userID string) (phone.PhoneNumber, error) {
	return scanPhone(r.db.QueryRow(ctx, `SELECT `+phoneColumns+` FROM phone_numbers WHERE user_id = $1`, userID))
}

func (r *PhoneRepo) FindVerifiedByNumber(ctx context.Context, number string) (phone.PhoneNumber, error) {
	return scanPhone(r.db.QueryRow(ctx, `
        SELECT `+phoneColumns+` FROM phone_numbers
        WHERE number = $1 AND verified_at IS NOT NULL
        ORDER BY verified_at DESC
        LIMIT 1`, number))
}

func (r *PhoneRepo) MarkVerified(ctx context.Context, id string, at time.Time) (phone.PhoneNumber, error) {
	return scanPhone(r.db.QueryRow(ctx, `
        UPDATE phone_numbers SET verified_at = $2, updated_at = now()
        WHERE id = $1
        RETURNING `+phoneColumns, id, at.UTC()))
}

func (r *PhoneRepo) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM phone_numbers WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete phone number: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
