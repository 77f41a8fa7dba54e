package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/KarimBkr/MyTsango/internal/payment"
	"github.com/KarimBkr/MyTsango/pkg/platform/sentinel"
)

// PostgresStore persists payment subjects in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE payments (
//	    id            UUID PRIMARY KEY,
//	    circle_id     TEXT NOT NULL,
//	    user_id       TEXT NOT NULL,
//	    intent_id     TEXT NOT NULL UNIQUE,
//	    amount_cents  BIGINT NOT NULL,
//	    status        TEXT NOT NULL,
//	    last_event_id TEXT NOT NULL DEFAULT '',
//	    receipt_url   TEXT NOT NULL DEFAULT '',
//	    confirmed_at  TIMESTAMPTZ,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, subject *payment.Subject) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (
			id, circle_id, user_id, intent_id, amount_cents,
			status, last_event_id, receipt_url, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		subject.ID, subject.CircleID, subject.UserID, subject.IntentID,
		subject.AmountCents, string(subject.Status), subject.LastEventID,
		subject.ReceiptURL, subject.CreatedAt, subject.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert payment subject: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const paymentColumns = `
	id, circle_id, user_id, intent_id, amount_cents,
	status, last_event_id, receipt_url, confirmed_at, created_at, updated_at
`

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*payment.Subject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (s *PostgresStore) GetByIntentID(ctx context.Context, intentID string) (*payment.Subject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE intent_id = $1`, intentID)
	return scanPayment(row)
}

// ApplyOutcome serializes concurrent webhook deliveries for the same payment
// through a conditional UPDATE: exactly one writer wins the compare-and-set.
// A status-preserving replay ($1 = $6) records only idempotency bookkeeping
// and keeps the settled confirmation time and receipt.
func (s *PostgresStore) ApplyOutcome(ctx context.Context, p payment.ApplyOutcomeParams) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status        = $1,
		    last_event_id = CASE WHEN $2 = '' THEN last_event_id ELSE $2 END,
		    confirmed_at  = CASE WHEN $1 <> $6 AND $1 = 'SUCCEEDED' THEN $3 ELSE confirmed_at END,
		    receipt_url   = CASE WHEN $1 <> $6 AND $4 <> '' THEN $4 ELSE receipt_url END,
		    updated_at    = $3
		WHERE intent_id = $5
		  AND status = $6
		  AND ($2 = '' OR last_event_id <> $2)
	`,
		string(p.NewStatus), p.EventID, p.At, p.ReceiptURL, p.IntentID, string(p.ExpectStatus),
	)
	if err != nil {
		return false, fmt.Errorf("apply payment outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply payment outcome rows affected: %w", err)
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*payment.Subject, error) {
	var subject payment.Subject
	var status string
	var confirmedAt sql.NullTime

	err := row.Scan(
		&subject.ID, &subject.CircleID, &subject.UserID, &subject.IntentID,
		&subject.AmountCents, &status, &subject.LastEventID, &subject.ReceiptURL,
		&confirmedAt, &subject.CreatedAt, &subject.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment subject: %w", err)
	}

	subject.Status = payment.Status(status)
	if confirmedAt.Valid {
		subject.ConfirmedAt = &confirmedAt.Time
	}
	return &subject, nil
}
