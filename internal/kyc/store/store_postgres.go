package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/KarimBkr/MyTsango/internal/kyc"
	"github.com/KarimBkr/MyTsango/pkg/platform/sentinel"
)

// PostgresStore persists verification subjects in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE kyc_verifications (
//	    id            UUID PRIMARY KEY,
//	    user_id       TEXT NOT NULL UNIQUE,
//	    applicant_id  TEXT NOT NULL UNIQUE,
//	    status        TEXT NOT NULL,
//	    review_status TEXT NOT NULL DEFAULT '',
//	    review_result JSONB,
//	    reject_reason TEXT NOT NULL DEFAULT '',
//	    last_event_id TEXT NOT NULL DEFAULT '',
//	    approved_at   TIMESTAMPTZ,
//	    rejected_at   TIMESTAMPTZ,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, subject *kyc.Subject) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kyc_verifications (
			id, user_id, applicant_id, status, review_status,
			review_result, reject_reason, last_event_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		subject.ID, subject.UserID, subject.ApplicantID, string(subject.Status),
		subject.ReviewStatus, []byte(subject.ReviewResult), subject.RejectReason,
		subject.LastEventID, subject.CreatedAt, subject.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert verification subject: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const subjectColumns = `
	id, user_id, applicant_id, status, review_status,
	COALESCE(review_result, 'null'), reject_reason, last_event_id,
	approved_at, rejected_at, created_at, updated_at
`

func (s *PostgresStore) GetByUserID(ctx context.Context, userID string) (*kyc.Subject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subjectColumns+` FROM kyc_verifications WHERE user_id = $1`, userID)
	return scanSubject(row)
}

func (s *PostgresStore) GetByApplicantID(ctx context.Context, applicantID string) (*kyc.Subject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subjectColumns+` FROM kyc_verifications WHERE applicant_id = $1`, applicantID)
	return scanSubject(row)
}

// ApplyReview is the serialization point for concurrent webhook deliveries
// against the same subject: the conditional UPDATE lets exactly one writer
// win; everyone else sees zero rows affected. A status-preserving replay
// ($1 = $8) records only idempotency bookkeeping and leaves the settled
// review fields alone.
func (s *PostgresStore) ApplyReview(ctx context.Context, p kyc.ApplyReviewParams) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE kyc_verifications
		SET status        = $1,
		    review_status = CASE WHEN $1 = $8 THEN review_status ELSE $2 END,
		    review_result = CASE WHEN $1 = $8 THEN review_result ELSE $3 END,
		    reject_reason = CASE WHEN $1 = $8 THEN reject_reason ELSE $4 END,
		    last_event_id = CASE WHEN $5 = '' THEN last_event_id ELSE $5 END,
		    approved_at   = CASE WHEN $1 <> $8 AND $1 = 'APPROVED' THEN $6 ELSE approved_at END,
		    rejected_at   = CASE WHEN $1 <> $8 AND $1 = 'REJECTED' THEN $6 ELSE rejected_at END,
		    updated_at    = $6
		WHERE applicant_id = $7
		  AND status = $8
		  AND ($5 = '' OR last_event_id <> $5)
	`,
		string(p.NewStatus), p.ReviewStatus, []byte(p.ReviewResult), p.RejectReason,
		p.EventID, p.At, p.ApplicantID, string(p.ExpectStatus),
	)
	if err != nil {
		return false, fmt.Errorf("apply review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply review rows affected: %w", err)
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (*kyc.Subject, error) {
	var subject kyc.Subject
	var status string
	var reviewResult []byte
	var approvedAt, rejectedAt sql.NullTime

	err := row.Scan(
		&subject.ID, &subject.UserID, &subject.ApplicantID, &status,
		&subject.ReviewStatus, &reviewResult, &subject.RejectReason,
		&subject.LastEventID, &approvedAt, &rejectedAt,
		&subject.CreatedAt, &subject.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan verification subject: %w", err)
	}

	subject.Status = kyc.Status(status)
	subject.ReviewResult = reviewResult
	if approvedAt.Valid {
		subject.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		subject.RejectedAt = &rejectedAt.Time
	}
	return &subject, nil
}
