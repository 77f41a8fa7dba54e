package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/KarimBkr/MyTsango/internal/audit"
)

// Store persists audit entries in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE audit_log (
//	    id         UUID PRIMARY KEY,
//	    user_id    TEXT,
//	    action     TEXT NOT NULL,
//	    details    JSONB,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	var userID sql.NullString
	if entry.UserID != "" {
		userID = sql.NullString{String: entry.UserID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, userID, string(entry.Action), []byte(entry.Details), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(user_id, ''), action, COALESCE(details, 'null'), created_at
		FROM audit_log
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var action string
		if err := rows.Scan(&e.ID, &e.UserID, &action, (*[]byte)(&e.Details), &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = audit.Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
