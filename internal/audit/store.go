package audit

import "context"

// Store persists audit entries. Append-only; entries are never updated or
// deleted.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
}
