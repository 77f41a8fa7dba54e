package recon

import (
	"context"
	"time"
)

// SubjectStore is the engine's persistence port, implemented by the subjects
// adapter over the kyc and payment stores.
type SubjectStore interface {
	// Find returns the subject for (kind, key) or sentinel.ErrNotFound.
	Find(ctx context.Context, kind Kind, key string) (*Subject, error)

	// Apply persists the update atomically. It returns false without error
	// when the compare-and-set precondition no longer holds, i.e. a
	// concurrent delivery won the race.
	Apply(ctx context.Context, u Update) (bool, error)
}

// DedupeCache is an optional fast-path duplicate filter in front of the
// authoritative compare-and-set. Implementations may lose entries; the engine
// never relies on it for correctness.
type DedupeCache interface {
	Seen(ctx context.Context, kind Kind, eventID string) (bool, error)
	Mark(ctx context.Context, kind Kind, eventID string) error
}

// Recorder receives the engine's per-kind operational metrics. The kyc and
// payment metrics packages implement it over their prometheus families.
type Recorder interface {
	IncRequest(endpoint string)
	IncSuccess(status string)
	IncFailure(reason string)
	IncUnhandled(eventType string)
	ObserveDuration(operation string, d time.Duration)
}
