package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and provider clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: subject or record does not exist in the store
// - ErrConflict: a concurrent writer already applied a conflicting change
// - ErrInvalidState: subject in wrong state for requested operation
// - ErrUnavailable: external provider or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/apperrors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
