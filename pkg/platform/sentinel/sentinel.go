package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors:
//   - ErrNotFound: row or blob does not exist in the current scope
//   - ErrConflict: unique constraint or concurrent write lost
//   - ErrExpired: artifact TTL has passed
//   - ErrAlreadyUsed: bounded counter exhausted (export downloads)
//   - ErrInvalidState: entity in wrong state for the requested transition
//   - ErrUnavailable: backing service temporarily unavailable
//
// Validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
