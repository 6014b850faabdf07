package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors without string
// matching.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity absent from the store (unknown token value,
//   expired-and-evicted interaction uid, unregistered client)
// - ErrExpired: token, authorization code or interaction session past TTL
// - ErrAlreadyUsed: single-use resource (auth code, interaction uid) consumed
// - ErrInvalidState: entity in the wrong state for the requested operation
// - ErrConflict: write lost against a concurrent mutation
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
