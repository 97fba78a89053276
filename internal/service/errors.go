package service

import "errors"

// Error kinds surfaced to callers. Wrap with fmt.Errorf("%w: detail") so the
// surface layer can branch on errors.Is while still showing a message. The
// services never retry or recover internally; retry policy belongs to the
// caller.
var (
	// ErrInvalid rejects bad input before any state is written.
	ErrInvalid = errors.New("invalid input")
	// ErrNotFound means the referenced task or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the record exists but belongs to another user.
	ErrForbidden = errors.New("forbidden")
	// ErrStorage means the store failed mid-operation. The completion path
	// commits atomically, so a caller seeing ErrStorage may safely retry.
	ErrStorage = errors.New("storage unavailable")
)
