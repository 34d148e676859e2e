package assignment

import "errors"

var (
	// ErrConflict reports a violated exclusivity rule: a patient can have
	// at most one active assignment at any instant.
	ErrConflict = errors.New("patient already has an active nurse assignment")

	// ErrNotFound reports an absent or already-ended assignment.
	ErrNotFound = errors.New("no active assignment found")

	// ErrValidation reports malformed input or a referenced user with the
	// wrong role.
	ErrValidation = errors.New("invalid assignment request")

	// ErrStorage wraps backing-store failures. The registry never retries;
	// retry policy belongs to the storage layer.
	ErrStorage = errors.New("assignment storage failure")
)
