package es

import "errors"

// Error taxonomy. All of these are expected, typed outcomes surfaced to the
// caller - except ErrUnhandledDomainEvent, which indicates a data-format or
// version-skew bug and must not be caught and retried.
var (
	// ErrValidationFailed marks malformed input to a state-changing operation.
	ErrValidationFailed = errors.New("validation failed")
	// ErrConflict marks a version mismatch on append or a business-rule
	// no-op/duplicate transition attempt. Callers retry with fresh state.
	ErrConflict = errors.New("conflict")
	// ErrEntryNotFound marks a lookup by id or key that yields nothing.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrEntryAlreadyExists marks a uniqueness-index reservation collision.
	ErrEntryAlreadyExists = errors.New("entry already exists")
	// ErrUnhandledDomainEvent marks an event kind unknown to the projector.
	ErrUnhandledDomainEvent = errors.New("unhandled domain event")

	// ErrStoreNoEvents is returned when an append is attempted with no events.
	ErrStoreNoEvents = errors.New("no events to store")
)
