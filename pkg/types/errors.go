package types

import "errors"

// Domain errors shared across the registry. Callers match with errors.Is;
// lower layers add context via fmt.Errorf("...: %w", err).
var (
	// ErrValidation indicates malformed or out-of-range input, detected
	// before any persistent state changes.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicate indicates an add with an id that already exists.
	ErrDuplicate = errors.New("record already exists")

	// ErrNotFound indicates a lookup or update referencing a nonexistent id.
	ErrNotFound = errors.New("record not found")

	// ErrStorage indicates an underlying persistence failure. The operation
	// rolled back; registry state is unchanged.
	ErrStorage = errors.New("storage failure")
)
