package store

import (
	"fmt"

	"github.com/tartampluch/birthday-tracker/internal/config"
)

// ValidationError rejects malformed input (bad date, empty name, negative
// reminder offsets). The store is left unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotFoundError reports an unknown record id on edit or remove.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", config.ErrRecordNotFound, e.ID)
}

// PersistenceError wraps a failed save or load. Mutations still apply
// in memory; durability is best effort.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", config.ErrStorageSave, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
