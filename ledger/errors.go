/*
errors.go - Centralized error types for the ledger

ERROR CATEGORIES:
  1. Validation errors - bad form input, resolved locally, never reach
     the store
  2. Not-found errors - an update/delete target has no Active row
  3. Store errors - wrapped I/O failures from the backing row store

PROPAGATION POLICY:
  Write paths propagate errors unchanged to the caller. Read paths log
  with operation context and rethrow. Nothing is silently swallowed.

USAGE:
  if ledger.IsNotFound(err) { ... }
  var verr *ledger.ValidationError
  if errors.As(err, &verr) { render verr.Fields }
*/
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all form-input failures.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound is returned when no Active row matches a target id.
	ErrNotFound = errors.New("active transaction not found")

	// ErrStore is the root of all backing-store I/O failures.
	ErrStore = errors.New("record store failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports per-field input problems. It is produced
// before any store call is made.
type ValidationError struct {
	Fields map[string]string // field name -> violated rule or message
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, f := range names {
		parts[i] = f + ": " + e.Fields[f]
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing target of an update or delete.
type NotFoundError struct {
	Table string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no active row for id %q in %q", e.ID, e.Table)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps a backing-store failure with operation context.
type StoreError struct {
	Op    string // "resolve", "read", "append", "write-cell", "clear"
	Table string // empty for container-level operations
	Err   error
}

func (e *StoreError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("record store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("record store %s %q: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStore) match any StoreError while Unwrap
// keeps the underlying cause reachable.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsStore(err error) bool      { return errors.Is(err, ErrStore) }
