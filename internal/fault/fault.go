// Package fault defines the typed failure taxonomy shared by all borecore
// components. Callers classify failures with errors.Is against the sentinel
// kinds; messages and causes travel in the eris chain.
package fault

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Sentinel kinds. Every error leaving a component wraps exactly one of these.
var (
	// ErrNotFound means a referenced entity id resolves to no document.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means the current workflow or version status does
	// not permit the requested action.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConflict means a uniqueness invariant would be violated, e.g. a
	// duplicate active assignment.
	ErrConflict = errors.New("conflict")

	// ErrValidation means the input payload is malformed or incomplete.
	ErrValidation = errors.New("validation error")

	// ErrStoreUnavailable means a list/get/put failed at the storage boundary.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// wrapped ties a sentinel kind to a descriptive cause chain.
type wrapped struct {
	kind error
	err  error
}

func (w *wrapped) Error() string { return w.err.Error() }

func (w *wrapped) Unwrap() []error { return []error{w.kind, w.err} }

// NotFound returns an ErrNotFound-kinded error.
func NotFound(format string, args ...any) error {
	return &wrapped{kind: ErrNotFound, err: fmt.Errorf(format, args...)}
}

// InvalidTransition returns an ErrInvalidTransition-kinded error.
func InvalidTransition(format string, args ...any) error {
	return &wrapped{kind: ErrInvalidTransition, err: fmt.Errorf(format, args...)}
}

// Conflict returns an ErrConflict-kinded error.
func Conflict(format string, args ...any) error {
	return &wrapped{kind: ErrConflict, err: fmt.Errorf(format, args...)}
}

// Validation returns an ErrValidation-kinded error.
func Validation(format string, args ...any) error {
	return &wrapped{kind: ErrValidation, err: fmt.Errorf(format, args...)}
}

// StoreUnavailable wraps a storage-boundary failure, preserving the cause.
func StoreUnavailable(err error, msg string) error {
	return &wrapped{kind: ErrStoreUnavailable, err: eris.Wrap(err, msg)}
}

// IsNotFound reports whether err is ErrNotFound-kinded.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidTransition reports whether err is ErrInvalidTransition-kinded.
func IsInvalidTransition(err error) bool { return errors.Is(err, ErrInvalidTransition) }

// IsConflict reports whether err is ErrConflict-kinded.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsValidation reports whether err is ErrValidation-kinded.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsStoreUnavailable reports whether err is ErrStoreUnavailable-kinded.
func IsStoreUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }
