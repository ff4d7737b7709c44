// Package apperr defines the error kinds shared by the storage core and its callers.
package apperr

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrNeedsConfirmation = errors.New("needs confirmation")
)

// Kind codes returned by Kind.
const (
	KindInvalidInput      = "invalid_input"
	KindForbidden         = "forbidden"
	KindNotFound          = "not_found"
	KindConflict          = "conflict"
	KindNeedsConfirmation = "needs_confirmation"
	KindInternal          = "internal"
)

// Kind maps err onto a stable code. Errors that wrap none of the sentinels are internal.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNeedsConfirmation):
		return KindNeedsConfirmation
	default:
		return KindInternal
	}
}
