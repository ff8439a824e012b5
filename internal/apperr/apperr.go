// Package apperr holds the error types shared by the store, the scheduler,
// the playback layer and the command facade. Adapters switch on these with
// errors.As to decide what the requester sees.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError is bad input: an unparsable date, an empty title, an end
// before the start. It is always the requester's to fix.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError with a formatted reason.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown or inactive record.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// PermissionError reports an ownership mismatch on an existing record.
type PermissionError struct {
	Kind   string
	ID     int64
	UserID string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s does not own %s %d", e.UserID, e.Kind, e.ID)
}

// StorageError wraps an I/O or constraint failure in the store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it is nil or already typed.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ResolutionError is a media lookup or decoding failure.
type ResolutionError struct {
	Input string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not load media %q: %v", e.Input, e.Err)
}
func (e *ResolutionError) Unwrap() error { return e.Err }

// TransportError is a voice connection failure.
type TransportError struct {
	GuildID string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("voice %s failed for guild %s: %v", e.Op, e.GuildID, e.Err)
}
func (e *TransportError) Unwrap() error { return e.Err }

// Kind names the category of err for logs and replies. Unknown errors are
// reported as "internal".
func Kind(err error) string {
	var (
		ve *ValidationError
		ne *NotFoundError
		pe *PermissionError
		se *StorageError
		re *ResolutionError
		te *TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ne):
		return "not_found"
	case errors.As(err, &pe):
		return "permission"
	case errors.As(err, &se):
		return "storage"
	case errors.As(err, &re):
		return "resolution"
	case errors.As(err, &te):
		return "transport"
	default:
		return "internal"
	}
}
