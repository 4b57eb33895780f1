package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes execution errors. Codes are part of the wire
// contract: they appear verbatim in change results and error responses.
type ErrorCode string

const (
	// CodeValidation marks a malformed batch, rejected wholesale before
	// queuing.
	CodeValidation ErrorCode = "ValidationError"

	// CodeReference marks an unresolved tempId or missing entity;
	// fails only the affected change.
	CodeReference ErrorCode = "ReferenceError"

	// CodeDuplicate marks a create that hit an existing entity under
	// the "error" duplicate strategy.
	CodeDuplicate ErrorCode = "DuplicateConflictError"

	// CodeIdempotency marks a reused idempotency key with a different
	// payload; rejected synchronously at submission.
	CodeIdempotency ErrorCode = "IdempotencyConflict"

	// CodeTimeout marks an operation that exceeded its processing
	// budget.
	CodeTimeout ErrorCode = "TimeoutError"

	// CodeInternal marks an unexpected failure from the mutation layer;
	// escalates the whole operation to terminal "error".
	CodeInternal ErrorCode = "InternalFault"
)

// ChangeError is a structured execution error. Index is the position of
// the affected change within its batch, -1 when the error concerns the
// whole operation.
type ChangeError struct {
	Code    ErrorCode
	Message string
	Index   int
}

func (e *ChangeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewChangeError creates a ChangeError for a specific change index.
func NewChangeError(code ErrorCode, index int, format string, args ...any) *ChangeError {
	return &ChangeError{Code: code, Index: index, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code, or CodeInternal for untyped errors.
func CodeOf(err error) ErrorCode {
	var ce *ChangeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}

// IsReferenceError reports whether err is an unresolved-reference error.
func IsReferenceError(err error) bool {
	var ce *ChangeError
	return errors.As(err, &ce) && ce.Code == CodeReference
}

// IsDuplicateConflict reports whether err is a duplicate-policy conflict.
func IsDuplicateConflict(err error) bool {
	var ce *ChangeError
	return errors.As(err, &ce) && ce.Code == CodeDuplicate
}

// IsIdempotencyConflict reports whether err is a key/payload mismatch.
func IsIdempotencyConflict(err error) bool {
	var ce *ChangeError
	return errors.As(err, &ce) && ce.Code == CodeIdempotency
}

// ErrQueueClosed is returned by Submit after the engine has stopped.
var ErrQueueClosed = errors.New("engine queue is closed")
