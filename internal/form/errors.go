package form

import (
	"errors"
	"fmt"
)

// MalformedDocumentError reports input bytes that could not be parsed as a
// PDF document. Callers treat this as "no fields extracted", not as a fatal
// failure of the surrounding operation.
type MalformedDocumentError struct {
	Err error
}

// Error implements the error interface.
func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document: %v", e.Err)
}

// Unwrap returns the underlying parse error.
func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// SerializationError reports that re-encoding the filled document failed.
// Callers must fall back to the original, unfilled bytes rather than
// surfacing the raw error to end users.
type SerializationError struct {
	Err error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed: %v", e.Err)
}

// Unwrap returns the underlying encoding error.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsMalformedDocument reports whether err wraps a MalformedDocumentError.
func IsMalformedDocument(err error) bool {
	var target *MalformedDocumentError
	return errors.As(err, &target)
}

// IsSerializationFailure reports whether err wraps a SerializationError.
func IsSerializationFailure(err error) bool {
	var target *SerializationError
	return errors.As(err, &target)
}
