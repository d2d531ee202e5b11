package imaging

import (
	"errors"
	"fmt"
)

// Error represents a post-processing failure for one image.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Path is the intended output location.
	Path string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, when any.
	Err error
}

// ErrorCode categorizes post-processing failures.
type ErrorCode string

const (
	// ErrCodeDecodeFailed indicates the raw bytes are not a decodable
	// image.
	ErrCodeDecodeFailed ErrorCode = "DECODE_FAILED"

	// ErrCodeWriteFailed indicates the normalized image could not be
	// persisted.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// IsDecodeError returns true if the error marks undecodable image bytes.
// Uses errors.As to handle wrapped errors.
func IsDecodeError(err error) bool {
	return hasCode(err, ErrCodeDecodeFailed)
}

// IsWriteError returns true if the error marks a failed write.
// Uses errors.As to handle wrapped errors.
func IsWriteError(err error) bool {
	return hasCode(err, ErrCodeWriteFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}
