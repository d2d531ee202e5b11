package comfy

import (
	"errors"
	"fmt"
	"time"
)

// Error represents a failure in one backend operation.
//
// Backend failures include:
//   - Submission rejected: non-success status or malformed enqueue response
//   - Poll timeout: the job never appeared in history within the deadline
//   - Fetch failed: the output artifact could not be downloaded
//   - No image produced: the job completed but its outputs carry no image
//
// Error includes structured fields for diagnostics and retry decisions.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// PromptID identifies the affected job, when one was assigned.
	PromptID string

	// Status is the HTTP status that triggered the failure, when any.
	Status int

	// Err is the underlying cause, when any.
	Err error
}

// ErrorCode categorizes backend failures.
type ErrorCode string

const (
	// ErrCodeSubmissionFailed indicates the enqueue request was rejected
	// or returned no job id.
	ErrCodeSubmissionFailed ErrorCode = "SUBMISSION_FAILED"

	// ErrCodePollTimeout indicates the job did not complete within the
	// polling deadline.
	ErrCodePollTimeout ErrorCode = "POLL_TIMEOUT"

	// ErrCodeFetchFailed indicates an output artifact download failed.
	ErrCodeFetchFailed ErrorCode = "FETCH_FAILED"

	// ErrCodeNoImageProduced indicates a completed job whose outputs
	// contain no image reference.
	ErrCodeNoImageProduced ErrorCode = "NO_IMAGE_PRODUCED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.PromptID != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (prompt=%s, status=%d)", e.Code, e.Message, e.PromptID, e.Status)
	case e.PromptID != "":
		return fmt.Sprintf("%s: %s (prompt=%s)", e.Code, e.Message, e.PromptID)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status=%d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// IsSubmissionError returns true if the error is a rejected submission.
// Uses errors.As to handle wrapped errors.
func IsSubmissionError(err error) bool {
	return hasCode(err, ErrCodeSubmissionFailed)
}

// IsTimeoutError returns true if the error is a polling timeout.
// Uses errors.As to handle wrapped errors.
func IsTimeoutError(err error) bool {
	return hasCode(err, ErrCodePollTimeout)
}

// IsFetchError returns true if the error is a failed artifact download.
// Uses errors.As to handle wrapped errors.
func IsFetchError(err error) bool {
	return hasCode(err, ErrCodeFetchFailed)
}

// IsNoImageError returns true if the error marks a completed job that
// produced no image. Uses errors.As to handle wrapped errors.
func IsNoImageError(err error) bool {
	return hasCode(err, ErrCodeNoImageProduced)
}

func hasCode(err error, code ErrorCode) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// NewSubmissionError creates an Error for a rejected enqueue request.
func NewSubmissionError(message string, status int, err error) *Error {
	return &Error{
		Code:    ErrCodeSubmissionFailed,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// NewTimeoutError creates an Error for a job that never completed.
func NewTimeoutError(promptID string, timeout time.Duration) *Error {
	return &Error{
		Code:     ErrCodePollTimeout,
		Message:  fmt.Sprintf("generation timed out after %s", timeout),
		PromptID: promptID,
	}
}

// NewFetchError creates an Error for a failed artifact download.
func NewFetchError(filename string, status int, err error) *Error {
	return &Error{
		Code:    ErrCodeFetchFailed,
		Message: fmt.Sprintf("download %s", filename),
		Status:  status,
		Err:     err,
	}
}

// NewNoImageError creates an Error for a completed job with no image.
func NewNoImageError(promptID string) *Error {
	return &Error{
		Code:     ErrCodeNoImageProduced,
		Message:  "completed job produced no image output",
		PromptID: promptID,
	}
}
