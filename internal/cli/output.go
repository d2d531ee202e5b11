package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/atelier/internal/catalog"
	"github.com/roach88/atelier/internal/comfy"
	"github.com/roach88/atelier/internal/imaging"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run failure (cards failed, interrupted run, invalid catalog)
	ExitCommandError = 2 // Command error (bad flags, missing files, unknown ids)
)

// Error codes reported in command output.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeUsage         = "E002" // Invalid flag usage
	ErrCodeConfig        = "E003" // Config file unreadable or invalid
	ErrCodeCatalogRead   = "E101" // Catalog unreadable or malformed YAML
	ErrCodeCatalogSchema = "E102" // Catalog entry failed schema validation
	ErrCodeCardNotFound  = "E103" // Card id not in catalog
	ErrCodeSubmission    = "E201" // Workflow submission rejected
	ErrCodeTimeout       = "E202" // Generation timed out
	ErrCodeFetch         = "E203" // Image download failed
	ErrCodeNoImage       = "E204" // Completed job produced no image
	ErrCodeDecode        = "E301" // Backend bytes were not a decodable image
	ErrCodeWrite         = "E302" // Output file write failed
	ErrCodeLedger        = "E401" // Ledger database error
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode maps a pipeline failure to its reported error code.
func errorCode(err error) string {
	var ce *comfy.Error
	if errors.As(err, &ce) {
		switch ce.Code {
		case comfy.ErrCodeSubmissionFailed:
			return ErrCodeSubmission
		case comfy.ErrCodePollTimeout:
			return ErrCodeTimeout
		case comfy.ErrCodeFetchFailed:
			return ErrCodeFetch
		case comfy.ErrCodeNoImageProduced:
			return ErrCodeNoImage
		}
	}

	var ie *imaging.Error
	if errors.As(err, &ie) {
		switch ie.Code {
		case imaging.ErrCodeDecodeFailed:
			return ErrCodeDecode
		case imaging.ErrCodeWriteFailed:
			return ErrCodeWrite
		}
	}

	if catalog.IsNotFound(err) {
		return ErrCodeCardNotFound
	}
	return ErrCodeGeneric
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// writeIndentedJSON encodes a response with two-space indentation.
// Used for multi-record payloads where single-line JSON is unreadable.
func writeIndentedJSON(w io.Writer, response CLIResponse) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}
