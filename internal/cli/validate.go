package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/atelier/internal/catalog"
)

// ValidationResult holds catalog validation results.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Cards int    `json:"cards,omitempty"`
	Card  string `json:"card,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog.yaml>",
		Short: "Validate a card catalog",
		Long: `Validate a YAML card catalog against the entry schema.

Checks YAML syntax, rejects unknown fields, and validates every entry
against the embedded CUE schema (required id/name/type, allowed card
types, filesystem-safe ids). No backend is contacted.

Examples:
  atelier validate cards.yaml
  atelier validate cards.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("catalog file not found: %s", path)
		_ = formatter.Error(ErrCodeCatalogRead, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	cat, err := catalog.Load(path)
	if err != nil {
		var se *catalog.SchemaError
		if errors.As(err, &se) {
			// Schema violations are content failures (exit code 1);
			// unreadable files are command errors (exit code 2).
			return outputValidateFailure(formatter, se)
		}
		_ = formatter.Error(ErrCodeCatalogRead, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read catalog", err)
	}

	formatter.VerboseLog("Validated %d card(s) in %s", cat.Len(), path)
	return outputValidateSuccess(formatter, cat.Len())
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, cards int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Cards: cards})
	}

	fmt.Fprintf(formatter.Writer, "✓ catalog valid: %d card(s)\n", cards)
	return nil
}

// outputValidateFailure outputs a schema violation.
func outputValidateFailure(formatter *OutputFormatter, se *catalog.SchemaError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Card: se.ID, Error: se.Message},
			Error: &CLIError{
				Code:    ErrCodeCatalogSchema,
				Message: se.Error(),
			},
		}
		if err := writeIndentedJSON(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, se.Error())
	}

	fmt.Fprintln(formatter.Writer, "✗ catalog invalid")
	fmt.Fprintf(formatter.Writer, "  %s: %s\n", ErrCodeCatalogSchema, se.Error())
	return NewExitError(ExitFailure, se.Error())
}
