package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/atelier/internal/ledger"
)

// LedgerOptions holds flags for the ledger command.
type LedgerOptions struct {
	*RootOptions
	Card string
}

// LedgerResult holds the attempt listing for JSON output.
type LedgerResult struct {
	Attempts []LedgerAttempt `json:"attempts"`
}

// LedgerAttempt is one recorded attempt row.
type LedgerAttempt struct {
	RunID      string `json:"run_id"`
	Card       string `json:"card"`
	Seed       uint32 `json:"seed"`
	PromptHash string `json:"prompt_hash"`
	Attempts   int    `json:"attempts"`
	Outcome    string `json:"outcome"`
	ErrorCode  string `json:"error_code,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger <db>",
		Short: "List recorded generation attempts",
		Long: `List generation attempts recorded in a run ledger database.

Shows every attempt newest first: card, outcome, attempt count, seed,
and error code for failures. The ledger is written by generate runs
invoked with --ledger; it is an audit trail and never drives selection.

Examples:
  atelier ledger ./runs.db
  atelier ledger ./runs.db --card 042
  atelier ledger ./runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Card, "card", "", "filter attempts to one card id")

	return cmd
}

func runLedger(opts *LedgerOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Open creates missing databases, so a mistyped path must fail here.
	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("ledger database not found: %s", path)
		_ = formatter.Error(ErrCodeLedger, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	store, err := ledger.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	records, err := store.Attempts(ctx, opts.Card)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read attempts", err)
	}

	if opts.Format == "json" {
		result := LedgerResult{Attempts: make([]LedgerAttempt, 0, len(records))}
		for _, r := range records {
			result.Attempts = append(result.Attempts, LedgerAttempt{
				RunID:      r.RunID,
				Card:       r.CardID,
				Seed:       r.Seed,
				PromptHash: r.PromptHash,
				Attempts:   r.Attempts,
				Outcome:    r.Outcome,
				ErrorCode:  r.ErrorCode,
				DurationMS: r.Duration.Milliseconds(),
				CreatedAt:  r.CreatedAt,
			})
		}
		return writeIndentedJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}

	return outputLedgerText(cmd.OutOrStdout(), records)
}

// outputLedgerText prints attempts newest first, one line each.
func outputLedgerText(w io.Writer, records []ledger.AttemptRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No attempts recorded.")
		return nil
	}

	for _, r := range records {
		line := fmt.Sprintf("%s  %-4s %-9s attempts=%d seed=%d",
			r.CreatedAt, r.CardID, r.Outcome, r.Attempts, r.Seed)
		if r.ErrorCode != "" {
			line += "  error=" + r.ErrorCode
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\n%d attempt(s)\n", len(records))
	return nil
}
