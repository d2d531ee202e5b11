// Package pipeline drives batch card generation: it resolves a
// selection against the catalog, synthesizes a prompt per card, runs
// the generation with bounded retries, post-processes the result to
// the output file, and paces consecutive items.
//
// Entries run strictly one at a time. One card's permanent failure is
// recorded and the batch moves on; cancellation stops the batch and
// returns the partial report.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/roach88/atelier/internal/catalog"
	"github.com/roach88/atelier/internal/comfy"
	"github.com/roach88/atelier/internal/imaging"
	"github.com/roach88/atelier/internal/ledger"
	"github.com/roach88/atelier/internal/prompt"
)

// SelectionMode picks which catalog entries a run covers.
type SelectionMode int

const (
	// ModeNone is the zero value; Run rejects it with ErrNoSelection.
	ModeNone SelectionMode = iota

	// ModeSingle selects one card by id.
	ModeSingle

	// ModeMissing selects every card whose output file does not exist.
	ModeMissing

	// ModeRange selects the cards from Start through End inclusive,
	// by catalog order.
	ModeRange
)

// Selection names the entries one run processes. Exactly one mode
// applies per run.
type Selection struct {
	Mode  SelectionMode
	ID    string
	Start string
	End   string
}

// ErrNoSelection marks a run invoked without selection criteria.
var ErrNoSelection = errors.New("no selection criteria given")

// Failure records one card's permanent failure.
type Failure struct {
	ID  string
	Err error
}

// PromptPreview pairs a card with its synthesized prompt. Collected on
// dry runs instead of generating.
type PromptPreview struct {
	CardID string
	Prompt string
}

// Report tallies one run.
type Report struct {
	Selected  int
	Generated int
	Failed    int
	Failures  []Failure
	Prompts   []PromptPreview
}

// Controller owns one batch run end to end.
//
// Ledger is optional; when non-nil every finished card records an
// attempt row. Ledger writes never gate or abort work.
type Controller struct {
	Catalog   *catalog.Catalog
	Prompts   *prompt.Builder
	Generator Generator
	Retry     Retryer
	Post      imaging.Processor
	Seeds     SeedSource
	Sleep     comfy.Sleeper
	Ledger    *ledger.Store

	OutputDir      string
	OutputExt      string
	InterItemDelay time.Duration

	// DryRun collects prompts without contacting the backend, drawing
	// seeds, or writing files.
	DryRun bool
}

// Run processes the selected entries sequentially and reports the
// tally. A permanently failed card lands in Report.Failures and the
// run continues; cancellation returns the partial report with the
// context's error.
func (c *Controller) Run(ctx context.Context, sel Selection) (Report, error) {
	if c.Seeds == nil {
		c.Seeds = RandomSeeds{}
	}

	entries, err := c.resolve(sel)
	if err != nil {
		return Report{}, err
	}

	report := Report{Selected: len(entries)}
	for i, entry := range entries {
		if i > 0 && !c.DryRun {
			if err := c.pace(ctx); err != nil {
				return report, err
			}
		}

		if err := c.processEntry(ctx, entry, &report); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			report.Failed++
			report.Failures = append(report.Failures, Failure{ID: entry.ID, Err: err})
			slog.Error("card generation failed", "card", entry.ID, "error", err)
			continue
		}

		if !c.DryRun {
			report.Generated++
		}
	}
	return report, nil
}

func (c *Controller) resolve(sel Selection) ([]catalog.Entry, error) {
	switch sel.Mode {
	case ModeSingle:
		e, err := c.Catalog.Find(sel.ID)
		if err != nil {
			return nil, err
		}
		return []catalog.Entry{e}, nil
	case ModeMissing:
		return c.Catalog.Missing(c.OutputDir, c.OutputExt), nil
	case ModeRange:
		return c.Catalog.Range(sel.Start, sel.End)
	default:
		return nil, ErrNoSelection
	}
}

// processEntry takes one card from prompt to output file. The returned
// error is the final generation or post-processing error, untouched.
func (c *Controller) processEntry(ctx context.Context, entry catalog.Entry, report *Report) error {
	text := c.Prompts.Build(entry)
	if c.DryRun {
		report.Prompts = append(report.Prompts, PromptPreview{CardID: entry.ID, Prompt: text})
		return nil
	}

	seed := c.Seeds.Next()
	hash := prompt.Hash(text)
	slog.Info("generating card", "card", entry.ID, "seed", seed, "prompt_hash", hash)

	start := time.Now()
	attempts := 1
	retry := c.Retry
	retry.OnRetry = func(attempt int, err error) {
		attempts = attempt + 1
		slog.Warn("generation attempt failed", "card", entry.ID, "attempt", attempt, "error", err)
		if c.Retry.OnRetry != nil {
			c.Retry.OnRetry(attempt, err)
		}
	}

	raw, err := retry.Generate(ctx, c.Generator, text, seed)
	if err != nil {
		c.record(ctx, entry, seed, hash, attempts, err, time.Since(start))
		return err
	}

	path := filepath.Join(c.OutputDir, entry.ID+"."+c.OutputExt)
	if err := c.Post.ProcessAndSave(raw, path); err != nil {
		c.record(ctx, entry, seed, hash, attempts, err, time.Since(start))
		return err
	}

	slog.Info("card generated", "card", entry.ID, "seed", seed, "path", path)
	c.record(ctx, entry, seed, hash, attempts, nil, time.Since(start))
	return nil
}

func (c *Controller) pace(ctx context.Context) error {
	if c.InterItemDelay <= 0 {
		return nil
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = comfy.SystemSleeper{}
	}
	return sleep.Sleep(ctx, c.InterItemDelay)
}

// record writes the attempt row when a ledger is attached. Interrupted
// attempts are not recorded; they are not card outcomes.
func (c *Controller) record(ctx context.Context, entry catalog.Entry, seed uint32, hash string, attempts int, cause error, elapsed time.Duration) {
	if c.Ledger == nil {
		return
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return
	}

	outcome := ledger.OutcomeGenerated
	if cause != nil {
		outcome = ledger.OutcomeFailed
	}
	a := ledger.Attempt{
		CardID:     entry.ID,
		Seed:       seed,
		PromptHash: hash,
		Attempts:   attempts,
		Outcome:    outcome,
		ErrorCode:  errorCode(cause),
		Duration:   elapsed,
	}
	if err := c.Ledger.RecordAttempt(ctx, a); err != nil {
		slog.Warn("ledger write failed", "card", entry.ID, "error", err)
	}
}

// errorCode maps a failure to the code recorded in the ledger.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var ce *comfy.Error
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	var ie *imaging.Error
	if errors.As(err, &ie) {
		return string(ie.Code)
	}
	return "ERROR"
}
