package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/atelier/internal/catalog"
	"github.com/roach88/atelier/internal/comfy"
	"github.com/roach88/atelier/internal/config"
	"github.com/roach88/atelier/internal/imaging"
	"github.com/roach88/atelier/internal/ledger"
	"github.com/roach88/atelier/internal/pipeline"
	"github.com/roach88/atelier/internal/prompt"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	ID      string
	Missing bool
	Range   string
	DryRun  bool
	Seed    uint32
	Config  string
	Catalog string
	Output  string
	Backend string
	Ledger  string
}

// GenerateSummary is the JSON payload for generate runs.
type GenerateSummary struct {
	Selected  int               `json:"selected"`
	Generated int               `json:"generated"`
	Failed    int               `json:"failed"`
	DryRun    bool              `json:"dry_run,omitempty"`
	Prompts   []GeneratePrompt  `json:"prompts,omitempty"`
	Failures  []GenerateFailure `json:"failures,omitempty"`
}

// GeneratePrompt is one dry-run prompt preview.
type GeneratePrompt struct {
	Card   string `json:"card"`
	Prompt string `json:"prompt"`
}

// GenerateFailure is one permanently failed card.
type GenerateFailure struct {
	Card  string `json:"card"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate card illustrations",
		Long: `Generate card illustrations through a ComfyUI Flux workflow.

Cards are selected by exactly one of --id, --missing, or --range.
Each selected card gets a synthesized prompt, a backend generation with
bounded retries, and a post-processed JPEG at <output>/<id>.<ext>.

The output file is the only completion marker: --missing re-derives
pending work from the output directory alone.

Examples:
  atelier generate --id 042
  atelier generate --missing --catalog cards.yaml --output ./cards
  atelier generate --range 001:050 --dry-run
  atelier generate --id B02 --seed 1234 --backend http://gpu-box:8188`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "generate a single card by id")
	cmd.Flags().BoolVar(&opts.Missing, "missing", false, "generate every card whose output file is absent")
	cmd.Flags().StringVar(&opts.Range, "range", "", "generate an inclusive catalog range (start:end)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print prompts without contacting the backend")
	cmd.Flags().Uint32Var(&opts.Seed, "seed", 0, "fix the sampler seed for every selected card")
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "path to card catalog (overrides config)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "output directory (overrides config)")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "ComfyUI base URL (overrides config)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "path to run ledger database (overrides config)")

	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	sel, err := buildSelection(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid selection", err)
	}

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := resolveConfig(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		code := ErrCodeCatalogRead
		var se *catalog.SchemaError
		if errors.As(err, &se) {
			code = ErrCodeCatalogSchema
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	ctrl := buildController(cfg, cat, opts, cmd)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after current card", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.LedgerPath != "" && !opts.DryRun {
		store, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open ledger", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("error closing ledger", "error", closeErr)
			}
		}()
		if err := store.StartRun(ctx, cfg.BackendURL); err != nil {
			_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to start ledger run", err)
		}
		ctrl.Ledger = store
	}

	rep, err := ctrl.Run(ctx, sel)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			_ = formatter.Error(ErrCodeGeneric,
				fmt.Sprintf("interrupted after %d of %d cards", rep.Generated, rep.Selected), nil)
			return WrapExitError(ExitFailure, "generation interrupted", err)
		case catalog.IsNotFound(err):
			_ = formatter.Error(ErrCodeCardNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "unknown card", err)
		default:
			_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid selection", err)
		}
	}

	if opts.DryRun {
		return outputDryRun(formatter, rep)
	}
	return outputSummary(formatter, rep)
}

// buildSelection maps the selection flags to a pipeline selection.
// Exactly one of --id, --missing, --range must be set.
func buildSelection(opts *GenerateOptions) (pipeline.Selection, error) {
	count := 0
	if opts.ID != "" {
		count++
	}
	if opts.Missing {
		count++
	}
	if opts.Range != "" {
		count++
	}
	if count == 0 {
		return pipeline.Selection{}, errors.New("one of --id, --missing, or --range is required")
	}
	if count > 1 {
		return pipeline.Selection{}, errors.New("--id, --missing, and --range are mutually exclusive")
	}

	switch {
	case opts.ID != "":
		return pipeline.Selection{Mode: pipeline.ModeSingle, ID: opts.ID}, nil
	case opts.Missing:
		return pipeline.Selection{Mode: pipeline.ModeMissing}, nil
	default:
		start, end, ok := strings.Cut(opts.Range, ":")
		if !ok || start == "" || end == "" {
			return pipeline.Selection{}, fmt.Errorf("invalid range %q: want start:end", opts.Range)
		}
		return pipeline.Selection{Mode: pipeline.ModeRange, Start: start, End: end}, nil
	}
}

// resolveConfig layers the effective config: defaults, then the config
// file, then ATELIER_* environment variables, then explicit flags.
func resolveConfig(opts *GenerateOptions) (config.Config, error) {
	config.LoadDotenv()

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	config.ApplyEnv(&cfg)

	if opts.Catalog != "" {
		cfg.CatalogPath = opts.Catalog
	}
	if opts.Output != "" {
		cfg.OutputDir = opts.Output
	}
	if opts.Backend != "" {
		cfg.BackendURL = opts.Backend
	}
	if opts.Ledger != "" {
		cfg.LedgerPath = opts.Ledger
	}
	return cfg, nil
}

func buildController(cfg config.Config, cat *catalog.Catalog, opts *GenerateOptions, cmd *cobra.Command) *pipeline.Controller {
	client := comfy.NewClient(cfg.BackendURL, cfg.WorkflowBuilder(),
		comfy.WithPollInterval(cfg.PollInterval),
		comfy.WithPollTimeout(cfg.PollTimeout),
		comfy.WithRequestTimeout(cfg.RequestTimeout),
	)

	var seeds pipeline.SeedSource = pipeline.RandomSeeds{}
	if cmd.Flags().Changed("seed") {
		seeds = pipeline.FixedSeed(opts.Seed)
	}

	return &pipeline.Controller{
		Catalog:   cat,
		Prompts:   prompt.NewBuilder(),
		Generator: client,
		Retry: pipeline.Retryer{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			Sleep:       comfy.SystemSleeper{},
		},
		Post:           imaging.Processor{Width: cfg.Width, Height: cfg.Height, Quality: cfg.Quality},
		Seeds:          seeds,
		Sleep:          comfy.SystemSleeper{},
		OutputDir:      cfg.OutputDir,
		OutputExt:      cfg.OutputExt,
		InterItemDelay: cfg.InterItemDelay,
		DryRun:         opts.DryRun,
	}
}

// outputDryRun prints the synthesized prompts without generating.
func outputDryRun(formatter *OutputFormatter, rep pipeline.Report) error {
	if formatter.Format == "json" {
		summary := GenerateSummary{
			Selected: rep.Selected,
			DryRun:   true,
			Prompts:  make([]GeneratePrompt, 0, len(rep.Prompts)),
		}
		for _, p := range rep.Prompts {
			summary.Prompts = append(summary.Prompts, GeneratePrompt{Card: p.CardID, Prompt: p.Prompt})
		}
		return formatter.Success(summary)
	}

	w := formatter.Writer
	for _, p := range rep.Prompts {
		fmt.Fprintf(w, "[%s] %s\n", p.CardID, p.Prompt)
	}
	fmt.Fprintf(w, "✓ previewed %d prompt(s)\n", len(rep.Prompts))
	return nil
}

// outputSummary prints the run tally. A run with failed cards exits
// with ExitFailure after the summary.
func outputSummary(formatter *OutputFormatter, rep pipeline.Report) error {
	summary := GenerateSummary{
		Selected:  rep.Selected,
		Generated: rep.Generated,
		Failed:    rep.Failed,
	}
	for _, f := range rep.Failures {
		summary.Failures = append(summary.Failures, GenerateFailure{
			Card:  f.ID,
			Code:  errorCode(f.Err),
			Error: f.Err.Error(),
		})
	}

	if formatter.Format == "json" {
		if rep.Failed > 0 {
			response := CLIResponse{
				Status: "error",
				Data:   summary,
				Error: &CLIError{
					Code:    summary.Failures[0].Code,
					Message: summary.Failures[0].Error,
				},
			}
			if err := writeIndentedJSON(formatter.Writer, response); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cards failed", rep.Failed, rep.Selected))
		}
		return formatter.Success(summary)
	}

	w := formatter.Writer
	if rep.Failed > 0 {
		fmt.Fprintf(w, "✗ %d of %d cards failed\n", rep.Failed, rep.Selected)
		for _, f := range summary.Failures {
			fmt.Fprintf(w, "  %s: [%s] %s\n", f.Card, f.Code, f.Error)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cards failed", rep.Failed, rep.Selected))
	}

	fmt.Fprintf(w, "✓ generated %d/%d cards\n", rep.Generated, rep.Selected)
	return nil
}
