// Package config assembles pipeline settings.
//
// Precedence, lowest to highest: built-in defaults, the optional YAML
// config file, ATELIER_* environment variables, command-line flags.
// The CLI layer applies flag overrides; this package handles the rest.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/roach88/atelier/internal/workflow"
)

// Config carries every tunable of the generation pipeline.
type Config struct {
	// BackendURL is the base URL of the generation backend.
	BackendURL string

	// CatalogPath locates the card catalog YAML file.
	CatalogPath string

	// OutputDir and OutputExt shape output paths: <dir>/<card-id>.<ext>.
	OutputDir string
	OutputExt string

	// LedgerPath locates the run ledger database. Empty disables the
	// ledger.
	LedgerPath string

	// Output image geometry and JPEG quality.
	Width   int
	Height  int
	Quality int

	// Flux graph parameters.
	Models         workflow.Models
	Guidance       float64
	Steps          int
	CFG            float64
	Sampler        string
	Scheduler      string
	FilenamePrefix string

	// Backend pacing.
	PollInterval   time.Duration
	PollTimeout    time.Duration
	RequestTimeout time.Duration

	// Retry and batch pacing.
	MaxAttempts    int
	RetryBaseDelay time.Duration
	InterItemDelay time.Duration
}

// Default returns the standard local setup: a ComfyUI instance on
// 127.0.0.1:8188 with the Flux Schnell checkpoints, writing 960×720
// JPEG cards.
func Default() Config {
	return Config{
		BackendURL:  "http://127.0.0.1:8188",
		CatalogPath: "cards.yaml",
		OutputDir:   "cards",
		OutputExt:   "jpg",
		Width:       960,
		Height:      720,
		Quality:     90,
		Models: workflow.Models{
			UNet:  "flux1-schnell.safetensors",
			ClipL: "clip_l.safetensors",
			T5XXL: "t5xxl_fp8_e4m3fn.safetensors",
			VAE:   "ae.safetensors",
		},
		Guidance:       3.5,
		Steps:          4,
		CFG:            1.0,
		Sampler:        "euler",
		Scheduler:      "simple",
		FilenamePrefix: "card",
		PollInterval:   500 * time.Millisecond,
		PollTimeout:    5 * time.Minute,
		RequestTimeout: 30 * time.Second,
		MaxAttempts:    3,
		RetryBaseDelay: 2 * time.Second,
		InterItemDelay: time.Second,
	}
}

// WorkflowBuilder derives the graph builder for these settings.
func (c Config) WorkflowBuilder() workflow.Builder {
	return workflow.Builder{
		Models:         c.Models,
		Width:          c.Width,
		Height:         c.Height,
		Guidance:       c.Guidance,
		Steps:          c.Steps,
		CFG:            c.CFG,
		Sampler:        c.Sampler,
		Scheduler:      c.Scheduler,
		FilenamePrefix: c.FilenamePrefix,
	}
}

// LoadDotenv loads a .env file from the working directory into the
// process environment when one exists. A missing file is not an error.
func LoadDotenv() {
	_ = godotenv.Load()
}

// ApplyEnv overlays ATELIER_* environment variables onto cfg. Unset and
// empty variables leave the current value in place.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("ATELIER_BACKEND"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("ATELIER_CATALOG"); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv("ATELIER_OUTPUT"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("ATELIER_LEDGER"); v != "" {
		cfg.LedgerPath = v
	}
}
