package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with optional fields so the file can
// override any subset of the defaults. Durations are strings in Go
// duration syntax ("500ms", "2s", "5m").
type fileConfig struct {
	Backend        *string       `yaml:"backend"`
	Catalog        *string       `yaml:"catalog"`
	Output         *string       `yaml:"output"`
	Ext            *string       `yaml:"ext"`
	Ledger         *string       `yaml:"ledger"`
	Width          *int          `yaml:"width"`
	Height         *int          `yaml:"height"`
	Quality        *int          `yaml:"quality"`
	Models         *modelsConfig `yaml:"models"`
	Guidance       *float64      `yaml:"guidance"`
	Steps          *int          `yaml:"steps"`
	CFG            *float64      `yaml:"cfg"`
	Sampler        *string       `yaml:"sampler"`
	Scheduler      *string       `yaml:"scheduler"`
	FilenamePrefix *string       `yaml:"filename_prefix"`
	PollInterval   *string       `yaml:"poll_interval"`
	PollTimeout    *string       `yaml:"poll_timeout"`
	RequestTimeout *string       `yaml:"request_timeout"`
	MaxAttempts    *int          `yaml:"max_attempts"`
	RetryBaseDelay *string       `yaml:"retry_base_delay"`
	InterItemDelay *string       `yaml:"inter_item_delay"`
}

type modelsConfig struct {
	UNet  *string `yaml:"unet"`
	ClipL *string `yaml:"clip_l"`
	T5XXL *string `yaml:"t5xxl"`
	VAE   *string `yaml:"vae"`
}

// Load reads the YAML config file at path and overlays it onto the
// defaults. Unknown fields are rejected so typos fail loudly. An empty
// file yields the defaults unchanged.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := Default()
	if err := fc.apply(&cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	setString(&cfg.BackendURL, fc.Backend)
	setString(&cfg.CatalogPath, fc.Catalog)
	setString(&cfg.OutputDir, fc.Output)
	setString(&cfg.OutputExt, fc.Ext)
	setString(&cfg.LedgerPath, fc.Ledger)
	setInt(&cfg.Width, fc.Width)
	setInt(&cfg.Height, fc.Height)
	setInt(&cfg.Quality, fc.Quality)
	if fc.Models != nil {
		setString(&cfg.Models.UNet, fc.Models.UNet)
		setString(&cfg.Models.ClipL, fc.Models.ClipL)
		setString(&cfg.Models.T5XXL, fc.Models.T5XXL)
		setString(&cfg.Models.VAE, fc.Models.VAE)
	}
	if fc.Guidance != nil {
		cfg.Guidance = *fc.Guidance
	}
	setInt(&cfg.Steps, fc.Steps)
	if fc.CFG != nil {
		cfg.CFG = *fc.CFG
	}
	setString(&cfg.Sampler, fc.Sampler)
	setString(&cfg.Scheduler, fc.Scheduler)
	setString(&cfg.FilenamePrefix, fc.FilenamePrefix)
	setInt(&cfg.MaxAttempts, fc.MaxAttempts)

	durations := []struct {
		dst   *time.Duration
		field string
		raw   *string
	}{
		{&cfg.PollInterval, "poll_interval", fc.PollInterval},
		{&cfg.PollTimeout, "poll_timeout", fc.PollTimeout},
		{&cfg.RequestTimeout, "request_timeout", fc.RequestTimeout},
		{&cfg.RetryBaseDelay, "retry_base_delay", fc.RetryBaseDelay},
		{&cfg.InterItemDelay, "inter_item_delay", fc.InterItemDelay},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("field %s: %w", d.field, err)
		}
		*d.dst = parsed
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
