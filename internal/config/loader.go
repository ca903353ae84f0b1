package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind. Used by
// [Validate] to reject unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":       {"whisper", "whisper-native"},
	"tts":       {"coqui"},
	"translate": {"mock", "openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Store
	if cfg.Store.Driver != "" && !cfg.Store.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("store.driver %q is invalid; valid values: sqlite, postgres, memory", cfg.Store.Driver))
	}
	if cfg.Store.Driver == DriverPostgres && cfg.Store.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("store.postgres_dsn is required when store.driver is postgres"))
	}
	if cfg.Store.Driver == DriverMemory {
		slog.Warn("store.driver is memory; review progress will not survive exit")
	}

	// SRS
	if err := cfg.SRS.Params().Validate(); err != nil {
		errs = append(errs, err)
	}

	// Scoring thresholds must be ordered when set.
	th := cfg.Scoring.Thresholds()
	if !(th.Excellent > th.Good && th.Good > th.Poor) {
		errs = append(errs, fmt.Errorf("scoring thresholds must be strictly decreasing: excellent %.1f > good %.1f > poor %.1f",
			th.Excellent, th.Good, th.Poor))
	}

	// Providers
	errs = append(errs, validateProviderEntry("stt", cfg.Providers.STT)...)
	errs = append(errs, validateProviderEntry("tts", cfg.Providers.TTS)...)
	errs = append(errs, validateProviderEntry("translate", cfg.Providers.Translate)...)

	if cfg.Providers.STT.Name == "" || cfg.Providers.TTS.Name == "" {
		slog.Warn("stt or tts provider not configured; shadowing practice runs text-only")
	}

	return joinNonNil(errs)
}

// validateProviderEntry checks one provider block against the known names and
// the per-implementation requirements.
func validateProviderEntry(kind string, e ProviderEntry) []error {
	if e.Name == "" {
		return nil
	}

	var errs []error
	if known := ValidProviderNames[kind]; !slices.Contains(known, e.Name) {
		errs = append(errs, fmt.Errorf("providers.%s.name %q is unknown; valid values: %v", kind, e.Name, known))
		return errs
	}

	switch e.Name {
	case "whisper", "coqui":
		if e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("providers.%s.base_url is required for %q", kind, e.Name))
		}
	case "whisper-native":
		if e.Model == "" {
			errs = append(errs, fmt.Errorf("providers.%s.model (GGML model path) is required for %q", kind, e.Name))
		}
	case "openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq":
		if e.Model == "" {
			errs = append(errs, fmt.Errorf("providers.%s.model (chat model name) is required for %q", kind, e.Name))
		}
	}
	return errs
}

// joinNonNil joins errs, dropping nils, and returns nil when nothing remains.
func joinNonNil(errs []error) error {
	return errors.Join(errs...)
}
