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

// ValidBackendNames lists known backend names per concern.
// Used by [Validate] to warn about unrecognised names.
var ValidBackendNames = map[string][]string{
	"speech":     {"deepgram", "whisper"},
	"assist":     {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
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

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Speech
	validateBackendName("speech", cfg.Speech.Backend)
	if cfg.Speech.Backend == "" {
		slog.Warn("speech.backend is empty; dictation will be unavailable")
	}
	if cfg.Speech.Backend == "whisper" && cfg.Speech.ModelPath == "" {
		errs = append(errs, errors.New("speech.model_path is required when speech.backend is whisper"))
	}
	if cfg.Speech.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("speech.sample_rate %d is negative", cfg.Speech.SampleRate))
	}
	if cfg.Speech.GraceDelay < 0 {
		errs = append(errs, fmt.Errorf("speech.grace_delay %s is negative", cfg.Speech.GraceDelay))
	}

	// Assist chain
	if len(cfg.Assist.Backends) == 0 {
		slog.Warn("assist.backends is empty; every AI operation will return its fallback value")
	}
	for i, b := range cfg.Assist.Backends {
		prefix := fmt.Sprintf("assist.backends[%d]", i)
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateBackendName("assist", b.Name)
	}

	// Storage
	if cfg.Storage.Backend != "" && !cfg.Storage.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: memory, postgres", cfg.Storage.Backend))
	}
	if cfg.Storage.Backend == StoragePostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required when storage.backend is postgres"))
	}

	// Search
	if cfg.Search.Enabled {
		if cfg.Search.Embeddings.Name == "" {
			errs = append(errs, errors.New("search.embeddings.name is required when search.enabled is true"))
		} else {
			validateBackendName("embeddings", cfg.Search.Embeddings.Name)
		}
		if cfg.Storage.Backend != StoragePostgres {
			slog.Warn("search.enabled with a non-postgres storage backend; the index will live in memory only")
		}
	}

	return errors.Join(errs...)
}

// validateBackendName logs a warning if name is non-empty and not found in
// the [ValidBackendNames] list for the given kind.
func validateBackendName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidBackendNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown backend name — may be a typo or third-party backend",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
