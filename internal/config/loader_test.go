package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/voxjot/voxjot/internal/config"
)

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: debug
listen_addr: ":9090"
speech:
  backend: deepgram
  api_key: dg-key
  language: zh-CN
  sample_rate: 16000
  grace_delay: 500ms
assist:
  backends:
    - name: openai
      api_key: sk-1
      model: gpt-4o
    - name: ollama
      base_url: http://localhost:11434
      model: llama3
storage:
  backend: postgres
  postgres_dsn: "postgres://localhost/voxjot"
search:
  enabled: true
  embeddings:
    name: openai
    api_key: sk-1
mcp:
  enabled: true
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.Speech.GraceDelay != 500*time.Millisecond {
		t.Errorf("GraceDelay = %s, want 500ms", cfg.Speech.GraceDelay)
	}
	if len(cfg.Assist.Backends) != 2 || cfg.Assist.Backends[1].Name != "ollama" {
		t.Errorf("Assist.Backends = %+v, want openai then ollama", cfg.Assist.Backends)
	}
	if cfg.Storage.Backend != config.StoragePostgres {
		t.Errorf("Storage.Backend = %q, want postgres", cfg.Storage.Backend)
	}
	if !cfg.Search.Enabled || !cfg.MCP.Enabled {
		t.Error("search and mcp should both be enabled")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := `
speech:
  backend: deepgram
  interim: true
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("log_level: verbose\n"))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_WhisperRequiresModelPath(t *testing.T) {
	t.Parallel()
	yaml := `
speech:
  backend: whisper
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for whisper without model_path, got nil")
	}
	if !strings.Contains(err.Error(), "model_path") {
		t.Errorf("error should mention model_path, got: %v", err)
	}
}

func TestValidate_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()
	yaml := `
storage:
  backend: postgres
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for postgres without dsn, got nil")
	}
	if !strings.Contains(err.Error(), "postgres_dsn") {
		t.Errorf("error should mention postgres_dsn, got: %v", err)
	}
}

func TestValidate_SearchRequiresEmbeddingsName(t *testing.T) {
	t.Parallel()
	yaml := `
search:
  enabled: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for search without embeddings backend, got nil")
	}
	if !strings.Contains(err.Error(), "embeddings") {
		t.Errorf("error should mention embeddings, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: verbose
storage:
  backend: filesystem
assist:
  backends:
    - model: gpt-4o
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "storage.backend", "assist.backends[0].name"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidBackendNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidBackendNames) == 0 {
		t.Fatal("ValidBackendNames should not be empty")
	}
	assistNames := config.ValidBackendNames["assist"]
	if len(assistNames) == 0 {
		t.Fatal("ValidBackendNames[\"assist\"] should not be empty")
	}
	found := false
	for _, n := range assistNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidBackendNames[\"assist\"] should contain \"openai\"")
	}
}
