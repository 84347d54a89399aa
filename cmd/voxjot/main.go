// Command voxjot is the voice journal capture core. It loads the YAML
// configuration, wires the configured speech/assist/embeddings backends, and
// runs a line-oriented capture loop on the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/voxjot/voxjot/internal/app"
	"github.com/voxjot/voxjot/internal/config"
	"github.com/voxjot/voxjot/internal/health"
	"github.com/voxjot/voxjot/internal/observe"
	"github.com/voxjot/voxjot/internal/resilience"
	"github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/provider/assist/anyllm"
	oaassist "github.com/voxjot/voxjot/pkg/provider/assist/openai"
	"github.com/voxjot/voxjot/pkg/provider/embeddings"
	oaembed "github.com/voxjot/voxjot/pkg/provider/embeddings/openai"
	"github.com/voxjot/voxjot/pkg/provider/speech"
	"github.com/voxjot/voxjot/pkg/provider/speech/deepgram"
	"github.com/voxjot/voxjot/pkg/provider/speech/whisper"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxjot: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxjot: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxjot starting",
		"version", version,
		"config", *configPath,
		"log_level", cfg.LogLevel,
		"storage", cfg.Storage.Backend,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxjot",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Backend registry ──────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinBackends(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers,
		app.WithLogger(logger),
		app.WithNotifier(func(msg string) { fmt.Println("! " + msg) }),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Admin HTTP (health + metrics) ─────────────────────────────────────────
	if cfg.ListenAddr != "" {
		mux := http.NewServeMux()
		health.New(health.StorageChecker(application.StorageReady)).Register(mux)
		adminSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
		go func() {
			slog.Info("admin server listening", "addr", cfg.ListenAddr)
			if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("admin server error", "err", err)
			}
		}()
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = adminSrv.Shutdown(closeCtx)
		}()
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if !diff.HotReloadable() {
			slog.Warn("config change requires a restart to take effect")
			return
		}
		if diff.LogLevelChanged {
			slog.SetDefault(newLogger(diff.NewLogLevel))
			slog.Info("log level changed", "level", diff.NewLogLevel)
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Capture loop ──────────────────────────────────────────────────────────
	printWelcome(cfg)

	loop := newCaptureLoop(application, os.Stdin, os.Stdout)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("capture loop error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Backend wiring ────────────────────────────────────────────────────────────

// registerBuiltinBackends wires all built-in backend factories into reg.
func registerBuiltinBackends(reg *config.Registry) {
	// ── Speech ────────────────────────────────────────────────────────────────

	reg.RegisterSpeech("deepgram", func(cfg config.SpeechConfig) (speech.Recognizer, error) {
		var opts []deepgram.Option
		if cfg.Language != "" {
			opts = append(opts, deepgram.WithLanguage(cfg.Language))
		}
		if cfg.SampleRate > 0 {
			opts = append(opts, deepgram.WithSampleRate(cfg.SampleRate))
		}
		return deepgram.New(cfg.APIKey, opts...)
	})

	reg.RegisterSpeech("whisper", func(cfg config.SpeechConfig) (speech.Recognizer, error) {
		var opts []whisper.Option
		if cfg.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.Language))
		}
		if cfg.SampleRate > 0 {
			opts = append(opts, whisper.WithSampleRate(cfg.SampleRate))
		}
		return whisper.New(cfg.ModelPath, opts...)
	})

	// ── Assist ────────────────────────────────────────────────────────────────
	// openai gets the native SDK implementation; everything else goes through
	// the any-llm adapter with the same APIKey/BaseURL pattern.

	reg.RegisterAssist("openai", func(entry config.AssistBackend) (assist.Provider, error) {
		var opts []oaassist.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaassist.WithBaseURL(entry.BaseURL))
		}
		return oaassist.New(entry.APIKey, entry.Model, opts...)
	})

	for _, name := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		backendName := name
		reg.RegisterAssist(backendName, func(entry config.AssistBackend) (assist.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(backendName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterAssist("ollama", func(entry config.AssistBackend) (assist.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewOllama(entry.Model, opts...)
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.AssistBackend) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildProviders instantiates the backends named in cfg and returns them in an
// [app.Providers] struct. A missing or unregistered backend leaves the slot
// nil; the corresponding feature degrades per its contract.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Speech.Backend; name != "" {
		p, err := reg.CreateSpeech(cfg.Speech)
		if errors.Is(err, config.ErrBackendNotRegistered) {
			slog.Warn("speech backend not registered — dictation disabled", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create speech backend %q: %w", name, err)
		} else {
			ps.Recognizer = p
			slog.Info("backend created", "kind", "speech", "name", name)
		}
	}

	if chain := cfg.Assist.Backends; len(chain) > 0 {
		primary, err := reg.CreateAssist(chain[0])
		if errors.Is(err, config.ErrBackendNotRegistered) {
			slog.Warn("assist backend not registered — AI features degrade", "name", chain[0].Name)
		} else if err != nil {
			return nil, fmt.Errorf("create assist backend %q: %w", chain[0].Name, err)
		} else {
			fallback := resilience.NewAssistFallback(primary, chain[0].Name, resilience.FallbackConfig{})
			for _, entry := range chain[1:] {
				backend, err := reg.CreateAssist(entry)
				if err != nil {
					slog.Warn("skipping assist fallback backend", "name", entry.Name, "err", err)
					continue
				}
				fallback.AddFallback(entry.Name, backend)
				slog.Info("backend created", "kind", "assist-fallback", "name", entry.Name)
			}
			ps.Assist = fallback
			slog.Info("backend created", "kind", "assist", "name", chain[0].Name)
		}
	}

	if cfg.Search.Enabled {
		p, err := reg.CreateEmbeddings(cfg.Search.Embeddings)
		if errors.Is(err, config.ErrBackendNotRegistered) {
			slog.Warn("embeddings backend not registered — semantic search disabled", "name", cfg.Search.Embeddings.Name)
		} else if err != nil {
			return nil, fmt.Errorf("create embeddings backend %q: %w", cfg.Search.Embeddings.Name, err)
		} else {
			ps.Embedder = p
			slog.Info("backend created", "kind", "embeddings", "name", cfg.Search.Embeddings.Name)
		}
	}

	return ps, nil
}

// ── Startup banner ────────────────────────────────────────────────────────────

func printWelcome(cfg *config.Config) {
	fmt.Println("voxjot — voice journal capture")
	fmt.Printf("  speech  : %s\n", orUnset(cfg.Speech.Backend))
	if len(cfg.Assist.Backends) > 0 {
		fmt.Printf("  assist  : %s / %s\n", cfg.Assist.Backends[0].Name, cfg.Assist.Backends[0].Model)
	} else {
		fmt.Println("  assist  : (not configured)")
	}
	fmt.Printf("  storage : %s\n", cfg.Storage.Backend)
	if cfg.Search.Enabled {
		fmt.Printf("  search  : semantic (%s)\n", cfg.Search.Embeddings.Name)
	} else {
		fmt.Println("  search  : substring")
	}
	fmt.Println(`type text to capture a note, or /help for commands`)
}

func orUnset(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
