// Package main provides the ecosketch worker entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ecosketch/ecosketch/internal/config"
	"github.com/ecosketch/ecosketch/internal/describe"
	"github.com/ecosketch/ecosketch/internal/imagegen"
	"github.com/ecosketch/ecosketch/internal/orchestrator"
	"github.com/ecosketch/ecosketch/internal/store"
	"github.com/ecosketch/ecosketch/internal/watcher"
	"github.com/ecosketch/ecosketch/internal/worker"
	"github.com/ecosketch/ecosketch/internal/worker/sse"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "HTTP port (default: from settings/env)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port > 0 {
		cfg.WorkerPort = *port
	}

	sessionStore, closeStore, err := buildStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("Failed to initialize session store")
	}
	defer closeStore()

	// Remote text model is optional; without a key the deterministic local
	// template and rule table serve every request.
	var llm describe.TextCompleter
	if client := describe.NewOpenAIClient(cfg.OpenAIAPIKey, "", cfg.OpenAIModel); client != nil {
		llm = client
		log.Info().Str("model", cfg.OpenAIModel).Msg("OpenAI rewrites enabled")
	} else {
		log.Info().Msg("No OpenAI key, using deterministic text generation")
	}

	generator := describe.NewGenerator(llm)
	refiner := describe.NewRefiner(llm, cfg.MinRefineLength)
	pipeline := imagegen.NewPipeline(
		buildProviders(cfg),
		time.Duration(cfg.RetryCooldownSeconds)*time.Second,
	)

	broadcaster := sse.NewBroadcaster()
	orch := orchestrator.New(sessionStore,
		orchestrator.DescriberFunc(func(ctx context.Context, prompt string) (string, error) {
			return generator.Generate(ctx, prompt), nil
		}),
		orchestrator.RefinerFunc(func(ctx context.Context, original, feedback string) (string, error) {
			return refiner.Refine(ctx, original, feedback), nil
		}),
		orchestrator.ImagerFunc(func(ctx context.Context, description string) (string, error) {
			return pipeline.Generate(ctx, description).URL, nil
		}),
		orchestrator.WithNotifier(broadcaster),
	)

	svc := worker.New(Version, cfg, orch, broadcaster)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A settings change exits the process so a supervisor restarts it with
	// the new configuration.
	settingsWatcher, err := watcher.New(config.SettingsPath(), func() {
		log.Info().Msg("Settings changed, shutting down for restart")
		stop()
	})
	if err != nil {
		log.Warn().Err(err).Msg("Settings watcher unavailable")
	} else {
		if err := settingsWatcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start settings watcher")
		}
		defer settingsWatcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Worker exited with error")
	}
}

// buildStore selects the session store backend from configuration.
func buildStore(cfg *config.Config) (store.SessionStore, func(), error) {
	switch cfg.Store {
	case "sqlite":
		st, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.DBPath})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.DBPath).Msg("Using sqlite session store")
		return st, func() { st.Close() }, nil
	default:
		log.Info().Msg("Using in-memory session store")
		return store.NewMemoryStore(), func() {}, nil
	}
}

// buildProviders assembles the image provider chain from providers.yaml.
// Without a Hugging Face key the chain is empty and every request renders
// the local placeholder.
func buildProviders(cfg *config.Config) []imagegen.Provider {
	if cfg.HuggingFaceAPIKey == "" {
		log.Info().Msg("No Hugging Face key, image requests use the local placeholder")
		return nil
	}

	specs := config.LoadProviders()
	providers := make([]imagegen.Provider, 0, len(specs))
	for _, spec := range specs {
		p, err := imagegen.NewHFProvider(imagegen.HFConfig{
			APIKey:  cfg.HuggingFaceAPIKey,
			Model:   spec.Model,
			BaseURL: spec.BaseURL,
		})
		if err != nil {
			log.Warn().Err(err).Str("provider", spec.Name).Msg("Skipping image provider")
			continue
		}
		providers = append(providers, p)
	}
	log.Info().Int("providers", len(providers)).Msg("Image provider chain ready")
	return providers
}
