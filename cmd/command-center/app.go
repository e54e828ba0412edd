package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/agents"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/api"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/config"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/events"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/handlers"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/memory"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/personality"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/search"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store/file"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store/inmem"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store/postgres"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store/sqlite"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/transcript"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/workflows"
)

// app holds everything a command invocation needs. Close releases the
// repository and Temporal connections.
type app struct {
	router        *commands.Router
	memories      *memory.Store
	memoryHandler *handlers.MemoryHandler
	tabs          *handlers.TabsHandler
	broker        *events.Broker
	probes        map[string]api.Probe
	closers       []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type buildOptions struct {
	// migrate applies the Postgres schema before connecting.
	migrate bool
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger, opts buildOptions) (*app, error) {
	a := &app{probes: map[string]api.Probe{}}

	repo, closeRepo, err := openRepository(ctx, cfg, opts.migrate)
	if err != nil {
		return nil, fmt.Errorf("open %s memory backend: %w", cfg.MemoryBackend, err)
	}
	if closeRepo != nil {
		a.closers = append(a.closers, closeRepo)
	}
	if pinger, ok := repo.(store.Pinger); ok {
		a.probes["repository"] = pinger.Ping
	}

	provider, err := newProvider(cfg.LLMConfig())
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	visionProvider, err := newProvider(cfg.LLMConfig().WithModel(cfg.LLMVisionModel))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var summarizer memory.PageSummarizer = agents.NewPageSummarizer(provider)
	if cfg.TemporalAddress != "" {
		temporalClient, err := dialTemporal(client.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("dial temporal: %w", err)
		}
		if temporalClient != nil {
			a.closers = append(a.closers, func() error {
				temporalClient.Close()
				return nil
			})
			a.probes["temporal"] = func(ctx context.Context) error {
				_, err := temporalClient.CheckHealth(ctx, &client.CheckHealthRequest{})
				return err
			}
		}
		summarizer = workflows.NewService(temporalClient, cfg.TemporalTaskQueue)
		logger.Info("page summaries run as temporal workflows",
			zap.String("address", cfg.TemporalAddress),
			zap.String("task_queue", cfg.TemporalTaskQueue),
		)
	}

	a.broker = events.NewBroker()
	a.memories = memory.New(repo, memory.Options{
		Searcher:   agents.NewMemorySearcher(provider),
		Summarizer: summarizer,
		Analyzer:   agents.NewScreenshotAnalyzer(visionProvider),
		Publisher:  a.broker,
		Logger:     logger,
	})

	transcripts := transcript.NewTimedTextFetcher(transcript.TimedTextConfig{})
	researcher := search.NewResearcher(
		search.NewClient(search.Config{
			APIKey:     cfg.ExaAPIKey,
			BaseURL:    cfg.ExaBaseURL,
			NumResults: cfg.ExaNumResults,
		}),
		agents.NewWebSummarizer(provider),
		logger,
	)

	a.memoryHandler = handlers.NewMemoryHandler(a.memories)
	a.tabs = handlers.NewTabsHandler(agents.NewTabAnalyzer(visionProvider), transcripts, logger)

	registry := commands.NewRegistry()
	registry.MustRegister(
		handlers.NewWebHandler(researcher),
		handlers.NewChatHandler(agents.NewChatAgent(provider, personality.Resolve()), transcripts, logger),
		a.memoryHandler,
		handlers.NewScriptHandler(agents.NewScriptGenerator(provider)),
		a.tabs,
		commands.NewHelpHandler(registry),
	)
	a.router = commands.NewRouter(registry, logger)
	return a, nil
}

// openMemoryRepository selects the persistence backend named by
// MEMORY_BACKEND. The returned closer may be nil.
func openMemoryRepository(ctx context.Context, cfg config.Config, migrate bool) (store.Repository, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.MemoryBackend)) {
	case "", "file":
		repo, err := file.New(cfg.MemoryFile)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	case "memory":
		return inmem.New(), nil, nil
	case "postgres":
		if migrate {
			if err := postgres.EnsureSchema(ctx, cfg.PostgresURL); err != nil {
				return nil, nil, fmt.Errorf("apply schema: %w", err)
			}
		}
		repo, err := postgres.New(cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case "sqlite":
		repo, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.MemoryBackend)
	}
}
