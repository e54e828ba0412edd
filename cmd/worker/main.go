package main

import (
	"errors"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/agents"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/config"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/logging"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/workflows"
)

var (
	loadConfig = func() (config.Config, error) {
		if err := config.LoadDotEnv(); err != nil {
			return config.Config{}, err
		}
		return config.Load(), nil
	}
	newLogger       = logging.New
	dialTemporal    = client.Dial
	newProvider     = llm.NewProvider
	newWorker       = worker.New
	workerInterrupt = worker.InterruptCh
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.TemporalAddress == "" {
		return errors.New("TEMPORAL_ADDRESS is required to run the page worker")
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	temporalClient, err := dialTemporal(client.Options{
		HostPort: cfg.TemporalAddress,
	})
	if err != nil {
		return err
	}
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	provider, err := newProvider(cfg.LLMConfig())
	if err != nil {
		return err
	}
	activities := workflows.NewPageActivities(agents.NewPageSummarizer(provider))

	w := newWorker(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.SummarizePageWorkflow)
	w.RegisterActivity(activities)

	logger.Info("page worker started",
		zap.String("task_queue", cfg.TemporalTaskQueue),
		zap.String("llm_provider", cfg.LLMProvider),
	)
	if err := w.Run(workerInterrupt()); err != nil {
		return err
	}

	return nil
}
