package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API used by the browser extension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), addr, migrate)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":$COMMAND_CENTER_PORT\")")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the Postgres schema before starting")
	return cmd
}

func runServe(parent context.Context, addr string, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := notifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx, cfg, logger, buildOptions{migrate: migrate})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close resources", zap.Error(err))
		}
	}()

	if addr == "" {
		addr = fmt.Sprintf(":%s", cfg.Port)
	}
	logger.Info("command center listening",
		zap.String("addr", addr),
		zap.String("memory_backend", cfg.MemoryBackend),
		zap.String("llm_provider", cfg.LLMProvider),
	)
	if err := newServer(a, logger).Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("command center stopped")
	return nil
}
