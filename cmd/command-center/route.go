package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
)

func newRouteCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "route <query...>",
		Short: "Route a single command or chat message and print the result",
		Example: `  command-center route /help
  command-center route /web latest Go release
  command-center route --raw /memory list 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown without terminal rendering")
	return cmd
}

func runRoute(ctx context.Context, out io.Writer, query string, raw bool) error {
	if ctx == nil {
		ctx = context.Background()
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

	a, err := buildApp(ctx, cfg, logger, buildOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close resources", zap.Error(err))
		}
	}()

	result := a.router.Route(ctx, query)
	text := resultMarkdown(result)
	if !raw {
		text = render(text, logger)
	}
	if _, err := fmt.Fprintln(out, strings.TrimRight(text, "\n")); err != nil {
		return err
	}
	if !result.Success {
		if result.Error != "" {
			return errors.New(result.Error)
		}
		return errors.New("command failed")
	}
	return nil
}

func resultMarkdown(result commands.Result) string {
	if text := result.Text(); text != "" {
		return text
	}
	if result.Data == nil {
		return result.Error
	}
	encoded, err := json.MarshalIndent(result.Data, "", "  ")
	if err != nil {
		return fmt.Sprint(result.Data)
	}
	return "```json\n" + string(encoded) + "\n```"
}

// render falls back to the plain Markdown when the terminal renderer is
// unavailable.
func render(markdown string, logger *zap.Logger) string {
	r, err := newRenderer()
	if err != nil {
		logger.Debug("markdown renderer unavailable", zap.Error(err))
		return markdown
	}
	rendered, err := r.Render(markdown)
	if err != nil {
		logger.Debug("render markdown", zap.Error(err))
		return markdown
	}
	return rendered
}
