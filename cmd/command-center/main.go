package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/api"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/config"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/logging"
)

type server interface {
	Start(ctx context.Context, addr string) error
}

type renderer interface {
	Render(markdown string) (string, error)
}

var (
	loadConfig = func() (config.Config, error) {
		if err := config.LoadDotEnv(); err != nil {
			return config.Config{}, err
		}
		return config.Load(), nil
	}
	newLogger      = logging.New
	openRepository = openMemoryRepository
	newProvider    = llm.NewProvider
	dialTemporal   = client.Dial
	newServer      = func(a *app, logger *zap.Logger) server {
		srv := api.NewServer(a.router, a.memories, a.memoryHandler, a.tabs, a.broker, logger)
		for name, probe := range a.probes {
			srv.AddProbe(name, probe)
		}
		return srv
	}
	newRenderer = func() (renderer, error) {
		return glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
	}
	notifyContext = signal.NotifyContext
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "command-center",
		Short: "AI command center for chat, web research and a personal knowledge base",
		Long: `command-center routes slash commands (/web, /chat, /memory, /script,
/analyze_tabs, /help) to AI-backed handlers. Run "serve" for the HTTP API used
by the browser extension, or "route" to execute a single command from the shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newRouteCmd())
	return root
}
