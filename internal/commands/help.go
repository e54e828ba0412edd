package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type HelpHandler struct {
	registry *Registry
}

func NewHelpHandler(registry *Registry) *HelpHandler {
	return &HelpHandler{registry: registry}
}

func (h *HelpHandler) Command() string { return HelpCommand }

func (h *HelpHandler) Description() string { return "Show available commands and usage" }

// Help returns detailed help for a registered command, or the general listing.
func (h *HelpHandler) Help(subcommand string) string {
	if subcommand != "" && subcommand != HelpCommand {
		if handler, ok := h.registry.Lookup(subcommand); ok {
			return handler.Help("")
		}
	}

	commands := h.registry.Commands()
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("🚀 **Universal Command Center**\n\nAvailable commands:\n\n")
	for _, name := range names {
		fmt.Fprintf(&b, "• **%s** - %s\n", name, commands[name])
	}
	b.WriteString("\n💡 **Tips:**\n")
	b.WriteString("• Follow help with a command name for detailed usage of that command\n")
	b.WriteString("• Messages without a leading slash go to AI chat\n")
	return b.String()
}

func (h *HelpHandler) Handle(ctx context.Context, args string) Result {
	subcommand := strings.ToLower(strings.TrimSpace(args))
	metadata := map[string]any{
		"command":  HelpCommand,
		"commands": h.sortedCommands(),
	}
	if subcommand != "" {
		metadata["subcommand"] = subcommand
	}
	return OK(h.Help(subcommand), metadata)
}

func (h *HelpHandler) sortedCommands() []string {
	names := h.registry.Names()
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = "/" + name
	}
	return out
}
