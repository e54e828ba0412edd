package commands

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/browsercontext"
)

const (
	HelpCommand = "help"
	ChatCommand = "chat"
)

// Router is safe for concurrent use: the browser context is parsed per call
// and handed to the handler explicitly rather than kept on the router.
type Router struct {
	registry *Registry
	logger   *zap.Logger
}

func NewRouter(registry *Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{registry: registry, logger: logger}
}

func (r *Router) Registry() *Registry {
	return r.registry
}

func (r *Router) Route(ctx context.Context, query string) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("command handler panicked", zap.Any("panic", recovered), zap.String("query", clipQuery(query)))
			result = Fail(fmt.Sprintf("❌ Error: %v", recovered), fmt.Sprint(recovered), nil)
		}
	}()

	text, page := browsercontext.Parse(strings.TrimSpace(query))
	if page != nil {
		r.logger.Debug("extracted browser context",
			zap.String("command", clipQuery(text)),
			zap.String("url", page.URL),
			zap.Int("dom_elements", len(page.DOMElements)),
		)
	}

	if !strings.HasPrefix(text, "/") {
		chat, ok := r.registry.Lookup(ChatCommand)
		if !ok {
			return Fail("❌ Chat is not available.", "chat handler not registered", nil)
		}
		return r.dispatch(ctx, chat, text, page)
	}

	name, args := splitCommand(text[1:])
	if name == "" {
		help, ok := r.registry.Lookup(HelpCommand)
		if !ok {
			return Fail("❌ Help is not available.", "help handler not registered", nil)
		}
		return r.dispatch(ctx, help, "", page)
	}

	handler, ok := r.registry.Lookup(name)
	if !ok {
		r.logger.Info("unknown command", zap.String("command", name))
		return Fail(
			fmt.Sprintf("❌ Unknown command: /%s\n\nUse /help to see available commands.", name),
			fmt.Sprintf("Unknown command: %s", name),
			nil,
		)
	}
	return r.dispatch(ctx, handler, args, page)
}

func (r *Router) dispatch(ctx context.Context, handler Handler, args string, page *browsercontext.Context) Result {
	var result Result
	if aware, ok := handler.(ContextAware); ok {
		result = aware.HandleWithContext(ctx, args, page)
	} else {
		result = handler.Handle(ctx, args)
	}
	result.Metadata = ensureMetadata(result.Metadata)
	if _, ok := result.Metadata["command"]; !ok {
		result.Metadata["command"] = handler.Command()
	}
	return result
}

// splitCommand splits "name rest of args" on the first run of whitespace.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return strings.ToLower(text), ""
	}
	return strings.ToLower(text[:idx]), strings.TrimSpace(text[idx:])
}

const maxLoggedQuery = 120

// clipQuery keeps log fields short without splitting a rune.
func clipQuery(query string) string {
	runes := []rune(query)
	if len(runes) > maxLoggedQuery {
		return string(runes[:maxLoggedQuery])
	}
	return query
}
