package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/browsercontext"
)

// Handler is the unit the router dispatches to. Handle must not panic or
// return raw errors; failures become a Result with Success false.
type Handler interface {
	Command() string
	Description() string
	Help(subcommand string) string
	Handle(ctx context.Context, args string) Result
}

// ContextAware handlers receive the browser context parsed from the request
// they are serving. The router prefers HandleWithContext when available.
type ContextAware interface {
	Handler
	HandleWithContext(ctx context.Context, args string, page *browsercontext.Context) Result
}

var ErrDuplicateCommand = errors.New("command already registered")

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(handler Handler) error {
	name := strings.ToLower(strings.TrimSpace(handler.Command()))
	if name == "" {
		return errors.New("command name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.handlers[name] = handler
	return nil
}

func (r *Registry) MustRegister(handlers ...Handler) {
	for _, handler := range handlers {
		if err := r.Register(handler); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[strings.ToLower(name)]
	return handler, ok
}

// Commands maps "/name" to the handler description.
func (r *Registry) Commands() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.handlers))
	for name, handler := range r.handlers {
		out["/"+name] = handler.Description()
	}
	return out
}

// Names returns the registered command names in lexicographic order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
