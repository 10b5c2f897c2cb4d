// Copyright 2024-2026 Aiku AI

// Package commands resolves "!name args" lines in chat messages into
// registered handlers.
package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/aiku/sockbot-mattermost/pkg/connector"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// DefaultPrefix marks a line as a command when no prefix is configured.
const DefaultPrefix = "!"

// Invocation is one command line found in a message.
type Invocation struct {
	Name string
	Args []string
	IDs  connector.RoutingContext

	reply connector.ReplyFunc
}

// Reply posts content back to the topic the command came from.
func (inv *Invocation) Reply(ctx context.Context, content string) error {
	return inv.reply(ctx, content)
}

// Handler runs a command invocation.
type Handler func(ctx context.Context, inv *Invocation) error

type entry struct {
	help    string
	handler Handler
}

// Registry implements connector.Commands over a set of named handlers.
type Registry struct {
	prefix string

	mu       sync.RWMutex
	handlers map[string]entry
	log      zerolog.Logger
}

var _ connector.Commands = (*Registry)(nil)

// NewRegistry creates a registry with the built-in help command.
func NewRegistry(prefix string, log zerolog.Logger) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	r := &Registry{
		prefix:   prefix,
		handlers: make(map[string]entry),
		log:      log.With().Str("component", "commands").Logger(),
	}
	r.handlers["help"] = entry{help: "list available commands", handler: r.help}
	return r
}

// Register adds a handler. Names are case-insensitive; registering an
// existing name replaces it.
func (r *Registry) Register(name, help string, h Handler) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("invalid command name %q", name)
	}
	if h == nil {
		return fmt.Errorf("command %q has no handler", name)
	}
	r.mu.Lock()
	r.handlers[name] = entry{help: help, handler: h}
	r.mu.Unlock()
	return nil
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Parse extracts the command lines of text.
func (r *Registry) Parse(text string) []Invocation {
	var out []Invocation
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, r.prefix) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, r.prefix))
		if len(fields) == 0 {
			continue
		}
		out = append(out, Invocation{Name: strings.ToLower(fields[0]), Args: fields[1:]})
	}
	return out
}

// Get resolves text into a command that runs every command line in order.
// It returns a nil command when text has no command lines.
func (r *Registry) Get(_ context.Context, ids connector.RoutingContext, text string, reply connector.ReplyFunc) (connector.Command, error) {
	invocations := r.Parse(text)
	if len(invocations) == 0 {
		return nil, nil
	}
	for i := range invocations {
		invocations[i].IDs = ids
		invocations[i].reply = reply
	}
	return connector.CommandFunc(func(ctx context.Context) error {
		var errs []error
		for i := range invocations {
			if err := r.run(ctx, &invocations[i]); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}), nil
}

func (r *Registry) run(ctx context.Context, inv *Invocation) error {
	r.mu.RLock()
	e, ok := r.handlers[inv.Name]
	r.mu.RUnlock()
	if !ok {
		r.log.Debug().Str("command", inv.Name).Msg("Unknown command")
		return inv.Reply(ctx, fmt.Sprintf("Unknown command %q. Try %shelp", inv.Name, r.prefix))
	}
	r.log.Debug().
		Str("command", inv.Name).
		Int("post_id", inv.IDs.PostID).
		Str("user_id", inv.IDs.UserID).
		Msg("Running command")
	if err := e.handler(ctx, inv); err != nil {
		return fmt.Errorf("command %s: %w", inv.Name, err)
	}
	return nil
}

func (r *Registry) help(ctx context.Context, inv *Invocation) error {
	var b strings.Builder
	b.WriteString("Available commands:")
	r.mu.RLock()
	for _, name := range r.namesLocked() {
		fmt.Fprintf(&b, "\n- %s%s: %s", r.prefix, name, r.handlers[name].help)
	}
	r.mu.RUnlock()
	return inv.Reply(ctx, b.String())
}

func (r *Registry) namesLocked() []string {
	names := lo.Keys(r.handlers)
	slices.Sort(names)
	return names
}
