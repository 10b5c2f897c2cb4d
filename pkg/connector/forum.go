// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// UserAgent identifies the provider to the framework.
const UserAgent = "Sockbot Mattermost Edition"

// Plugin is a bot feature that is switched on and off with the forum.
type Plugin interface {
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

// PluginFactory builds a plugin bound to a forum from its configuration.
type PluginFactory func(forum *Forum, config map[string]any) (Plugin, error)

var errInvalidPlugin = errors.New("generated plugin is invalid")

// Forum connects the bot framework to a Mattermost server. It owns the
// session, the post history, the event bus, the notification dispatcher and
// the registered plugins.
type Forum struct {
	Config Config

	session       *Session
	history       *PostHistory
	bus           *EventBus
	commands      Commands
	notifications *Dispatcher
	me            *User

	pluginMu sync.Mutex
	plugins  []Plugin

	activeMu    sync.Mutex
	active      bool
	adminServer *http.Server

	log zerolog.Logger
}

// NewForum creates a forum connector. commands resolves message text into
// commands and may be nil, in which case messages are only recorded and
// emitted.
func NewForum(cfg Config, commands Commands, log zerolog.Logger) *Forum {
	return &Forum{
		Config:   cfg,
		history:  NewPostHistory(),
		bus:      NewEventBus(log),
		commands: commands,
		log:      log.With().Str("component", "forum").Logger(),
	}
}

// Login connects to Mattermost with the configured token and resolves the
// bot user.
func (f *Forum) Login(ctx context.Context) error {
	if err := f.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	session := NewSession(f.Config.ServerURL, f.Config.Token, f.log)
	if err := session.Connect(ctx); err != nil {
		return err
	}
	return f.attachSession(ctx, session)
}

// attachSession binds a connected session and loads the bot user.
func (f *Forum) attachSession(ctx context.Context, session *Session) error {
	f.session = session
	me, err := f.GetUser(ctx, session.UserID())
	if err != nil {
		return fmt.Errorf("failed to load bot user: %w", err)
	}
	f.me = me
	f.log.Info().
		Str("username", me.Username).
		Str("user_id", me.ID).
		Msg("Logged in")
	return nil
}

// AddPlugin builds a plugin and registers it. Plugins added while the forum
// is active are activated on the next Activate.
func (f *Forum) AddPlugin(factory PluginFactory, config map[string]any) error {
	if factory == nil {
		return errInvalidPlugin
	}
	plugin, err := factory(f, config)
	if err != nil {
		return fmt.Errorf("failed to create plugin: %w", err)
	}
	if plugin == nil {
		return errInvalidPlugin
	}
	f.pluginMu.Lock()
	f.plugins = append(f.plugins, plugin)
	f.pluginMu.Unlock()
	return nil
}

// Activate starts notification dispatch, the admin API and every plugin.
// The forum must be logged in.
func (f *Forum) Activate(ctx context.Context) error {
	f.activeMu.Lock()
	defer f.activeMu.Unlock()
	if f.active {
		return nil
	}
	if f.session == nil {
		return &Error{Kind: KindDownstream, Op: "forum.activate", Code: "E_NOT_LOGGED_IN"}
	}

	if f.notifications == nil {
		f.notifications = NewDispatcher(f.session, DispatcherConfig{
			Classifier: &Classifier{
				SelfID:     f.Username(),
				IgnoreCase: f.Config.MentionIgnoreCase,
				forum:      f,
			},
			History:  f.history,
			Bus:      f.bus,
			Commands: f.commands,
			Reply: func(ctx context.Context, topicID string, postID int, content string) error {
				_, err := f.ReplyTo(ctx, topicID, postID, content)
				return err
			},
			SelfUserID:     f.session.UserID(),
			BotPrefix:      f.Config.BotPrefix,
			CommandTimeout: f.Config.CommandTimeoutDuration(),
		}, f.log)
	}
	f.notifications.Activate()

	if f.Config.AdminAPIAddr != "" {
		f.startAdminAPI(f.Config.AdminAPIAddr)
	}

	f.pluginMu.Lock()
	plugins := append([]Plugin(nil), f.plugins...)
	f.pluginMu.Unlock()
	for i, plugin := range plugins {
		if err := plugin.Activate(ctx); err != nil {
			err = fmt.Errorf("failed to activate plugin %d: %w", i, err)
			return errors.Join(err, f.rollback(ctx, plugins[:i]))
		}
	}

	f.active = true
	f.log.Info().Int("plugins", len(plugins)).Msg("Forum activated")
	return nil
}

// Deactivate stops plugins, notification dispatch and the admin API.
// It is safe to call on a forum that was never activated.
func (f *Forum) Deactivate(ctx context.Context) error {
	f.activeMu.Lock()
	defer f.activeMu.Unlock()

	var errs []error
	f.pluginMu.Lock()
	plugins := append([]Plugin(nil), f.plugins...)
	f.pluginMu.Unlock()
	if f.active {
		for i := len(plugins) - 1; i >= 0; i-- {
			if err := plugins[i].Deactivate(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to deactivate plugin %d: %w", i, err))
			}
		}
	}

	if f.notifications != nil {
		f.notifications.Deactivate()
	}
	if err := f.stopAdminAPI(ctx); err != nil {
		errs = append(errs, err)
	}
	f.active = false
	return errors.Join(errs...)
}

// rollback undoes a partial Activate: the already activated plugins are
// deactivated in reverse order, then dispatch and the admin API stop.
// The caller holds activeMu.
func (f *Forum) rollback(ctx context.Context, activated []Plugin) error {
	var errs []error
	for i := len(activated) - 1; i >= 0; i-- {
		if err := activated[i].Deactivate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to deactivate plugin %d: %w", i, err))
		}
	}
	f.notifications.Deactivate()
	if err := f.stopAdminAPI(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (f *Forum) stopAdminAPI(ctx context.Context) error {
	if f.adminServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := f.adminServer.Shutdown(shutdownCtx)
	f.adminServer = nil
	if err != nil {
		return fmt.Errorf("failed to stop admin API: %w", err)
	}
	return nil
}

// Close deactivates the forum and disconnects from Mattermost.
func (f *Forum) Close(ctx context.Context) error {
	err := f.Deactivate(ctx)
	if f.session != nil {
		f.session.Disconnect()
	}
	return err
}

// Active reports whether the forum is activated.
func (f *Forum) Active() bool {
	f.activeMu.Lock()
	defer f.activeMu.Unlock()
	return f.active
}

// On registers a listener on the forum event bus, e.g. for
// NotificationEvent(NotificationTypeMention).
func (f *Forum) On(event string, fn Listener) (off func()) {
	return f.bus.On(event, fn)
}

// Emit emits an event on the forum event bus.
func (f *Forum) Emit(ctx context.Context, event string, payload any) int {
	return f.bus.Emit(ctx, event, payload)
}

// History returns the post history owned by the forum.
func (f *Forum) History() *PostHistory {
	return f.history
}

// Username is the name the bot is mentioned by: the configured username, or
// the logged in account's username.
func (f *Forum) Username() string {
	if f.Config.Username != "" {
		return f.Config.Username
	}
	if f.session != nil {
		return f.session.Username()
	}
	return ""
}

// Owner is the username of the bot's owner.
func (f *Forum) Owner() string {
	return f.Config.Owner
}

func (f *Forum) UserAgent() string {
	return UserAgent
}

// URL is the Mattermost server URL.
func (f *Forum) URL() string {
	return f.Config.ServerURL
}

// User returns the logged in bot user.
func (f *Forum) User() (*User, error) {
	if f.me == nil {
		return nil, &Error{Kind: KindDownstream, Op: "forum.user", Code: "E_NOT_LOGGED_IN"}
	}
	return f.me, nil
}

func (f *Forum) requireSession(op string) (*Session, error) {
	if f.session == nil || !f.session.IsLoggedIn() {
		return nil, &Error{Kind: KindDownstream, Op: op, Code: "E_NOT_LOGGED_IN"}
	}
	return f.session, nil
}

func errUnbound(op string) error {
	return &Error{Kind: KindDownstream, Op: op, Code: "E_NOT_BOUND"}
}
