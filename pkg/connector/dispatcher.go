// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// notificationsKey is the subscription key the dispatcher uses on its
// event source.
const notificationsKey = "notifications"

// DefaultCommandTimeout bounds command resolution and execution when no
// timeout is configured.
const DefaultCommandTimeout = 30 * time.Second

// dispatchedEventTypes lists the WebSocket events that carry chat messages.
// Everything else Mattermost sends is dropped without being classified.
var dispatchedEventTypes = []model.WebsocketEventType{
	model.WebsocketEventPosted,
}

// ReplyRouter sends a command reply to a topic on behalf of a post.
type ReplyRouter func(ctx context.Context, topicID string, postID int, content string) error

// DispatcherConfig holds the collaborators of a Dispatcher.
type DispatcherConfig struct {
	Classifier *Classifier
	History    *PostHistory
	Bus        *EventBus
	Commands   Commands
	Reply      ReplyRouter

	// SelfUserID is the bot's Mattermost user id; its own posts are ignored.
	SelfUserID string
	// BotPrefix marks usernames of other bots whose posts are ignored.
	BotPrefix      string
	CommandTimeout time.Duration
}

// Dispatcher listens for inbound messages, emits notification events,
// records posts in the history and routes each message to the command
// resolver exactly once. Events are handled one at a time in delivery order.
type Dispatcher struct {
	source EventSource
	cfg    DispatcherConfig

	mu     sync.Mutex
	active bool
	log    zerolog.Logger
}

// NewDispatcher creates an inactive dispatcher reading from source.
func NewDispatcher(source EventSource, cfg DispatcherConfig, log zerolog.Logger) *Dispatcher {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	return &Dispatcher{
		source: source,
		cfg:    cfg,
		log:    log.With().Str("component", "notifications").Logger(),
	}
}

// Activate subscribes to the event source. Calling it while active is a no-op.
func (d *Dispatcher) Activate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return
	}
	if !d.source.Subscribe(notificationsKey, d.onEvent) {
		d.log.Warn().Msg("Notification handler already subscribed")
	}
	d.active = true
	d.log.Info().Msg("Notifications activated: now listening for new notifications")
}

// Deactivate unsubscribes from the event source. Calling it while inactive
// is a no-op.
func (d *Dispatcher) Deactivate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return
	}
	d.source.Unsubscribe(notificationsKey)
	d.active = false
	d.log.Info().Msg("Notifications deactivated: no longer listening for new notifications")
}

// Active reports whether the dispatcher is subscribed.
func (d *Dispatcher) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// onEvent is the subscribed handler. Failures are logged so that one bad
// event never ends the subscription.
func (d *Dispatcher) onEvent(ctx context.Context, evt *model.WebSocketEvent) {
	if err := d.HandleEvent(ctx, evt); err != nil {
		d.log.Warn().Err(err).
			Str("event_type", string(evt.EventType())).
			Msg("Failed to dispatch notification")
	}
}

// HandleEvent runs the full pipeline for one inbound event: filter, echo
// prevention, classify, emit, save, resolve and execute. It returns nil for
// events that are dropped on purpose. Replayed events are dispatched again;
// there is no deduplication.
func (d *Dispatcher) HandleEvent(ctx context.Context, evt *model.WebSocketEvent) error {
	if evt == nil || !lo.Contains(dispatchedEventTypes, evt.EventType()) {
		eventsDropped.WithLabelValues("filtered").Inc()
		return nil
	}

	payload, err := decodePostedEvent(evt)
	if err != nil {
		return d.fail(err)
	}
	if reason := d.skipReason(payload); reason != "" {
		eventsDropped.WithLabelValues(reason).Inc()
		d.log.Debug().
			Str("post_id", payload.ID).
			Str("user_id", payload.User).
			Str("reason", reason).
			Msg("Skipping post")
		return nil
	}

	notification, err := d.cfg.Classifier.classifyPayload(payload)
	if err != nil {
		return d.fail(err)
	}
	return d.dispatch(ctx, notification)
}

// skipReason returns why a post must not be dispatched, or "" to proceed.
// Posts without text, such as attachment-only posts, are skipped; a post
// without an author is left to the classifier to reject.
func (d *Dispatcher) skipReason(payload *MessagePayload) string {
	switch {
	case d.cfg.SelfUserID != "" && payload.User == d.cfg.SelfUserID:
		return "own_post"
	case payload.Type != "" && payload.Type != model.PostTypeDefault:
		return "system_post"
	case payload.SenderName != "" && isBotUsername(payload.SenderName, d.cfg.BotPrefix):
		return "bot_post"
	case payload.Text == "" && payload.User != "":
		return "empty_message"
	default:
		return ""
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, n *Notification) error {
	d.log.Debug().
		Str("notification_id", n.id).
		Str("type", string(n.typ)).
		Str("channel_id", n.TopicID()).
		Str("user_id", n.userID).
		Msg("Notification received")

	if d.cfg.Bus != nil {
		d.cfg.Bus.Emit(ctx, NotificationEvent(n.typ), n)
		d.cfg.Bus.Emit(ctx, EventNotification, n)
	}

	// The emitted notification is shared with listeners and stays unsaved;
	// routing uses the saved copy's id.
	postID := d.cfg.History.Save(n.post)
	notificationsDispatched.WithLabelValues(string(n.typ)).Inc()

	if d.cfg.Commands == nil {
		return nil
	}
	ids := RoutingContext{
		PostID:  postID,
		TopicID: n.TopicID(),
		UserID:  n.userID,
		Room:    RoomNone,
	}
	if err := d.runCommand(ctx, ids, n.Text()); err != nil {
		return d.fail(err)
	}
	return nil
}

// runCommand resolves and executes the command for text under the command
// timeout. A command that ignores its context is abandoned when the timeout
// expires so the next event can be handled.
func (d *Dispatcher) runCommand(ctx context.Context, ids RoutingContext, text string) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.CommandTimeout)
	defer cancel()

	reply := func(ctx context.Context, content string) error {
		if d.cfg.Reply == nil {
			return errUnbound("notification.reply")
		}
		return d.cfg.Reply(ctx, ids.TopicID, ids.PostID, content)
	}

	start := time.Now()
	defer func() {
		commandDuration.Observe(time.Since(start).Seconds())
	}()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- downstream("command.execute", fmt.Errorf("command panicked: %v", r))
			}
		}()
		cmd, err := d.cfg.Commands.Get(ctx, ids, text, reply)
		if err != nil {
			done <- downstream("command.resolve", err)
			return
		}
		if cmd == nil {
			done <- nil
			return
		}
		if err := cmd.Execute(ctx); err != nil {
			done <- downstream("command.execute", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &Error{Kind: KindDownstream, Op: "command.execute", Code: "E_TIMEOUT", Err: ctx.Err()}
	}
}

func (d *Dispatcher) fail(err error) error {
	dispatchFailures.WithLabelValues(string(errorKind(err))).Inc()
	return err
}

// isBotUsername returns true if the username belongs to bridge or bot
// infrastructure whose posts should never trigger commands.
func isBotUsername(username, botPrefix string) bool {
	switch {
	case username == "mattermost-bridge":
		return true
	case strings.HasPrefix(username, "mattermost_"):
		return true
	case botPrefix != "" && strings.HasPrefix(username, botPrefix):
		return true
	default:
		return false
	}
}
