// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
)

// EventHandler receives raw Mattermost WebSocket events.
type EventHandler func(ctx context.Context, evt *model.WebSocketEvent)

// EventSource is a stream of raw Mattermost events that handlers can
// subscribe to under a unique key.
type EventSource interface {
	// Subscribe registers h under key. It returns false and leaves the
	// existing handler in place if key is already subscribed.
	Subscribe(key string, h EventHandler) bool
	// Unsubscribe removes the handler registered under key. It returns
	// false if nothing was registered.
	Unsubscribe(key string) bool
}

// Session is an authenticated Mattermost connection: a REST client for
// requests and a WebSocket for the inbound event stream.
type Session struct {
	client    *model.Client4
	serverURL string
	userID    string
	username  string
	teamID    string

	handlersMu sync.RWMutex
	handlers   map[string]EventHandler

	wsMu     sync.Mutex
	wsClient *model.WebSocketClient

	stopOnce sync.Once
	stopChan chan struct{}
	log      zerolog.Logger
}

var _ EventSource = (*Session)(nil)

// NewSession creates a session for the given server and access token. It
// does not contact the server until Connect is called.
func NewSession(serverURL, token string, log zerolog.Logger) *Session {
	client := model.NewAPIv4Client(serverURL)
	client.SetToken(token)
	return newSession(client, serverURL, log)
}

func newSession(client *model.Client4, serverURL string, log zerolog.Logger) *Session {
	return &Session{
		client:    client,
		serverURL: serverURL,
		handlers:  make(map[string]EventHandler),
		stopChan:  make(chan struct{}),
		log:       log.With().Str("component", "mm_session").Logger(),
	}
}

// Connect verifies the token, resolves the bot's team and opens the
// WebSocket. Events are delivered to subscribers one at a time, in the
// order Mattermost sends them, until Disconnect is called.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.authenticate(ctx); err != nil {
		return err
	}
	if err := s.connectWebSocket(); err != nil {
		return &Error{Kind: KindDownstream, Op: "session.connect", Err: err}
	}
	go s.listenWebSocket(ctx)
	return nil
}

func (s *Session) authenticate(ctx context.Context) error {
	if !s.IsLoggedIn() {
		return &Error{Kind: KindDownstream, Op: "session.connect", Code: "E_NOT_LOGGED_IN"}
	}

	s.log.Info().Str("server_url", s.serverURL).Msg("Connecting to Mattermost")

	me, resp, err := s.client.GetMe(ctx, "")
	if err != nil {
		return apiError("session.get_me", resp, err)
	}
	s.userID = me.Id
	s.username = me.Username
	s.log.Info().Str("user_id", me.Id).Str("username", me.Username).Msg("Authenticated")

	if s.teamID == "" {
		teams, resp, err := s.client.GetTeamsForUser(ctx, s.userID, "")
		if err != nil {
			return apiError("session.get_teams", resp, err)
		}
		if len(teams) > 0 {
			s.teamID = teams[0].Id
		}
	}
	return nil
}

var errSessionClosed = errors.New("session is disconnected")

func (s *Session) connectWebSocket() error {
	wsURL := httpToWS(s.serverURL)
	ws, err := model.NewWebSocketClient4(wsURL, s.client.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to create websocket client: %w", err)
	}
	ws.Listen()

	s.wsMu.Lock()
	if s.stopped() {
		s.wsMu.Unlock()
		ws.Close()
		return errSessionClosed
	}
	s.wsClient = ws
	s.wsMu.Unlock()

	s.log.Info().Str("ws_url", wsURL).Msg("WebSocket connected")
	return nil
}

// events returns the event channel of the current WebSocket, or nil when
// there is none.
func (s *Session) events() chan *model.WebSocketEvent {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	if s.wsClient == nil {
		return nil
	}
	return s.wsClient.EventChannel
}

func (s *Session) stopped() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

// httpToWS converts an HTTP(S) URL to a WS(S) URL.
func httpToWS(url string) string {
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	if strings.HasPrefix(url, "http://") {
		return "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url
}

func (s *Session) listenWebSocket(ctx context.Context) {
	events := s.events()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				if s.stopped() {
					return
				}
				s.log.Warn().Msg("WebSocket event channel closed, reconnecting")
				if err := s.connectWebSocket(); err != nil {
					s.log.Error().Err(err).Msg("Failed to reconnect WebSocket")
					return
				}
				events = s.events()
				continue
			}
			if evt == nil {
				continue
			}
			s.deliver(ctx, evt)
		}
	}
}

// deliver hands evt to every subscriber in key order. A panicking handler
// is logged and does not stop delivery to the others.
func (s *Session) deliver(ctx context.Context, evt *model.WebSocketEvent) {
	s.handlersMu.RLock()
	keys := make([]string, 0, len(s.handlers))
	for key := range s.handlers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	handlers := make([]EventHandler, len(keys))
	for i, key := range keys {
		handlers[i] = s.handlers[key]
	}
	s.handlersMu.RUnlock()

	for i, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().
						Str("handler", keys[i]).
						Str("event_type", string(evt.EventType())).
						Interface("panic", r).
						Msg("Event handler panicked")
				}
			}()
			h(ctx, evt)
		}()
	}
}

func (s *Session) Subscribe(key string, h EventHandler) bool {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	if _, ok := s.handlers[key]; ok {
		return false
	}
	s.handlers[key] = h
	return true
}

func (s *Session) Unsubscribe(key string) bool {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	if _, ok := s.handlers[key]; !ok {
		return false
	}
	delete(s.handlers, key)
	return true
}

// Disconnect closes the WebSocket connection and stops the event loop.
func (s *Session) Disconnect() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wsMu.Lock()
	ws := s.wsClient
	s.wsClient = nil
	s.wsMu.Unlock()
	if ws != nil {
		ws.Close()
	}
}

// IsLoggedIn reports whether the session holds an authentication token.
func (s *Session) IsLoggedIn() bool {
	return s.client != nil && s.client.AuthToken != ""
}

// UserID returns the Mattermost user id of the bot, known after Connect.
func (s *Session) UserID() string {
	return s.userID
}

// Username returns the Mattermost username of the bot, known after Connect.
func (s *Session) Username() string {
	return s.username
}

// PostMessage creates a post in channelID. A non-empty rootID makes it a
// thread reply.
func (s *Session) PostMessage(ctx context.Context, channelID, message, rootID string) (*model.Post, error) {
	created, resp, err := s.client.CreatePost(ctx, &model.Post{
		ChannelId: channelID,
		Message:   message,
		RootId:    rootID,
	})
	if err != nil {
		return nil, apiError("session.post_message", resp, err)
	}
	return created, nil
}
