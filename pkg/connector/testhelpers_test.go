// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
)

// endpointCall records which API endpoints were hit during a test.
type endpointCall struct {
	Method string
	Path   string
	Body   string
}

// fakeMM wraps an httptest.Server simulating the parts of the Mattermost
// API the forum uses. It records calls and serves canned responses.
type fakeMM struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls []endpointCall

	// Users maps user ID to model.User for GetUser/GetMe responses.
	Users map[string]*model.User
	// TokenToUser maps bearer tokens to user IDs for GetMe auth.
	TokenToUser map[string]string
	// Channels maps channel ID to model.Channel.
	Channels map[string]*model.Channel
	// Teams maps user ID to team list.
	Teams map[string][]*model.Team
	// FailEndpoints causes specific path substrings to return 500.
	FailEndpoints map[string]bool
	// RejectEmptyPosts makes POST /posts fail like a server that refuses
	// posts without a message.
	RejectEmptyPosts bool
}

func newFakeMM() *fakeMM {
	f := &fakeMM{
		Users:         make(map[string]*model.User),
		TokenToUser:   make(map[string]string),
		Channels:      make(map[string]*model.Channel),
		Teams:         make(map[string][]*model.Team),
		FailEndpoints: make(map[string]bool),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	return f
}

func (f *fakeMM) Close() {
	f.Server.Close()
}

func (f *fakeMM) record(method, path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpointCall{Method: method, Path: path, Body: body})
}

func (f *fakeMM) Calls() []endpointCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]endpointCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// FindCall returns the first recorded call with the given method whose path
// contains path.
func (f *fakeMM) FindCall(method, path string) (endpointCall, bool) {
	for _, c := range f.Calls() {
		if c.Method == method && strings.Contains(c.Path, path) {
			return c, true
		}
	}
	return endpointCall{}, false
}

// Fail makes every path containing substr return 500.
func (f *fakeMM) Fail(substr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailEndpoints[substr] = true
}

// RejectEmpty makes the server refuse posts without a message.
func (f *fakeMM) RejectEmpty() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RejectEmptyPosts = true
}

func (f *fakeMM) shouldFail(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for substr := range f.FailEndpoints {
		if strings.Contains(path, substr) {
			return true
		}
	}
	return false
}

func (f *fakeMM) rejectsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RejectEmptyPosts
}

func (f *fakeMM) resolveToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	for tok, uid := range f.TokenToUser {
		if auth == "BEARER "+tok || auth == "Bearer "+tok {
			return uid
		}
	}
	return ""
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"message": msg, "status_code": status})
}

func (f *fakeMM) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.record(r.Method, r.URL.Path, string(body))

	if f.shouldFail(r.URL.Path) {
		writeStatus(w, http.StatusInternalServerError, "fake error")
		return
	}

	path := r.URL.Path
	rest := func(prefix string) string { return strings.TrimPrefix(path, prefix) }

	switch {
	// GET /api/v4/users/me
	case r.Method == http.MethodGet && path == "/api/v4/users/me":
		uid := f.resolveToken(r)
		if uid == "" {
			writeStatus(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if u, ok := f.Users[uid]; ok {
			_ = json.NewEncoder(w).Encode(u)
			return
		}
		writeStatus(w, http.StatusNotFound, "user not found")

	// GET /api/v4/users/username/{username}
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/api/v4/users/username/"):
		name := rest("/api/v4/users/username/")
		for _, u := range f.Users {
			if u.Username == name {
				_ = json.NewEncoder(w).Encode(u)
				return
			}
		}
		writeStatus(w, http.StatusNotFound, "user not found")

	// GET /api/v4/users/{user_id}/teams
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/api/v4/users/") && strings.HasSuffix(path, "/teams"):
		uid := strings.TrimSuffix(rest("/api/v4/users/"), "/teams")
		if teams, ok := f.Teams[uid]; ok {
			_ = json.NewEncoder(w).Encode(teams)
			return
		}
		_ = json.NewEncoder(w).Encode([]*model.Team{})

	// GET /api/v4/users/{user_id}
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/api/v4/users/") && !strings.Contains(rest("/api/v4/users/"), "/"):
		if u, ok := f.Users[rest("/api/v4/users/")]; ok {
			_ = json.NewEncoder(w).Encode(u)
			return
		}
		writeStatus(w, http.StatusNotFound, "user not found")

	// GET /api/v4/teams/{team_id}/channels/name/{channel_name}
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/api/v4/teams/") && strings.Contains(path, "/channels/name/"):
		name := path[strings.LastIndex(path, "/")+1:]
		for _, ch := range f.Channels {
			if ch.Name == name {
				_ = json.NewEncoder(w).Encode(ch)
				return
			}
		}
		writeStatus(w, http.StatusNotFound, "channel not found")

	// POST /api/v4/posts
	case r.Method == http.MethodPost && path == "/api/v4/posts":
		var post model.Post
		_ = json.Unmarshal(body, &post)
		if f.rejectsEmpty() && post.Message == "" {
			writeStatus(w, http.StatusBadRequest, "no_text")
			return
		}
		post.Id = "created-post-id"
		post.CreateAt = 1000
		_ = json.NewEncoder(w).Encode(&post)

	// PUT /api/v4/posts/{post_id}/patch
	case r.Method == http.MethodPut && strings.HasSuffix(path, "/patch"):
		var patch model.PostPatch
		_ = json.Unmarshal(body, &patch)
		postID := strings.TrimSuffix(rest("/api/v4/posts/"), "/patch")
		out := &model.Post{Id: postID, ChannelId: "C1", UserId: "U1"}
		if patch.Message != nil {
			out.Message = *patch.Message
		}
		_ = json.NewEncoder(w).Encode(out)

	// DELETE /api/v4/posts/{post_id}
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/api/v4/posts/"):
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})

	// POST /api/v4/channels/members/{user_id}/view
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/api/v4/channels/members/") && strings.HasSuffix(path, "/view"):
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})

	// POST /api/v4/channels/{channel_id}/members
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/api/v4/channels/") && strings.HasSuffix(path, "/members"):
		chID := strings.TrimSuffix(rest("/api/v4/channels/"), "/members")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(&model.ChannelMember{ChannelId: chID})

	// DELETE /api/v4/channels/{channel_id}/members/{user_id}
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/api/v4/channels/") && strings.Contains(path, "/members/"):
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})

	// GET /api/v4/channels/{channel_id}
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/api/v4/channels/") && !strings.Contains(rest("/api/v4/channels/"), "/"):
		if ch, ok := f.Channels[rest("/api/v4/channels/")]; ok {
			_ = json.NewEncoder(w).Encode(ch)
			return
		}
		writeStatus(w, http.StatusNotFound, "channel not found")

	default:
		writeStatus(w, http.StatusNotFound, "not found: "+path)
	}
}

// newWebSocketEvent creates a model.WebSocketEvent for testing handlers.
func newWebSocketEvent(eventType model.WebsocketEventType, channelID string, data map[string]any) *model.WebSocketEvent {
	evt := model.NewWebSocketEvent(eventType, "", channelID, "", nil, "")
	return evt.SetData(data)
}

// newPostedEvent builds a "posted" event carrying post as JSON, the way
// Mattermost sends it.
func newPostedEvent(t *testing.T, post *model.Post, senderName string) *model.WebSocketEvent {
	t.Helper()
	raw, err := json.Marshal(post)
	if err != nil {
		t.Fatalf("marshal post: %v", err)
	}
	data := map[string]any{"post": string(raw)}
	if senderName != "" {
		data["sender_name"] = senderName
	}
	return newWebSocketEvent(model.WebsocketEventPosted, post.ChannelId, data)
}

// newTestFM starts a fake server with the bot user "bot1" (id B1) in team
// T1, channel C1 and a regular user U1 (alice).
func newTestFM(t *testing.T) *fakeMM {
	t.Helper()
	fm := newFakeMM()
	t.Cleanup(fm.Close)
	fm.Users["B1"] = &model.User{Id: "B1", Username: "bot1"}
	fm.Users["U1"] = &model.User{Id: "U1", Username: "alice", FirstName: "Alice", LastName: "Liddell", Nickname: "al"}
	fm.TokenToUser["test-token"] = "B1"
	fm.Teams["B1"] = []*model.Team{{Id: "T1", Name: "team"}}
	fm.Channels["C1"] = &model.Channel{
		Id:          "C1",
		Name:        "town-square",
		DisplayName: "Town Square",
		CreatorId:   "U1",
		CreateAt:    1000,
		LastPostAt:  5000,
		TeamId:      "T1",
	}
	return fm
}

// newTestForum returns a forum logged in to fm as bot1. The WebSocket is not
// opened; tests deliver events straight to the dispatcher.
func newTestForum(t *testing.T, fm *fakeMM, cfg Config) *Forum {
	t.Helper()
	cfg.ServerURL = fm.Server.URL
	cfg.Token = "test-token"
	f := NewForum(cfg, nil, zerolog.Nop())
	client := model.NewAPIv4Client(fm.Server.URL)
	client.SetToken("test-token")
	s := newSession(client, fm.Server.URL, zerolog.Nop())
	if err := s.authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := f.attachSession(context.Background(), s); err != nil {
		t.Fatalf("attachSession: %v", err)
	}
	return f
}
