// Copyright 2024-2026 Aiku AI

package connector

import (
	"fmt"
	"sync"
)

// PostHistory is an append-only, process-local table of posts observed by
// the bot. Mattermost post ids are opaque strings, while the forum framework
// addresses posts by integer, so every saved post gets the next sequential id.
// Ids start at 1 and are never reused.
type PostHistory struct {
	mu     sync.RWMutex
	posts  map[int]Post
	nextID int
}

// NewPostHistory creates an empty history.
func NewPostHistory() *PostHistory {
	return &PostHistory{
		posts:  make(map[int]Post),
		nextID: 1,
	}
}

// Save stores a snapshot of post under the next id and returns that id.
// The stored snapshot carries the assigned id.
func (h *PostHistory) Save(post Post) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	post.ID = id
	h.posts[id] = post
	return id
}

// Get returns the post saved under id.
func (h *PostHistory) Get(id int) (Post, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	post, ok := h.posts[id]
	if !ok {
		return Post{}, &Error{Kind: KindNotFound, Op: "post.get", Err: fmt.Errorf("no post with id %d", id)}
	}
	return post, nil
}

// Len returns the number of saved posts.
func (h *PostHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.posts)
}

// Reset drops every saved post and restarts id assignment at 1.
// Only meant for teardown; the forum never calls it while active.
func (h *PostHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.posts = make(map[int]Post)
	h.nextID = 1
}
