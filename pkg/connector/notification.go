// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"time"
)

// NotificationType is the kind of an inbound notification.
type NotificationType string

const (
	NotificationTypeNotification NotificationType = "notification"
	// NotificationTypeReply is part of the framework vocabulary but is never
	// produced: Mattermost posts are not classified as replies.
	NotificationTypeReply   NotificationType = "reply"
	NotificationTypeMention NotificationType = "mention"
)

// Event names emitted on the forum event bus for every dispatched message.
const (
	EventNotification = "notification"
)

// NotificationEvent returns the type-specific event name, e.g.
// "notification:mention".
func NotificationEvent(t NotificationType) string {
	return EventNotification + ":" + string(t)
}

// Notification is a classified inbound message. It is created per event and
// is not persisted; only its embedded post is saved.
type Notification struct {
	id     string
	typ    NotificationType
	body   string
	userID string
	date   time.Time
	post   Post
}

// ID is a random id useful for correlating logs; Mattermost has no
// notification ids.
func (n *Notification) ID() string {
	return n.id
}

func (n *Notification) Type() NotificationType {
	return n.typ
}

// Subtype is the same as Type.
func (n *Notification) Subtype() NotificationType {
	return n.typ
}

// PostID is the history id of the embedded post. The dispatcher saves a
// copy, so a dispatched notification keeps reporting 0.
func (n *Notification) PostID() int {
	return n.post.ID
}

func (n *Notification) TopicID() string {
	return n.post.TopicID
}

func (n *Notification) UserID() string {
	return n.userID
}

// Read is always true; chat messages have no unread notification state.
func (n *Notification) Read() bool {
	return true
}

func (n *Notification) Date() time.Time {
	return n.date
}

// Label is always empty.
func (n *Notification) Label() string {
	return ""
}

func (n *Notification) Body() string {
	return n.body
}

// Text returns the body text handed to the command resolver.
func (n *Notification) Text() string {
	return n.body
}

func (n *Notification) URL() (string, error) {
	return "", unsupported("notification.url")
}

// Post returns a copy of the embedded post.
func (n *Notification) Post() *Post {
	p := n.post
	return &p
}

// Topic fetches the channel the notification came from.
func (n *Notification) Topic(ctx context.Context) (*Topic, error) {
	if n.post.forum == nil {
		return nil, errUnbound("notification.topic")
	}
	return n.post.forum.GetTopic(ctx, n.post.TopicID)
}

// User fetches the user who sent the message.
func (n *Notification) User(ctx context.Context) (*User, error) {
	if n.post.forum == nil {
		return nil, errUnbound("notification.user")
	}
	return n.post.forum.GetUser(ctx, n.userID)
}

// GetNotification looks up a past notification by id. Notifications are
// not stored, so this is unsupported.
func (f *Forum) GetNotification(context.Context, string) (*Notification, error) {
	return nil, unsupported("notification.get")
}
