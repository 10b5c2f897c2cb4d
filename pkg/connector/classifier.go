// Copyright 2024-2026 Aiku AI

package connector

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mattermost/mattermost/server/public/model"
)

var validate = validator.New()

// Classifier turns "posted" WebSocket events into notifications.
type Classifier struct {
	// SelfID is the name the bot is mentioned by; a message containing
	// "@"+SelfID is a mention.
	SelfID string
	// IgnoreCase makes mention detection case-insensitive. Matching is
	// case-sensitive by default.
	IgnoreCase bool

	forum *Forum
}

// Classify decodes the post carried by evt and builds a Notification with an
// unsaved embedded post. Malformed or incomplete payloads fail with a
// KindParse error.
func (c *Classifier) Classify(evt *model.WebSocketEvent) (*Notification, error) {
	payload, err := decodePostedEvent(evt)
	if err != nil {
		return nil, err
	}
	return c.classifyPayload(payload)
}

func (c *Classifier) classifyPayload(payload *MessagePayload) (*Notification, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, parseError("notification.classify", err)
	}
	post, err := ParsePost(payload)
	if err != nil {
		return nil, err
	}
	post.forum = c.forum

	typ := NotificationTypeNotification
	if c.IsMention(payload.Text) {
		typ = NotificationTypeMention
	}
	return &Notification{
		id:     uuid.NewString(),
		typ:    typ,
		body:   payload.Text,
		userID: payload.User,
		date:   post.PostedAt,
		post:   *post,
	}, nil
}

// IsMention reports whether text contains the mention token for SelfID.
func (c *Classifier) IsMention(text string) bool {
	if c.SelfID == "" {
		return false
	}
	token := MentionToken(c.SelfID)
	if c.IgnoreCase {
		return strings.Contains(strings.ToLower(text), strings.ToLower(token))
	}
	return strings.Contains(text, token)
}

// decodePostedEvent extracts the post JSON and sender name from a "posted"
// event.
func decodePostedEvent(evt *model.WebSocketEvent) (*MessagePayload, error) {
	if evt == nil {
		return nil, parseError("notification.decode", errors.New("nil event"))
	}
	postJSON, ok := evt.GetData()["post"].(string)
	if !ok {
		return nil, parseError("notification.decode", errors.New("posted event missing post data"))
	}

	var payload MessagePayload
	if err := json.Unmarshal([]byte(postJSON), &payload); err != nil {
		return nil, parseError("notification.decode", fmt.Errorf("failed to unmarshal post: %w", err))
	}
	senderName, _ := evt.GetData()["sender_name"].(string)
	payload.SenderName = strings.TrimPrefix(senderName, "@")
	return &payload, nil
}
