// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"strings"
	"time"

	"github.com/aiku/sockbot-mattermost/pkg/connector/markup"
	"github.com/mattermost/mattermost/server/public/model"
)

// MessagePayload is the subset of a Mattermost post carried by a "posted"
// WebSocket event that the provider reads.
type MessagePayload struct {
	ID      string `json:"id"`
	Text    string `json:"message" validate:"required"`
	User    string `json:"user_id" validate:"required"`
	TS      int64  `json:"create_at"`
	Channel string `json:"channel_id"`
	Type    string `json:"type"`

	// SenderName comes from the event envelope, not the post itself.
	SenderName string `json:"-"`
}

// Post is a single chat message seen through the forum framework.
type Post struct {
	// ID is the history id, 0 until the post has been saved.
	ID int
	// RemoteID is the Mattermost post id, empty if unknown.
	RemoteID string
	AuthorID string
	Content  string
	PostedAt time.Time
	TopicID  string

	forum *Forum
}

// ParsePost builds a Post from a message payload. A nil payload is a caller
// error and fails with ErrPostNotFound; an empty payload yields an empty Post.
func ParsePost(payload *MessagePayload) (*Post, error) {
	if payload == nil {
		return nil, ErrPostNotFound
	}
	post := &Post{
		RemoteID: payload.ID,
		AuthorID: payload.User,
		Content:  payload.Text,
		TopicID:  payload.Channel,
	}
	if payload.TS != 0 {
		post.PostedAt = time.UnixMilli(payload.TS)
	}
	return post, nil
}

func postFromModel(p *model.Post, forum *Forum) *Post {
	return &Post{
		RemoteID: p.Id,
		AuthorID: p.UserId,
		Content:  p.Message,
		PostedAt: time.UnixMilli(p.CreateAt),
		TopicID:  p.ChannelId,
		forum:    forum,
	}
}

// Markup renders the post content as HTML. Plain text is returned as is.
func (p *Post) Markup() string {
	rendered := markup.Render(p.Content)
	if rendered.HTML == "" {
		return rendered.Body
	}
	return rendered.HTML
}

// Reply posts content to the topic containing this post.
func (p *Post) Reply(ctx context.Context, content string) (*Post, error) {
	if p.forum == nil {
		return nil, errUnbound("post.reply")
	}
	return p.forum.ReplyTo(ctx, p.TopicID, p.ID, content)
}

// Edit replaces the post content.
func (p *Post) Edit(ctx context.Context, content string) (*Post, error) {
	return p.patch(ctx, "post.edit", content)
}

// Append adds content to the end of the post, separated by a blank line.
func (p *Post) Append(ctx context.Context, content string) (*Post, error) {
	return p.patch(ctx, "post.append", p.Content+"\n\n"+content)
}

func (p *Post) patch(ctx context.Context, op, content string) (*Post, error) {
	s, err := p.remote(op)
	if err != nil {
		return nil, err
	}
	patched, resp, err := s.client.PatchPost(ctx, p.RemoteID, &model.PostPatch{Message: &content})
	if err != nil {
		return nil, apiError(op, resp, err)
	}
	out := postFromModel(patched, p.forum)
	out.ID = p.ID
	return out, nil
}

// Delete removes the post from Mattermost. The history entry is kept.
func (p *Post) Delete(ctx context.Context) error {
	s, err := p.remote("post.delete")
	if err != nil {
		return err
	}
	resp, err := s.client.DeletePost(ctx, p.RemoteID)
	if err != nil {
		return apiError("post.delete", resp, err)
	}
	return nil
}

func (p *Post) remote(op string) (*Session, error) {
	if p.forum == nil {
		return nil, errUnbound(op)
	}
	if p.RemoteID == "" {
		return nil, &Error{Kind: KindNotFound, Op: op, Code: "E_POST_NOT_FOUND"}
	}
	return p.forum.requireSession(op)
}

func (p *Post) URL() (string, error) {
	return "", unsupported("post.url")
}

func (p *Post) Undelete(context.Context) error {
	return unsupported("post.undelete")
}

func (p *Post) Upvote(context.Context) error {
	return unsupported("post.upvote")
}

func (p *Post) Downvote(context.Context) error {
	return unsupported("post.downvote")
}

func (p *Post) Unvote(context.Context) error {
	return unsupported("post.unvote")
}

func (p *Post) Bookmark(context.Context) error {
	return unsupported("post.bookmark")
}

func (p *Post) Unbookmark(context.Context) error {
	return unsupported("post.unbookmark")
}

// ReplyTo posts content to topicID on behalf of the bot. Replies go to the
// channel rather than a thread, so postID is only logged. Empty content is
// accepted and sends nothing.
func (f *Forum) ReplyTo(ctx context.Context, topicID string, postID int, content string) (*Post, error) {
	if strings.TrimSpace(content) == "" {
		f.log.Debug().Str("topic_id", topicID).Int("post_id", postID).Msg("Skipping empty reply")
		return nil, nil
	}
	s, err := f.requireSession("post.reply")
	if err != nil {
		return nil, err
	}
	f.log.Debug().Str("topic_id", topicID).Int("post_id", postID).Msg("Sending reply")
	created, err := s.PostMessage(ctx, topicID, content, "")
	if err != nil {
		return nil, err
	}
	return postFromModel(created, f), nil
}

// GetPost returns a post previously saved to the history.
func (f *Forum) GetPost(id int) (*Post, error) {
	post, err := f.history.Get(id)
	if err != nil {
		return nil, err
	}
	post.forum = f
	return &post, nil
}

// PreviewPost renders content to HTML as it would be rendered for a post.
func PreviewPost(content string) string {
	return (&Post{Content: content}).Markup()
}
