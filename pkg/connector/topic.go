// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
)

// Topic is a Mattermost channel seen as a forum discussion thread.
type Topic struct {
	ID        string
	Title     string
	AuthorID  string
	CreatedAt time.Time

	name       string
	lastPostAt int64
	forum      *Forum
}

// ParseTopic builds a Topic from a Mattermost channel.
func ParseTopic(channel *model.Channel) (*Topic, error) {
	if channel == nil {
		return nil, &Error{Kind: KindNotFound, Op: "topic.parse", Code: "E_TOPIC_NOT_FOUND"}
	}
	title := channel.DisplayName
	if title == "" {
		title = channel.Name
	}
	topic := &Topic{
		ID:         channel.Id,
		Title:      title,
		AuthorID:   channel.CreatorId,
		name:       channel.Name,
		lastPostAt: channel.LastPostAt,
	}
	if channel.CreateAt != 0 {
		topic.CreatedAt = time.UnixMilli(channel.CreateAt)
	}
	return topic, nil
}

// LastPosted returns when the channel last received a post, or the zero time
// if Mattermost did not report it.
func (t *Topic) LastPosted() time.Time {
	if t.lastPostAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(t.lastPostAt)
}

// Reply posts content to the channel.
func (t *Topic) Reply(ctx context.Context, content string) (*Post, error) {
	if t.forum == nil {
		return nil, errUnbound("topic.reply")
	}
	return t.forum.ReplyTo(ctx, t.ID, 0, content)
}

// Watch joins the channel so the bot receives its messages.
func (t *Topic) Watch(ctx context.Context) error {
	return t.join(ctx, "topic.watch")
}

// Unwatch leaves the channel.
func (t *Topic) Unwatch(ctx context.Context) error {
	return t.part(ctx, "topic.unwatch")
}

// Mute leaves the channel; Mattermost has no per-channel mute for bots.
func (t *Topic) Mute(ctx context.Context) error {
	return t.part(ctx, "topic.mute")
}

// Unmute rejoins the channel.
func (t *Topic) Unmute(ctx context.Context) error {
	return t.join(ctx, "topic.unmute")
}

func (t *Topic) join(ctx context.Context, op string) error {
	s, err := t.session(op)
	if err != nil {
		return err
	}
	_, resp, err := s.client.AddChannelMember(ctx, t.ID, s.userID)
	if err != nil {
		return apiError(op, resp, err)
	}
	s.log.Debug().Str("channel_id", t.ID).Str("channel_name", t.name).Msg("Joined channel")
	return nil
}

func (t *Topic) part(ctx context.Context, op string) error {
	s, err := t.session(op)
	if err != nil {
		return err
	}
	resp, err := s.client.RemoveUserFromChannel(ctx, t.ID, s.userID)
	if err != nil {
		return apiError(op, resp, err)
	}
	s.log.Debug().Str("channel_id", t.ID).Str("channel_name", t.name).Msg("Left channel")
	return nil
}

// MarkRead marks the whole channel read for the bot. Mattermost tracks read
// state per channel, so postNumber is ignored.
func (t *Topic) MarkRead(ctx context.Context, postNumber int) error {
	s, err := t.session("topic.mark_read")
	if err != nil {
		return err
	}
	_, resp, err := s.client.ViewChannel(ctx, s.userID, &model.ChannelView{ChannelId: t.ID})
	if err != nil {
		return apiError("topic.mark_read", resp, err)
	}
	return nil
}

func (t *Topic) session(op string) (*Session, error) {
	if t.forum == nil {
		return nil, errUnbound(op)
	}
	return t.forum.requireSession(op)
}

func (t *Topic) PostCount() (int, error) {
	return 0, unsupported("topic.post_count")
}

func (t *Topic) MainPostID() (int, error) {
	return 0, unsupported("topic.main_post_id")
}

func (t *Topic) URL() (string, error) {
	return "", unsupported("topic.url")
}

// GetAllPosts is unsupported: channel history is not exposed as topic posts.
func (t *Topic) GetAllPosts(context.Context, func(*Post) error) error {
	return unsupported("topic.get_all_posts")
}

func (t *Topic) GetLatestPosts(context.Context, func(*Post) error) error {
	return unsupported("topic.get_latest_posts")
}

// GetTopic fetches a channel by id.
func (f *Forum) GetTopic(ctx context.Context, topicID string) (*Topic, error) {
	s, err := f.requireSession("topic.get")
	if err != nil {
		return nil, err
	}
	f.log.Debug().Str("topic_id", topicID).Msg("Getting topic")
	channel, resp, err := s.client.GetChannel(ctx, topicID, "")
	if err != nil {
		return nil, apiError("topic.get", resp, err)
	}
	return f.bindTopic(channel)
}

// GetTopicByName fetches a channel of the bot's team by its URL name.
func (f *Forum) GetTopicByName(ctx context.Context, name string) (*Topic, error) {
	s, err := f.requireSession("topic.get_by_name")
	if err != nil {
		return nil, err
	}
	f.log.Debug().Str("topic_name", name).Msg("Getting topic by name")
	channel, resp, err := s.client.GetChannelByName(ctx, name, s.teamID, "")
	if err != nil {
		return nil, apiError("topic.get_by_name", resp, err)
	}
	return f.bindTopic(channel)
}

func (f *Forum) bindTopic(channel *model.Channel) (*Topic, error) {
	topic, err := ParseTopic(channel)
	if err != nil {
		return nil, err
	}
	topic.forum = f
	return topic, nil
}
