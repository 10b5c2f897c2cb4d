// Copyright 2024-2026 Aiku AI

package main

import (
	"context"
	"strings"

	"github.com/aiku/sockbot-mattermost/pkg/commands"
	"github.com/aiku/sockbot-mattermost/pkg/connector"
	"github.com/aiku/sockbot-mattermost/pkg/connector/format"
	"github.com/rs/zerolog"
)

func registerBuiltins(r *commands.Registry) {
	_ = r.Register("ping", "check that the bot is alive", func(ctx context.Context, inv *commands.Invocation) error {
		return inv.Reply(ctx, "pong")
	})
	_ = r.Register("echo", "repeat the arguments", func(ctx context.Context, inv *commands.Invocation) error {
		return inv.Reply(ctx, format.Quote(strings.Join(inv.Args, " ")))
	})
	_ = r.Register("spoiler", "hide the arguments as ROT13", func(ctx context.Context, inv *commands.Invocation) error {
		return inv.Reply(ctx, format.Spoiler(strings.Join(inv.Args, " ")))
	})
}

// mentionLogger logs every mention of the bot.
type mentionLogger struct {
	forum *connector.Forum
	off   func()
	log   zerolog.Logger
}

func newMentionLogger(forum *connector.Forum, _ map[string]any) (connector.Plugin, error) {
	return &mentionLogger{forum: forum}, nil
}

func (p *mentionLogger) Activate(ctx context.Context) error {
	p.log = zerolog.Ctx(ctx).With().Str("plugin", "mention_logger").Logger()
	p.off = p.forum.On(connector.NotificationEvent(connector.NotificationTypeMention), func(ctx context.Context, payload any) error {
		n, ok := payload.(*connector.Notification)
		if !ok {
			return nil
		}
		p.log.Info().
			Str("topic_id", n.TopicID()).
			Str("user_id", n.UserID()).
			Str("notification_id", n.ID()).
			Msg("Mentioned")
		return nil
	})
	return nil
}

func (p *mentionLogger) Deactivate(context.Context) error {
	if p.off != nil {
		p.off()
		p.off = nil
	}
	return nil
}
