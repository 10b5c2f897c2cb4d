// Copyright 2024-2026 Aiku AI

package connector

import "context"

// RoutingContext identifies where a command was issued.
type RoutingContext struct {
	// PostID is the history id of the message carrying the command.
	PostID  int
	TopicID string
	UserID  string
	// Room is always RoomNone.
	Room int
}

// ReplyFunc posts content in reply to the message that issued a command.
type ReplyFunc func(ctx context.Context, content string) error

// Command is an executable action resolved from message text.
type Command interface {
	Execute(ctx context.Context) error
}

// CommandFunc adapts a function to the Command interface.
type CommandFunc func(ctx context.Context) error

func (f CommandFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Commands resolves message text into a Command. It is implemented by the
// bot framework's command engine.
type Commands interface {
	Get(ctx context.Context, ids RoutingContext, text string, reply ReplyFunc) (Command, error)
}

// CommandsFunc adapts a function to the Commands interface.
type CommandsFunc func(ctx context.Context, ids RoutingContext, text string, reply ReplyFunc) (Command, error)

func (f CommandsFunc) Get(ctx context.Context, ids RoutingContext, text string, reply ReplyFunc) (Command, error) {
	return f(ctx, ids, text, reply)
}
