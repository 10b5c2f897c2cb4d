// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package connector implements a sockbot forum provider for Mattermost.
//
// A Mattermost team is presented to the bot framework as a forum: channels
// are topics, posts are posts and users are users. Inbound messages arrive
// over the Mattermost WebSocket, are classified as notifications, recorded
// in a process-local post history and handed to the framework's command
// resolver exactly once.
//
// # Core Types
//
// [Forum] owns the login session, the [PostHistory], the [EventBus], the
// notification [Dispatcher] and the registered plugins. It also serves an
// optional admin API with status, post lookup and Prometheus metrics.
//
// [Session] is an authenticated Mattermost connection. It performs REST
// calls and fans WebSocket events out to subscribers in delivery order.
//
// [Post], [Topic], [User] and [Notification] map Mattermost records onto
// the framework's entities. Operations Mattermost cannot perform return an
// [Error] of kind [KindUnsupported].
//
// # Echo Prevention
//
// The dispatcher never routes the bot's own posts, system posts, or posts
// from bridge and bot accounts (see DispatcherConfig.BotPrefix) to the
// command resolver.
//
// # Sub-packages
//
//   - markup renders Mattermost markdown to HTML for previews.
//   - format builds Mattermost markdown for bot replies.
package connector
