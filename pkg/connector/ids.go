// Copyright 2024-2026 Aiku AI

package connector

import (
	"fmt"
	"strconv"
)

// RoomNone is the room sentinel placed in every RoutingContext. Mattermost
// has no rooms distinct from channels.
const RoomNone = -1

// MakePostID formats a history post id for use in URLs and logs.
func MakePostID(id int) string {
	return strconv.Itoa(id)
}

// ParsePostID parses a history post id. Ids start at 1.
func ParsePostID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, parseError("post.id", err)
	}
	if id <= 0 {
		return 0, parseError("post.id", fmt.Errorf("post id must be positive, got %d", id))
	}
	return id, nil
}

// MentionToken returns the literal token that marks a mention of selfID.
func MentionToken(selfID string) string {
	return "@" + selfID
}
