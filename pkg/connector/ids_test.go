// Copyright 2024-2026 Aiku AI

package connector

import (
	"errors"
	"testing"
)

func TestPostIDRoundTrip(t *testing.T) {
	t.Parallel()
	for _, id := range []int{1, 2, 42, 1 << 20} {
		got, err := ParsePostID(MakePostID(id))
		if err != nil {
			t.Fatalf("ParsePostID(%d): %v", id, err)
		}
		if got != id {
			t.Errorf("PostID round trip: got %d, want %d", got, id)
		}
	}
}

func TestParsePostIDInvalid(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "abc", "0", "-3", "1.5"} {
		if _, err := ParsePostID(in); !errors.Is(err, ErrParse) {
			t.Errorf("ParsePostID(%q): got %v, want parse error", in, err)
		}
	}
}

func TestMentionToken(t *testing.T) {
	t.Parallel()
	if got := MentionToken("bot1"); got != "@bot1" {
		t.Errorf("MentionToken: got %q, want %q", got, "@bot1")
	}
}

func TestRoomNone(t *testing.T) {
	t.Parallel()
	if RoomNone != -1 {
		t.Errorf("RoomNone: got %d, want -1", RoomNone)
	}
}
