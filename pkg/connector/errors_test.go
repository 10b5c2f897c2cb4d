// Copyright 2024-2026 Aiku AI

package connector

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mattermost/mattermost/server/public/model"
)

func TestErrorMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindUnsupported, Op: "post.upvote"}, "post.upvote: unsupported"},
		{&Error{Kind: KindNotFound, Code: "E_POST_NOT_FOUND"}, "not_found (E_POST_NOT_FOUND)"},
		{&Error{Kind: KindParse, Op: "post.id", Err: errors.New("bad")}, "post.id: parse: bad"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error(): got %q, want %q", got, tt.want)
		}
	}
}

func TestErrorIs(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("wrapped: %w", unsupported("user.follow"))
	if !errors.Is(err, ErrUnsupported) {
		t.Error("unsupported error should match ErrUnsupported")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("unsupported error must not match ErrNotFound")
	}
	if !errors.Is(ErrPostNotFound, ErrNotFound) {
		t.Error("ErrPostNotFound should match ErrNotFound")
	}
	other := &Error{Kind: KindNotFound, Code: "E_TOPIC_NOT_FOUND"}
	if errors.Is(other, ErrPostNotFound) {
		t.Error("codes must match when the target sets one")
	}
	if !errors.Is(err, &Error{Kind: KindUnsupported, Op: "user.follow"}) {
		t.Error("ops must match when the target sets one")
	}
}

func TestAPIError(t *testing.T) {
	t.Parallel()
	cause := errors.New("http failure")
	if err := apiError("user.get", &model.Response{StatusCode: http.StatusNotFound}, cause); !errors.Is(err, ErrNotFound) {
		t.Errorf("404: got %v, want not found", err)
	}
	if err := apiError("user.get", &model.Response{StatusCode: http.StatusInternalServerError}, cause); !errors.Is(err, ErrDownstream) {
		t.Errorf("500: got %v, want downstream", err)
	}
	if err := apiError("user.get", nil, cause); !errors.Is(err, ErrDownstream) || !errors.Is(err, cause) {
		t.Errorf("no response: got %v, want downstream wrapping cause", err)
	}
}

func TestDownstreamKeepsKind(t *testing.T) {
	t.Parallel()
	parse := parseError("x", errors.New("bad"))
	if err := downstream("command.execute", parse); !IsKind(err, KindParse) {
		t.Errorf("downstream should keep an existing kind, got %v", err)
	}
	if err := downstream("command.execute", errors.New("plain")); !IsKind(err, KindDownstream) {
		t.Errorf("plain errors become downstream, got %v", err)
	}
	if errorKind(errors.New("plain")) != KindDownstream {
		t.Error("errorKind defaults to downstream")
	}
}
