// Copyright 2024-2026 Aiku AI

package connector

import (
	"errors"
	"net/http"

	"github.com/mattermost/mattermost/server/public/model"
)

// ErrorKind classifies failures surfaced by the forum provider.
type ErrorKind string

const (
	// KindUnsupported means Mattermost cannot perform the requested action.
	KindUnsupported ErrorKind = "unsupported"
	// KindNotFound means a lookup by id or name had no match.
	KindNotFound ErrorKind = "not_found"
	// KindParse means an inbound payload was malformed.
	KindParse ErrorKind = "parse"
	// KindDownstream means the Mattermost API or a command failed.
	KindDownstream ErrorKind = "downstream"
)

// Error is the error type returned by every forum operation. Callers should
// match on the kind with errors.Is against ErrUnsupported, ErrNotFound,
// ErrParse or ErrDownstream.
type Error struct {
	Kind ErrorKind
	// Op names the operation that failed, e.g. "post.upvote".
	Op string
	// Code is a stable machine-readable code such as E_POST_NOT_FOUND.
	Code string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind with no op set, which is how the
// package-level sentinels are built.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return (t.Op == "" || t.Op == e.Op) && (t.Code == "" || t.Code == e.Code)
}

var (
	ErrUnsupported = &Error{Kind: KindUnsupported}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrParse       = &Error{Kind: KindParse}
	ErrDownstream  = &Error{Kind: KindDownstream}

	// ErrPostNotFound is returned by ParsePost for a nil payload.
	ErrPostNotFound = &Error{Kind: KindNotFound, Code: "E_POST_NOT_FOUND"}
)

func unsupported(op string) error {
	return &Error{Kind: KindUnsupported, Op: op}
}

func parseError(op string, err error) error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// apiError converts a Mattermost client failure into a NotFound or
// Downstream error depending on the response status.
func apiError(op string, resp *model.Response, err error) error {
	kind := KindDownstream
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		kind = KindNotFound
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err is a forum error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func errorKind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDownstream
}

func downstream(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindDownstream, Op: op, Err: err}
}
