// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
)

// User is a read-only view of a Mattermost user.
type User struct {
	ID          string
	Username    string
	DisplayName string
	// Email is empty when the server hides it from the bot.
	Email string
}

// ParseUser builds a User from a Mattermost user record. The display name is
// the full name, falling back to the nickname and then the username.
func ParseUser(user *model.User) (*User, error) {
	if user == nil {
		return nil, &Error{Kind: KindNotFound, Op: "user.parse", Code: "E_USER_NOT_FOUND"}
	}
	name := user.GetFullName()
	if name == "" {
		name = user.Nickname
	}
	if name == "" {
		name = user.Username
	}
	return &User{
		ID:          user.Id,
		Username:    user.Username,
		DisplayName: name,
		Email:       user.Email,
	}, nil
}

func (u *User) URL() (string, error) {
	return "", unsupported("user.url")
}

func (u *User) Follow(context.Context) error {
	return unsupported("user.follow")
}

func (u *User) Unfollow(context.Context) error {
	return unsupported("user.unfollow")
}

func (u *User) PostCount() (int, error) {
	return 0, unsupported("user.post_count")
}

func (u *User) TopicCount() (int, error) {
	return 0, unsupported("user.topic_count")
}

func (u *User) Reputation() (int, error) {
	return 0, unsupported("user.reputation")
}

func (u *User) LastPosted() (time.Time, error) {
	return time.Time{}, unsupported("user.last_posted")
}

func (u *User) LastSeen() (time.Time, error) {
	return time.Time{}, unsupported("user.last_seen")
}

// GetUser fetches a user by Mattermost user id.
func (f *Forum) GetUser(ctx context.Context, userID string) (*User, error) {
	s, err := f.requireSession("user.get")
	if err != nil {
		return nil, err
	}
	f.log.Debug().Str("user_id", userID).Msg("Retrieving user by id")
	user, resp, err := s.client.GetUser(ctx, userID, "")
	if err != nil {
		return nil, apiError("user.get", resp, err)
	}
	return f.parseUser(user)
}

// GetUserByName fetches a user by username.
func (f *Forum) GetUserByName(ctx context.Context, username string) (*User, error) {
	s, err := f.requireSession("user.get_by_name")
	if err != nil {
		return nil, err
	}
	f.log.Debug().Str("username", username).Msg("Retrieving user by username")
	user, resp, err := s.client.GetUserByUsername(ctx, username, "")
	if err != nil {
		return nil, apiError("user.get_by_name", resp, err)
	}
	return f.parseUser(user)
}

// parseUser applies the configured displayname template on top of ParseUser.
func (f *Forum) parseUser(user *model.User) (*User, error) {
	u, err := ParseUser(user)
	if err != nil {
		return nil, err
	}
	if f.Config.DisplaynameTemplate != "" {
		u.DisplayName = f.Config.FormatDisplayname(DisplaynameParams{
			Username:  user.Username,
			Nickname:  user.Nickname,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		})
	}
	return u, nil
}
