package api

import (
	"context"
	"net/http"
	"net/url"
)

type userStatsResponse struct {
	DetailedUser UserStats `json:"detailed_user"`
}

// FetchUser returns the public profile of a user.
func (c *Client) FetchUser(ctx context.Context, creds Credentials, userID string) (*User, error) {
	var out userResponse
	err := c.do(ctx, request{
		op:     "fetch user",
		method: http.MethodGet,
		path:   "/users/" + url.PathEscape(userID),
		creds:  &creds,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// FetchUserStats returns the counters of a user, as seen by the session.
func (c *Client) FetchUserStats(ctx context.Context, creds Credentials, userID string) (*UserStats, error) {
	var out userStatsResponse
	err := c.do(ctx, request{
		op:     "fetch user stats",
		method: http.MethodGet,
		path:   "/users/detailed/" + url.PathEscape(userID),
		creds:  &creds,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.DetailedUser, nil
}

// FollowUser makes the session user follow another user.
func (c *Client) FollowUser(ctx context.Context, creds Credentials, userID string) error {
	return c.do(ctx, request{
		op:     "follow user",
		method: http.MethodPost,
		path:   "/users/" + url.PathEscape(userID) + "/follow",
		creds:  &creds,
		csrf:   true,
	}, nil)
}

// UnfollowUser removes a follow.
func (c *Client) UnfollowUser(ctx context.Context, creds Credentials, userID string) error {
	return c.do(ctx, request{
		op:     "unfollow user",
		method: http.MethodDelete,
		path:   "/users/" + url.PathEscape(userID) + "/unfollow",
		creds:  &creds,
		csrf:   true,
	}, nil)
}
