package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the default cine API endpoint.
const DefaultBaseURL = "http://localhost:3001/api"

// MediaType identifies the kind of media a comment section belongs to.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaShow  MediaType = "show"
)

// ParseMediaType accepts "movie"/"show" (and their plurals) case-insensitively.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return MediaMovie, nil
	case "show", "shows":
		return MediaShow, nil
	}
	return "", fmt.Errorf("invalid media type %q (want movie or show)", s)
}

// ParseRef parses a TMDB media reference, a positive integer.
func ParseRef(s string) (int, error) {
	ref, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || ref <= 0 {
		return 0, fmt.Errorf("invalid media reference %q: want a positive integer", s)
	}
	return ref, nil
}

// Credentials are the opaque identity tokens attached to every request.
// CSRF is only required for mutations.
type Credentials struct {
	SessionToken string
	CSRF         string
}

// User is the public projection of an account.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	ProfilePicture string `json:"profile_picture"`
}

// Session is the server-issued session returned by login and authenticate.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CSRF       string    `json:"csrf"`
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}

// Comment is a comment as stored by the API. ParentID is nil for top-level
// comments; UserID is nil when the author has been deleted.
type Comment struct {
	ID        string     `json:"id"`
	UserID    *string    `json:"user_id"`
	MediaID   string     `json:"media_id"`
	ParentID  *string    `json:"replying_to_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// IsReply reports whether the comment replies to another comment.
func (c Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// Parent returns the parent comment id, or "" for top-level comments.
func (c Comment) Parent() string {
	if c.ParentID == nil {
		return ""
	}
	return *c.ParentID
}

// DetailedComment is a comment together with its author and engagement counts.
type DetailedComment struct {
	User         User    `json:"user"`
	Comment      Comment `json:"comment"`
	RepliesCount int     `json:"replies_count"`
	LikesCount   int     `json:"likes_count"`
	LikedByUser  bool    `json:"liked_by_user"`
}

// CreateCommentInput holds the parameters for creating a comment.
type CreateCommentInput struct {
	Media    MediaType
	Ref      int
	Content  string
	ParentID string // optional id of the comment being replied to
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	ProfilePicture string `json:"profile_picture"`
}

// UserPatch is a partial account update. Nil fields are left untouched by the
// server and are omitted from the request body.
type UserPatch struct {
	Username       *string `json:"username,omitempty"`
	DisplayName    *string `json:"display_name,omitempty"`
	Password       *string `json:"password,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.DisplayName == nil && p.Password == nil && p.ProfilePicture == nil
}

// Review is a rated review of a media item. A user has at most one review per
// media item.
type Review struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	MediaID   string     `json:"media_id"`
	Content   string     `json:"content"`
	Rating    int        `json:"rating"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// DetailedReview is a review together with its author.
type DetailedReview struct {
	User   User   `json:"user"`
	Review Review `json:"review"`
}

// ReviewInput is the body of a review create or edit.
type ReviewInput struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

// UserStats are the public counters of an account. Followed reports whether
// the requesting session follows the user.
type UserStats struct {
	FollowingCount int  `json:"following_count"`
	FollowersCount int  `json:"followers_count"`
	LikesCount     int  `json:"likes_count"`
	CommentsCount  int  `json:"comments_count"`
	ReviewsCount   int  `json:"reviews_count"`
	ListsCount     int  `json:"lists_count"`
	Followed       bool `json:"followed"`
}
