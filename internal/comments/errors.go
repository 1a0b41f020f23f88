package comments

import "errors"

var (
	// ErrInvalidContent is returned before any API call when comment content
	// is empty or longer than MaxContentLength characters.
	ErrInvalidContent = errors.New("invalid comment content")

	// ErrInFlight is returned when a like, delete or edit of the same comment is
	// still waiting for the server.
	ErrInFlight = errors.New("a request for this comment is already in flight")

	// ErrCommentNotFound is returned when a comment is not in the section.
	ErrCommentNotFound = errors.New("comment not found")
)
