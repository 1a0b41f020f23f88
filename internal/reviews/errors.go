package reviews

import "errors"

var (
	// ErrInvalidReview is returned before any API call when the content or
	// rating is out of range.
	ErrInvalidReview = errors.New("invalid review")

	// ErrAlreadyReviewed is returned by Create when the viewer already has a
	// review of the media item.
	ErrAlreadyReviewed = errors.New("you already reviewed this, use: cine review edit")

	// ErrNoReview is returned by Edit and Delete when the viewer has no
	// review of the media item.
	ErrNoReview = errors.New("you have not reviewed this")

	// ErrInFlight is returned while another write of the viewer's review is
	// waiting for the server.
	ErrInFlight = errors.New("a review request is already in flight")
)
