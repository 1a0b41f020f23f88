package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type reviewsResponse struct {
	DetailedReviews []DetailedReview `json:"detailed_reviews"`
}

type reviewResponse struct {
	Review *Review `json:"review"`
}

func reviewsPath(media MediaType, ref int) string {
	return fmt.Sprintf("/reviews/%s/%d", url.PathEscape(string(media)), ref)
}

// FetchReviews returns the reviews of a media item in server order.
func (c *Client) FetchReviews(ctx context.Context, creds Credentials, media MediaType, ref int) ([]DetailedReview, error) {
	var out reviewsResponse
	err := c.do(ctx, request{
		op:     "fetch reviews",
		method: http.MethodGet,
		path:   reviewsPath(media, ref),
		creds:  &creds,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.DetailedReviews == nil {
		return []DetailedReview{}, nil
	}
	return out.DetailedReviews, nil
}

// CreateReview posts the session user's review of a media item.
func (c *Client) CreateReview(ctx context.Context, creds Credentials, media MediaType, ref int, in ReviewInput) (*Review, error) {
	return c.writeReview(ctx, request{
		op:     "create review",
		method: http.MethodPost,
		path:   reviewsPath(media, ref),
		creds:  &creds,
		csrf:   true,
		body:   in,
	})
}

// UpdateReview replaces the content and rating of a review.
func (c *Client) UpdateReview(ctx context.Context, creds Credentials, reviewID string, in ReviewInput) (*Review, error) {
	return c.writeReview(ctx, request{
		op:     "update review",
		method: http.MethodPut,
		path:   "/reviews/" + url.PathEscape(reviewID),
		creds:  &creds,
		csrf:   true,
		body:   in,
	})
}

func (c *Client) writeReview(ctx context.Context, req request) (*Review, error) {
	var out reviewResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Review == nil {
		return nil, &NetworkError{Message: req.op + ": response has no review"}
	}
	return out.Review, nil
}

// DeleteReview deletes a review.
func (c *Client) DeleteReview(ctx context.Context, creds Credentials, reviewID string) error {
	return c.do(ctx, request{
		op:     "delete review",
		method: http.MethodDelete,
		path:   "/reviews/" + url.PathEscape(reviewID),
		creds:  &creds,
		csrf:   true,
	}, nil)
}
