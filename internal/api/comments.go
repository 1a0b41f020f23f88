package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type commentsResponse struct {
	DetailedComments []DetailedComment `json:"detailed_comments"`
	// Older servers answer with "comments".
	Comments []DetailedComment `json:"comments"`
}

type repliesResponse struct {
	Replies []DetailedComment `json:"replies"`
}

type commentResponse struct {
	Comment *Comment `json:"comment"`
}

type createCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"replying_to_id,omitempty"`
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

func mediaPath(media MediaType, ref int) string {
	return fmt.Sprintf("/comments/%s/%d", url.PathEscape(string(media)), ref)
}

// FetchComments returns the comments of a media item in server order.
func (c *Client) FetchComments(ctx context.Context, creds Credentials, media MediaType, ref int) ([]DetailedComment, error) {
	var out commentsResponse
	err := c.do(ctx, request{
		op:     "fetch comments",
		method: http.MethodGet,
		path:   mediaPath(media, ref),
		creds:  &creds,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.DetailedComments == nil && out.Comments != nil {
		return out.Comments, nil
	}
	if out.DetailedComments == nil {
		return []DetailedComment{}, nil
	}
	return out.DetailedComments, nil
}

// FetchReplies returns the direct replies of a comment.
func (c *Client) FetchReplies(ctx context.Context, creds Credentials, commentID string) ([]DetailedComment, error) {
	var out repliesResponse
	err := c.do(ctx, request{
		op:     "fetch replies",
		method: http.MethodGet,
		path:   "/comments/" + url.PathEscape(commentID) + "/replies",
		creds:  &creds,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Replies == nil {
		return []DetailedComment{}, nil
	}
	return out.Replies, nil
}

// CreateComment posts a comment (or a reply when in.ParentID is set) and
// returns the stored comment.
func (c *Client) CreateComment(ctx context.Context, creds Credentials, in CreateCommentInput) (*Comment, error) {
	body := createCommentRequest{Content: in.Content}
	if in.ParentID != "" {
		parent := in.ParentID
		body.ParentID = &parent
	}

	var out commentResponse
	err := c.do(ctx, request{
		op:     "create comment",
		method: http.MethodPost,
		path:   mediaPath(in.Media, in.Ref),
		creds:  &creds,
		csrf:   true,
		body:   body,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Comment == nil {
		return nil, &NetworkError{Message: "create comment: response did not contain a comment"}
	}
	return out.Comment, nil
}

// UpdateComment replaces the content of a comment and returns the stored
// comment.
func (c *Client) UpdateComment(ctx context.Context, creds Credentials, commentID, content string) (*Comment, error) {
	var out commentResponse
	err := c.do(ctx, request{
		op:     "update comment",
		method: http.MethodPut,
		path:   "/comments/" + url.PathEscape(commentID),
		creds:  &creds,
		csrf:   true,
		body:   updateCommentRequest{Content: content},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Comment == nil {
		return nil, &NetworkError{Message: "update comment: response did not contain a comment"}
	}
	return out.Comment, nil
}

// DeleteComment deletes a comment. The server removes its replies as well.
func (c *Client) DeleteComment(ctx context.Context, creds Credentials, commentID string) error {
	return c.do(ctx, request{
		op:     "delete comment",
		method: http.MethodDelete,
		path:   "/comments/" + url.PathEscape(commentID),
		creds:  &creds,
		csrf:   true,
	}, nil)
}

// LikeComment likes a comment on behalf of the session's user.
func (c *Client) LikeComment(ctx context.Context, creds Credentials, commentID string) error {
	return c.do(ctx, request{
		op:     "like comment",
		method: http.MethodPost,
		path:   "/comments/like/" + url.PathEscape(commentID),
		creds:  &creds,
		csrf:   true,
	}, nil)
}

// UnlikeComment removes the session user's like from a comment.
func (c *Client) UnlikeComment(ctx context.Context, creds Credentials, commentID string) error {
	return c.do(ctx, request{
		op:     "unlike comment",
		method: http.MethodDelete,
		path:   "/comments/like/" + url.PathEscape(commentID),
		creds:  &creds,
		csrf:   true,
	}, nil)
}
