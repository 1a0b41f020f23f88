package comments

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/cine-social/cine-cli/internal/api"
	"go.uber.org/zap"
)

// MaxContentLength is the longest comment accepted, in characters.
const MaxContentLength = 280

// ValidateContent checks that content is between 1 and MaxContentLength
// characters long.
func ValidateContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n < 1 || n > MaxContentLength {
		return fmt.Errorf("%w: must be 1 to %d characters, got %d", ErrInvalidContent, MaxContentLength, n)
	}
	return nil
}

type opKind string

const (
	opLike   opKind = "like"
	opDelete opKind = "delete"
	opEdit   opKind = "edit"
)

type inflightKey struct {
	op opKind
	id string
}

// acquire marks (op, id) as in flight. The returned func clears the mark.
func (s *Section) acquire(op opKind, id string) (func(), error) {
	key := inflightKey{op: op, id: id}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, fmt.Errorf("%s %s: %w", op, id, ErrInFlight)
	}
	s.inflight[key] = struct{}{}

	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}, nil
}

// Pending reports whether a like, delete or edit of the comment is waiting
// for the server.
func (s *Section) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.inflight {
		if key.id == id {
			return true
		}
	}
	return false
}

// Create posts a comment, or a reply when parentID is set. Once the server
// has stored it, the comment is put first in the section and the parent's
// reply count goes up by one. Invalid content is rejected without calling the
// API.
func (s *Section) Create(ctx context.Context, content, parentID string) (api.DetailedComment, error) {
	if err := ValidateContent(content); err != nil {
		return api.DetailedComment{}, err
	}

	created, err := s.client.CreateComment(ctx, s.viewer.Creds, api.CreateCommentInput{
		Media:    s.media,
		Ref:      s.ref,
		Content:  content,
		ParentID: parentID,
	})
	if err != nil {
		s.log.Warn("failed to create comment", zap.String("parent", parentID), zap.Error(err))
		return api.DetailedComment{}, fmt.Errorf("create comment: %w", err)
	}

	dc := api.DetailedComment{User: s.viewer.User, Comment: *created}
	if parentID != "" && dc.Comment.Parent() == "" {
		p := parentID
		dc.Comment.ParentID = &p
	}

	s.mu.Lock()
	s.store.Prepend(dc)
	if parentID != "" {
		s.store.Update(parentID, func(p *api.DetailedComment) { p.RepliesCount++ })
	}
	s.mu.Unlock()

	s.log.Debug("comment created", zap.String("id", dc.Comment.ID), zap.String("parent", parentID))
	return dc, nil
}

// Delete deletes a comment. Once the server confirmed, the comment and every
// reply below it are removed from the section and the parent's reply count
// goes down by one. It returns the number of comments removed locally.
func (s *Section) Delete(ctx context.Context, id string) (int, error) {
	release, err := s.acquire(opDelete, id)
	if err != nil {
		return 0, err
	}
	defer release()

	if err := s.client.DeleteComment(ctx, s.viewer.Creds, id); err != nil {
		s.log.Warn("failed to delete comment", zap.String("id", id), zap.Error(err))
		return 0, fmt.Errorf("delete comment: %w", err)
	}

	s.mu.Lock()
	var parent string
	if dc, ok := s.store.Get(id); ok {
		parent = dc.Comment.Parent()
	}
	removed := s.store.RemoveSubtree(id)
	s.removed[id] = struct{}{}
	for _, rid := range removed {
		delete(s.expanded, rid)
		s.removed[rid] = struct{}{}
	}
	if parent != "" && len(removed) > 0 {
		s.store.Update(parent, func(p *api.DetailedComment) {
			if p.RepliesCount > 0 {
				p.RepliesCount--
			}
		})
	}
	s.mu.Unlock()

	s.log.Debug("comment deleted", zap.String("id", id), zap.Int("removed", len(removed)))
	return len(removed), nil
}

// ToggleLike likes the comment, or unlikes it when the viewer already does.
// The like flag and count change only after the server confirmed. It returns
// the updated comment.
func (s *Section) ToggleLike(ctx context.Context, id string) (api.DetailedComment, error) {
	release, err := s.acquire(opLike, id)
	if err != nil {
		return api.DetailedComment{}, err
	}
	defer release()

	// No other like of id can land between this read and release.
	dc, ok := s.Get(id)
	if !ok {
		return api.DetailedComment{}, fmt.Errorf("like %s: %w", id, ErrCommentNotFound)
	}

	liked := dc.LikedByUser
	if liked {
		err = s.client.UnlikeComment(ctx, s.viewer.Creds, id)
	} else {
		err = s.client.LikeComment(ctx, s.viewer.Creds, id)
	}
	if err != nil {
		s.log.Warn("failed to toggle like", zap.String("id", id), zap.Bool("liked", liked), zap.Error(err))
		if liked {
			return api.DetailedComment{}, fmt.Errorf("unlike comment: %w", err)
		}
		return api.DetailedComment{}, fmt.Errorf("like comment: %w", err)
	}

	flip := func(p *api.DetailedComment) {
		if liked {
			p.LikesCount--
		} else {
			p.LikesCount++
		}
		p.LikedByUser = !liked
	}

	s.mu.Lock()
	found := s.store.Update(id, func(p *api.DetailedComment) {
		flip(p)
		dc = *p
	})
	s.mu.Unlock()
	if !found {
		// Deleted while the call was in flight.
		flip(&dc)
	}
	return dc, nil
}

// Edit replaces the content of a comment once the server accepted it.
func (s *Section) Edit(ctx context.Context, id, content string) (api.DetailedComment, error) {
	if err := ValidateContent(content); err != nil {
		return api.DetailedComment{}, err
	}
	release, err := s.acquire(opEdit, id)
	if err != nil {
		return api.DetailedComment{}, err
	}
	defer release()

	dc, ok := s.Get(id)
	if !ok {
		return api.DetailedComment{}, fmt.Errorf("edit %s: %w", id, ErrCommentNotFound)
	}

	updated, err := s.client.UpdateComment(ctx, s.viewer.Creds, id, content)
	if err != nil {
		s.log.Warn("failed to edit comment", zap.String("id", id), zap.Error(err))
		return api.DetailedComment{}, fmt.Errorf("edit comment: %w", err)
	}

	apply := func(p *api.DetailedComment) {
		p.Comment.Content = content
		if updated.Content != "" {
			p.Comment.Content = updated.Content
		}
		if updated.UpdatedAt != nil {
			p.Comment.UpdatedAt = updated.UpdatedAt
		}
	}

	s.mu.Lock()
	found := s.store.Update(id, func(p *api.DetailedComment) {
		apply(p)
		dc = *p
	})
	s.mu.Unlock()
	if !found {
		apply(&dc)
	}
	return dc, nil
}
