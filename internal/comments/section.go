package comments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cine-social/cine-cli/internal/api"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// API is the subset of the cine API a Section depends on. *api.Client
// implements it.
type API interface {
	FetchComments(ctx context.Context, creds api.Credentials, media api.MediaType, ref int) ([]api.DetailedComment, error)
	FetchReplies(ctx context.Context, creds api.Credentials, commentID string) ([]api.DetailedComment, error)
	CreateComment(ctx context.Context, creds api.Credentials, in api.CreateCommentInput) (*api.Comment, error)
	UpdateComment(ctx context.Context, creds api.Credentials, commentID, content string) (*api.Comment, error)
	DeleteComment(ctx context.Context, creds api.Credentials, commentID string) error
	LikeComment(ctx context.Context, creds api.Credentials, commentID string) error
	UnlikeComment(ctx context.Context, creds api.Credentials, commentID string) error
}

// Viewer is the signed-in user on whose behalf a Section acts.
type Viewer struct {
	User  api.User
	Creds api.Credentials
}

// DefaultFetchConcurrency bounds parallel reply fetches in ExpandAll.
const DefaultFetchConcurrency = 4

// Section holds the comment thread of one media item for one viewer: the
// Store, the reply cache, the expanded-node set and the set of comments with
// a like or delete in flight.
//
// Section is safe for concurrent use. Its lock is never held across an API
// call; every mutation is applied only after the server confirmed it.
type Section struct {
	client      API
	viewer      Viewer
	media       api.MediaType
	ref         int
	log         *zap.Logger
	concurrency int

	replies *ReplyCache

	mu       sync.Mutex
	gen      uint64 // bumped by Load
	store    *Store
	expanded map[string]struct{}
	inflight map[inflightKey]struct{}
	removed  map[string]struct{} // ids deleted since the last Load
}

// errStaleReplies reports a reply fetch whose result no longer applies: the
// section was reloaded or the parent was deleted while it ran.
var errStaleReplies = errors.New("replies outdated before merge")

// SectionOption configures a Section.
type SectionOption func(*Section)

// WithSectionLogger sets the logger.
func WithSectionLogger(l *zap.Logger) SectionOption {
	return func(s *Section) {
		if l != nil {
			s.log = l
		}
	}
}

// WithFetchConcurrency bounds the parallel reply fetches of ExpandAll.
func WithFetchConcurrency(n int) SectionOption {
	return func(s *Section) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSection returns an empty section for the given media item. Call Load to
// populate it.
func NewSection(client API, viewer Viewer, media api.MediaType, ref int, opts ...SectionOption) *Section {
	s := &Section{
		client:      client,
		viewer:      viewer,
		media:       media,
		ref:         ref,
		log:         zap.NewNop(),
		concurrency: DefaultFetchConcurrency,
		replies:     NewReplyCache(),
		store:       NewStore(),
		expanded:    make(map[string]struct{}),
		inflight:    make(map[inflightKey]struct{}),
		removed:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("media", string(media)), zap.Int("ref", ref))
	return s
}

// Viewer returns the user the section acts for.
func (s *Section) Viewer() Viewer { return s.viewer }

// Load fetches the comments of the media item and replaces the section's
// contents with them, forgetting fetched replies and expanded nodes. On
// failure the section is left as it was.
func (s *Section) Load(ctx context.Context) error {
	list, err := s.client.FetchComments(ctx, s.viewer.Creds, s.media, s.ref)
	if err != nil {
		s.log.Warn("failed to load comments", zap.Error(err))
		return fmt.Errorf("load comments: %w", err)
	}

	s.mu.Lock()
	s.gen++
	s.store.Replace(list)
	s.expanded = make(map[string]struct{})
	s.removed = make(map[string]struct{})
	s.replies.Reset()
	n := s.store.Len()
	s.mu.Unlock()

	s.log.Debug("comments loaded", zap.Int("fetched", len(list)), zap.Int("stored", n))
	return nil
}

// Len returns the number of comments held.
func (s *Section) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Get returns the comment with the given id if the section holds it.
func (s *Section) Get(id string) (api.DetailedComment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// RepliesFetched reports whether the replies of parentID were fetched.
func (s *Section) RepliesFetched(parentID string) bool {
	return s.replies.Has(parentID)
}

// Expanded reports whether the comment is expanded.
func (s *Section) Expanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.expanded[id]
	return ok
}

// SetExpanded expands or collapses a comment. Expanding a comment that has
// replies loads them unless they were already fetched. The comment stays
// expanded when that fetch fails; expanding it again retries.
func (s *Section) SetExpanded(ctx context.Context, id string, expanded bool) error {
	s.mu.Lock()
	dc, ok := s.store.Get(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("expand %s: %w", id, ErrCommentNotFound)
	}
	if !expanded {
		delete(s.expanded, id)
		s.mu.Unlock()
		return nil
	}
	s.expanded[id] = struct{}{}
	s.mu.Unlock()

	if dc.RepliesCount <= 0 {
		return nil
	}
	return s.EnsureRepliesLoaded(ctx, id)
}

// EnsureRepliesLoaded fetches the replies of parentID once. Fetched replies
// are appended after the comments already held and duplicates are dropped,
// keeping the local copy. Concurrent calls for the same parent share one
// request.
//
// Replies fetched for a parent that was deleted meanwhile are dropped and the
// parent is not marked as fetched. A fetch overtaken by Load is retried
// against the new contents.
func (s *Section) EnsureRepliesLoaded(ctx context.Context, parentID string) error {
	for {
		err := s.replies.Load(ctx, parentID, s.fetchReplies)
		if !errors.Is(err, errStaleReplies) {
			return err
		}
		if _, ok := s.Get(parentID); !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (s *Section) fetchReplies(ctx context.Context, parentID string) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	list, err := s.client.FetchReplies(ctx, s.viewer.Creds, parentID)
	if err != nil {
		s.log.Warn("failed to fetch replies", zap.String("parent", parentID), zap.Error(err))
		return fmt.Errorf("fetch replies of %s: %w", parentID, err)
	}

	s.mu.Lock()
	if gen != s.gen || !s.store.Has(parentID) {
		s.mu.Unlock()
		s.log.Debug("replies discarded", zap.String("parent", parentID))
		return errStaleReplies
	}
	live := make([]api.DetailedComment, 0, len(list))
	for _, dc := range list {
		if _, gone := s.removed[dc.Comment.ID]; !gone {
			live = append(live, dc)
		}
	}
	added := s.store.Merge(live)
	s.mu.Unlock()

	s.log.Debug("replies merged",
		zap.String("parent", parentID),
		zap.Int("fetched", len(list)),
		zap.Int("added", added),
	)
	return nil
}

// ExpandAll expands every comment that has replies, one depth level at a
// time. The parents of a level are fetched in parallel.
func (s *Section) ExpandAll(ctx context.Context) error {
	level := s.expandable(s.topLevelIDs())
	seen := make(map[string]struct{})

	for len(level) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, id := range level {
			seen[id] = struct{}{}
			g.Go(func() error {
				return s.SetExpanded(gctx, id, true)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var next []string
		s.mu.Lock()
		for _, id := range level {
			for _, child := range s.store.ChildIDs(id) {
				if _, ok := seen[child]; !ok {
					next = append(next, child)
				}
			}
		}
		s.mu.Unlock()
		level = s.expandable(next)
	}
	return nil
}

// Locate returns the comment with the given id, fetching replies breadth-first
// through the thread until it turns up.
func (s *Section) Locate(ctx context.Context, id string) (api.DetailedComment, error) {
	if dc, ok := s.Get(id); ok {
		return dc, nil
	}

	queue := s.topLevelIDs()
	seen := make(map[string]struct{})
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		if _, ok := seen[parent]; ok {
			continue
		}
		seen[parent] = struct{}{}

		dc, ok := s.Get(parent)
		if !ok {
			continue
		}
		if dc.RepliesCount > 0 {
			if err := s.EnsureRepliesLoaded(ctx, parent); err != nil {
				return api.DetailedComment{}, err
			}
			if found, ok := s.Get(id); ok {
				return found, nil
			}
		}

		s.mu.Lock()
		queue = append(queue, s.store.ChildIDs(parent)...)
		s.mu.Unlock()
	}
	return api.DetailedComment{}, fmt.Errorf("locate %s: %w", id, ErrCommentNotFound)
}

func (s *Section) topLevelIDs() []string {
	top := s.TopLevel()
	ids := make([]string, len(top))
	for i, dc := range top {
		ids[i] = dc.Comment.ID
	}
	return ids
}

// expandable keeps the ids whose comments report replies.
func (s *Section) expandable(ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := ids[:0]
	for _, id := range ids {
		if dc, ok := s.store.Get(id); ok && dc.RepliesCount > 0 {
			out = append(out, id)
		}
	}
	return out
}
