package reviews

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/cine-social/cine-cli/internal/api"
	"go.uber.org/zap"
)

const (
	// MaxContentLength is the longest review accepted, in characters.
	MaxContentLength = 140
	MinRating        = 1
	MaxRating        = 10
)

// API is the subset of the cine API a Board depends on.
type API interface {
	FetchReviews(ctx context.Context, creds api.Credentials, media api.MediaType, ref int) ([]api.DetailedReview, error)
	CreateReview(ctx context.Context, creds api.Credentials, media api.MediaType, ref int, in api.ReviewInput) (*api.Review, error)
	UpdateReview(ctx context.Context, creds api.Credentials, reviewID string, in api.ReviewInput) (*api.Review, error)
	DeleteReview(ctx context.Context, creds api.Credentials, reviewID string) error
}

// ValidateReview checks the content length and the rating range.
func ValidateReview(in api.ReviewInput) error {
	if n := utf8.RuneCountInString(in.Content); n < 1 || n > MaxContentLength {
		return fmt.Errorf("%w: content must be 1 to %d characters, got %d", ErrInvalidReview, MaxContentLength, n)
	}
	if in.Rating < MinRating || in.Rating > MaxRating {
		return fmt.Errorf("%w: rating must be %d to %d, got %d", ErrInvalidReview, MinRating, MaxRating, in.Rating)
	}
	return nil
}

// Board holds the reviews of one media item as seen by one viewer. Writes
// touch only the viewer's own review and are applied after the server
// confirmed them. One write runs at a time.
type Board struct {
	client API
	user   api.User
	creds  api.Credentials
	media  api.MediaType
	ref    int
	log    *zap.Logger

	mu      sync.Mutex
	reviews []api.DetailedReview
	busy    bool
}

// NewBoard returns an empty board. An empty user.ID means an anonymous
// viewer, which can read but owns no review.
func NewBoard(client API, user api.User, creds api.Credentials, media api.MediaType, ref int, log *zap.Logger) *Board {
	if log == nil {
		log = zap.NewNop()
	}
	return &Board{
		client: client,
		user:   user,
		creds:  creds,
		media:  media,
		ref:    ref,
		log:    log.With(zap.String("media", string(media)), zap.Int("ref", ref)),
	}
}

// Load replaces the board with the server's reviews, dropping duplicate ids.
// On failure the board is left as it was.
func (b *Board) Load(ctx context.Context) error {
	list, err := b.client.FetchReviews(ctx, b.creds, b.media, b.ref)
	if err != nil {
		b.log.Warn("failed to load reviews", zap.Error(err))
		return fmt.Errorf("load reviews: %w", err)
	}

	seen := make(map[string]struct{}, len(list))
	kept := make([]api.DetailedReview, 0, len(list))
	for _, dr := range list {
		if _, dup := seen[dr.Review.ID]; dup {
			continue
		}
		seen[dr.Review.ID] = struct{}{}
		kept = append(kept, dr)
	}

	b.mu.Lock()
	b.reviews = kept
	b.mu.Unlock()
	b.log.Debug("reviews loaded", zap.Int("count", len(kept)))
	return nil
}

// List returns the reviews with the viewer's own first, the rest in server
// order.
func (b *Board) List() []api.DetailedReview {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]api.DetailedReview, 0, len(b.reviews))
	for _, dr := range b.reviews {
		if b.owns(dr) {
			out = append(out, dr)
		}
	}
	for _, dr := range b.reviews {
		if !b.owns(dr) {
			out = append(out, dr)
		}
	}
	return out
}

// Own returns the viewer's review, if any.
func (b *Board) Own() (api.DetailedReview, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.ownIndex()
	if i < 0 {
		return api.DetailedReview{}, false
	}
	return b.reviews[i], true
}

// Average returns the mean rating and the number of reviews; 0, 0 when empty.
func (b *Board) Average() (float64, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, dr := range b.reviews {
		sum += dr.Review.Rating
	}
	return float64(sum) / float64(len(b.reviews)), len(b.reviews)
}

func (b *Board) owns(dr api.DetailedReview) bool {
	if b.user.ID == "" {
		return false
	}
	if dr.Review.UserID != "" {
		return dr.Review.UserID == b.user.ID
	}
	return dr.User.ID == b.user.ID
}

func (b *Board) ownIndex() int {
	for i, dr := range b.reviews {
		if b.owns(dr) {
			return i
		}
	}
	return -1
}

func (b *Board) acquire() (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.busy {
		return nil, ErrInFlight
	}
	b.busy = true
	return func() {
		b.mu.Lock()
		b.busy = false
		b.mu.Unlock()
	}, nil
}

// Create posts the viewer's review and puts it first.
func (b *Board) Create(ctx context.Context, in api.ReviewInput) (api.DetailedReview, error) {
	if err := ValidateReview(in); err != nil {
		return api.DetailedReview{}, err
	}
	release, err := b.acquire()
	if err != nil {
		return api.DetailedReview{}, err
	}
	defer release()

	if _, ok := b.Own(); ok {
		return api.DetailedReview{}, ErrAlreadyReviewed
	}

	created, err := b.client.CreateReview(ctx, b.creds, b.media, b.ref, in)
	if err != nil {
		b.log.Warn("failed to create review", zap.Error(err))
		return api.DetailedReview{}, fmt.Errorf("create review: %w", err)
	}

	dr := api.DetailedReview{User: b.user, Review: *created}
	b.mu.Lock()
	b.reviews = append([]api.DetailedReview{dr}, b.reviews...)
	b.mu.Unlock()
	return dr, nil
}

// Edit replaces the content and rating of the viewer's review.
func (b *Board) Edit(ctx context.Context, in api.ReviewInput) (api.DetailedReview, error) {
	if err := ValidateReview(in); err != nil {
		return api.DetailedReview{}, err
	}
	release, err := b.acquire()
	if err != nil {
		return api.DetailedReview{}, err
	}
	defer release()

	own, ok := b.Own()
	if !ok {
		return api.DetailedReview{}, ErrNoReview
	}

	updated, err := b.client.UpdateReview(ctx, b.creds, own.Review.ID, in)
	if err != nil {
		b.log.Warn("failed to edit review", zap.String("id", own.Review.ID), zap.Error(err))
		return api.DetailedReview{}, fmt.Errorf("edit review: %w", err)
	}

	dr := api.DetailedReview{User: b.user, Review: *updated}
	if dr.Review.ID == "" {
		dr.Review.ID = own.Review.ID
	}
	b.mu.Lock()
	if i := b.ownIndex(); i >= 0 {
		b.reviews[i] = dr
	}
	b.mu.Unlock()
	return dr, nil
}

// Delete deletes the viewer's review and returns its id.
func (b *Board) Delete(ctx context.Context) (string, error) {
	release, err := b.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	own, ok := b.Own()
	if !ok {
		return "", ErrNoReview
	}

	if err := b.client.DeleteReview(ctx, b.creds, own.Review.ID); err != nil {
		b.log.Warn("failed to delete review", zap.String("id", own.Review.ID), zap.Error(err))
		return "", fmt.Errorf("delete review: %w", err)
	}

	b.mu.Lock()
	kept := b.reviews[:0]
	for _, dr := range b.reviews {
		if !b.owns(dr) {
			kept = append(kept, dr)
		}
	}
	b.reviews = kept
	b.mu.Unlock()
	return own.Review.ID, nil
}
