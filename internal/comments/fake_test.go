package comments

import (
	"context"
	"sync"
	"time"

	"github.com/cine-social/cine-cli/internal/api"
)

const viewerID = "u-me"

var testViewer = Viewer{
	User:  api.User{ID: viewerID, Username: "me", DisplayName: "Me"},
	Creds: api.Credentials{SessionToken: "sess", CSRF: "csrf"},
}

// mkComment builds a detailed comment. parent "" means top-level.
func mkComment(id, parent, userID string, replies int) api.DetailedComment {
	c := api.Comment{
		ID:        id,
		MediaID:   "media-1",
		Content:   "comment " + id,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if userID != "" {
		uid := userID
		c.UserID = &uid
	}
	if parent != "" {
		p := parent
		c.ParentID = &p
	}
	return api.DetailedComment{
		User:         api.User{ID: userID, Username: "user-" + userID},
		Comment:      c,
		RepliesCount: replies,
	}
}

func ids(list []api.DetailedComment) []string {
	out := make([]string, len(list))
	for i, dc := range list {
		out[i] = dc.Comment.ID
	}
	return out
}

// fakeAPI is an in-memory API. Gates, when set, block the matching call until
// closed; the started channels are signalled when such a call begins.
type fakeAPI struct {
	mu sync.Mutex

	comments    []api.DetailedComment
	commentsErr error

	replies      map[string][]api.DetailedComment
	repliesErr   map[string]error
	replyCalls   map[string]int
	replyGate    chan struct{}
	replyStarted chan string

	createErr error
	created   []api.CreateCommentInput
	nextID    int

	updateErr error
	updated   map[string]string

	deleteErr     error
	deleted       []string
	deleteGate    chan struct{}
	deleteStarted chan string

	likeErr     error
	likeCalls   []string
	unlikeCalls []string
	likeLog     []bool // true for like, false for unlike, in call order
	likeGate    chan struct{}
	likeStarted chan string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		replies:    make(map[string][]api.DetailedComment),
		repliesErr: make(map[string]error),
		replyCalls: make(map[string]int),
		updated:    make(map[string]string),
	}
}

func (f *fakeAPI) FetchComments(ctx context.Context, creds api.Credentials, media api.MediaType, ref int) ([]api.DetailedComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentsErr != nil {
		return nil, f.commentsErr
	}
	return append([]api.DetailedComment(nil), f.comments...), nil
}

func (f *fakeAPI) FetchReplies(ctx context.Context, creds api.Credentials, commentID string) ([]api.DetailedComment, error) {
	f.mu.Lock()
	f.replyCalls[commentID]++
	gate, started := f.replyGate, f.replyStarted
	f.mu.Unlock()

	if started != nil {
		started <- commentID
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.repliesErr[commentID]; err != nil {
		return nil, err
	}
	return append([]api.DetailedComment(nil), f.replies[commentID]...), nil
}

func (f *fakeAPI) CreateComment(ctx context.Context, creds api.Credentials, in api.CreateCommentInput) (*api.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	uid := viewerID
	c := &api.Comment{
		ID:        "new-" + string(rune('0'+f.nextID)),
		UserID:    &uid,
		MediaID:   "media-1",
		Content:   in.Content,
		CreatedAt: time.Now().UTC(),
	}
	if in.ParentID != "" {
		p := in.ParentID
		c.ParentID = &p
	}
	return c, nil
}

func (f *fakeAPI) UpdateComment(ctx context.Context, creds api.Credentials, commentID, content string) (*api.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated[commentID] = content
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return &api.Comment{ID: commentID, Content: content, UpdatedAt: &now}, nil
}

func (f *fakeAPI) DeleteComment(ctx context.Context, creds api.Credentials, commentID string) error {
	f.mu.Lock()
	gate, started := f.deleteGate, f.deleteStarted
	f.mu.Unlock()

	if started != nil {
		started <- commentID
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, commentID)
	return nil
}

func (f *fakeAPI) LikeComment(ctx context.Context, creds api.Credentials, commentID string) error {
	return f.like(commentID, true)
}

func (f *fakeAPI) UnlikeComment(ctx context.Context, creds api.Credentials, commentID string) error {
	return f.like(commentID, false)
}

func (f *fakeAPI) like(commentID string, like bool) error {
	f.mu.Lock()
	gate, started := f.likeGate, f.likeStarted
	f.mu.Unlock()

	if started != nil {
		started <- commentID
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.likeErr != nil {
		return f.likeErr
	}
	f.likeLog = append(f.likeLog, like)
	if like {
		f.likeCalls = append(f.likeCalls, commentID)
	} else {
		f.unlikeCalls = append(f.unlikeCalls, commentID)
	}
	return nil
}

func (f *fakeAPI) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeAPI) replyCallCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replyCalls[id]
}

func (f *fakeAPI) totalReplyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.replyCalls {
		n += c
	}
	return n
}

var errBoom = &api.NetworkError{Status: 500, Code: "internal", Message: "boom"}
