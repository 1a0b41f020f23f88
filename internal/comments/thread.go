package comments

import "github.com/cine-social/cine-cli/internal/api"

// Node is one comment of the displayed thread. Replies is populated only for
// expanded nodes.
type Node struct {
	api.DetailedComment
	Expanded bool   `json:"expanded"`
	Replies  []Node `json:"replies,omitempty"`
}

// TopLevel returns the comments without a parent: the viewer's own first,
// then everyone else's, each group in Store order. It is recomputed on every
// call.
func (s *Section) TopLevel() []api.DetailedComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return topLevel(s.store, s.viewer.User.ID)
}

// RepliesOf returns the direct replies of parentID held in the section, in
// Store order.
func (s *Section) RepliesOf(parentID string) []api.DetailedComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repliesOf(s.store, parentID)
}

// Thread returns the displayed thread: the top-level comments, with the
// replies of every expanded comment nested below it.
func (s *Section) Thread() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	visited := make(map[string]struct{})
	var build func(list []api.DetailedComment) []Node
	build = func(list []api.DetailedComment) []Node {
		nodes := make([]Node, 0, len(list))
		for _, dc := range list {
			id := dc.Comment.ID
			if _, ok := visited[id]; ok {
				continue
			}
			visited[id] = struct{}{}

			n := Node{DetailedComment: dc}
			if _, ok := s.expanded[id]; ok {
				n.Expanded = true
				n.Replies = build(repliesOf(s.store, id))
			}
			nodes = append(nodes, n)
		}
		return nodes
	}
	return build(topLevel(s.store, s.viewer.User.ID))
}

func topLevel(store *Store, viewerID string) []api.DetailedComment {
	var own, others []api.DetailedComment
	for _, dc := range store.All() {
		if dc.Comment.IsReply() {
			continue
		}
		if authoredBy(dc, viewerID) {
			own = append(own, dc)
		} else {
			others = append(others, dc)
		}
	}
	return append(own, others...)
}

func repliesOf(store *Store, parentID string) []api.DetailedComment {
	ids := store.ChildIDs(parentID)
	out := make([]api.DetailedComment, 0, len(ids))
	for _, id := range ids {
		if dc, ok := store.Get(id); ok {
			out = append(out, dc)
		}
	}
	return out
}

// authoredBy reports whether dc was written by the given user. Comments of
// deleted authors belong to nobody.
func authoredBy(dc api.DetailedComment, userID string) bool {
	if userID == "" {
		return false
	}
	if dc.Comment.UserID != nil {
		return *dc.Comment.UserID == userID
	}
	return dc.User.ID == userID
}
