package comments

import "github.com/cine-social/cine-cli/internal/api"

// Store is the ordered, flat collection of comments of one media item.
//
// Ids are unique. Entries only ever enter at the front (Prepend) or the back
// (Merge, Replace), so each children list kept in the adjacency index is in
// Store order without re-sorting.
//
// Store is not safe for concurrent use; Section serializes access.
type Store struct {
	order    []string
	byID     map[string]*api.DetailedComment
	children map[string][]string // parent id -> direct reply ids, Store order
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byID:     make(map[string]*api.DetailedComment),
		children: make(map[string][]string),
	}
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.order) }

// Has reports whether the store holds a comment with the given id.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Get returns a copy of the entry with the given id.
func (s *Store) Get(id string) (api.DetailedComment, bool) {
	dc, ok := s.byID[id]
	if !ok {
		return api.DetailedComment{}, false
	}
	return *dc, true
}

// All returns copies of every entry in Store order.
func (s *Store) All() []api.DetailedComment {
	out := make([]api.DetailedComment, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Replace discards the current contents and loads list, keeping the first
// occurrence of any duplicated id.
func (s *Store) Replace(list []api.DetailedComment) {
	s.order = s.order[:0]
	s.byID = make(map[string]*api.DetailedComment, len(list))
	s.children = make(map[string][]string)
	s.Merge(list)
}

// Merge appends the entries of list whose ids are not already present, in list
// order. Existing entries win over incoming copies. It returns the number of
// entries added. Merging the same list twice is a no-op the second time.
func (s *Store) Merge(list []api.DetailedComment) int {
	added := 0
	for i := range list {
		id := list[i].Comment.ID
		if id == "" || s.Has(id) {
			continue
		}
		dc := list[i]
		s.byID[id] = &dc
		s.order = append(s.order, id)
		if parent := dc.Comment.Parent(); parent != "" {
			s.children[parent] = append(s.children[parent], id)
		}
		added++
	}
	return added
}

// Prepend inserts dc at the front. An existing entry with the same id is
// replaced, so the new copy becomes the first occurrence.
func (s *Store) Prepend(dc api.DetailedComment) {
	id := dc.Comment.ID
	if id == "" {
		return
	}
	if s.Has(id) {
		s.remove(id)
	}
	s.byID[id] = &dc
	s.order = append([]string{id}, s.order...)
	if parent := dc.Comment.Parent(); parent != "" {
		s.children[parent] = append([]string{id}, s.children[parent]...)
	}
}

// Update applies fn to the entry with the given id in place. It reports
// whether the entry exists.
func (s *Store) Update(id string, fn func(dc *api.DetailedComment)) bool {
	dc, ok := s.byID[id]
	if !ok {
		return false
	}
	fn(dc)
	return true
}

// ChildIDs returns the ids of the direct replies of parentID in Store order.
func (s *Store) ChildIDs(parentID string) []string {
	return append([]string(nil), s.children[parentID]...)
}

// RemoveSubtree removes the comment with the given id and every comment whose
// parent chain reaches it, collecting the subtree breadth-first. It returns
// the removed ids, root first; nil when id is unknown.
func (s *Store) RemoveSubtree(id string) []string {
	if !s.Has(id) {
		return nil
	}

	removed := []string{id}
	gone := map[string]struct{}{id: {}}
	for i := 0; i < len(removed); i++ {
		for _, child := range s.children[removed[i]] {
			if _, seen := gone[child]; seen {
				continue
			}
			gone[child] = struct{}{}
			removed = append(removed, child)
		}
	}
	s.dropIDs(gone, true)
	return removed
}

// remove deletes a single entry, leaving its replies and their index in place.
func (s *Store) remove(id string) {
	s.dropIDs(map[string]struct{}{id: {}}, false)
}

func (s *Store) dropIDs(gone map[string]struct{}, withChildren bool) {
	kept := s.order[:0]
	for _, oid := range s.order {
		if _, ok := gone[oid]; !ok {
			kept = append(kept, oid)
		}
	}
	s.order = kept

	for id := range gone {
		if dc, ok := s.byID[id]; ok {
			if parent := dc.Comment.Parent(); parent != "" {
				s.children[parent] = without(s.children[parent], id)
				if len(s.children[parent]) == 0 {
					delete(s.children, parent)
				}
			}
		}
		delete(s.byID, id)
		if withChildren {
			delete(s.children, id)
		}
	}
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
