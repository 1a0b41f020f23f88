package comments

import (
	"testing"

	"github.com/cine-social/cine-cli/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReplaceKeepsFirstDuplicate(t *testing.T) {
	first := mkComment("a", "", "u1", 0)
	dup := mkComment("a", "", "u1", 0)
	dup.Comment.Content = "second copy"

	s := NewStore()
	s.Replace([]api.DetailedComment{first, mkComment("b", "", "u2", 0), dup})

	assert.Equal(t, []string{"a", "b"}, ids(s.All()))
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "comment a", got.Comment.Content)
}

func TestStoreReplaceDiscardsPrevious(t *testing.T) {
	s := NewStore()
	s.Replace([]api.DetailedComment{mkComment("a", "", "u1", 1), mkComment("r", "a", "u1", 0)})
	s.Replace([]api.DetailedComment{mkComment("b", "", "u1", 0)})

	assert.Equal(t, []string{"b"}, ids(s.All()))
	assert.False(t, s.Has("a"))
	assert.Empty(t, s.ChildIDs("a"))
}

func TestStoreMergeIsIdempotent(t *testing.T) {
	s := NewStore()
	s.Replace([]api.DetailedComment{mkComment("a", "", "u1", 2)})

	replies := []api.DetailedComment{mkComment("b", "a", "u2", 0), mkComment("c", "a", "u3", 0)}
	assert.Equal(t, 2, s.Merge(replies))
	assert.Equal(t, 0, s.Merge(replies))

	// A second response in a different order adds nothing either.
	assert.Equal(t, 0, s.Merge([]api.DetailedComment{replies[1], replies[0]}))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"b", "c"}, s.ChildIDs("a"))
}

func TestStoreMergeKeepsLocalCopy(t *testing.T) {
	s := NewStore()
	local := mkComment("r", "a", viewerID, 0)
	local.Comment.Content = "local"
	s.Replace([]api.DetailedComment{mkComment("a", "", "u1", 2)})
	s.Prepend(local)

	server := mkComment("r", "a", viewerID, 0)
	server.Comment.Content = "server"
	s.Merge([]api.DetailedComment{mkComment("b", "a", "u2", 0), server})

	got, _ := s.Get("r")
	assert.Equal(t, "local", got.Comment.Content)
	assert.Equal(t, []string{"r", "b"}, s.ChildIDs("a"))
}

func TestStorePrependMovesExisting(t *testing.T) {
	s := NewStore()
	s.Replace([]api.DetailedComment{
		mkComment("a", "", "u1", 1),
		mkComment("b", "", "u1", 0),
		mkComment("c", "a", "u1", 0),
	})

	updated := mkComment("b", "", "u1", 0)
	updated.Comment.Content = "updated"
	s.Prepend(updated)

	assert.Equal(t, []string{"b", "a", "c"}, ids(s.All()))
	got, _ := s.Get("b")
	assert.Equal(t, "updated", got.Comment.Content)

	// Replacing a parent keeps the index of its replies.
	s.Prepend(mkComment("a", "", "u1", 1))
	assert.Equal(t, []string{"c"}, s.ChildIDs("a"))
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Replace([]api.DetailedComment{mkComment("a", "", "u1", 0)})

	got, _ := s.Get("a")
	got.LikesCount = 99

	again, _ := s.Get("a")
	assert.Equal(t, 0, again.LikesCount)
}

func TestStoreRemoveSubtree(t *testing.T) {
	s := NewStore()
	s.Replace([]api.DetailedComment{
		mkComment("p", "", "u1", 1),
		mkComment("a", "p", "u1", 2),
		mkComment("b", "a", "u2", 1),
		mkComment("e", "a", "u2", 0),
		mkComment("c", "b", "u3", 0),
		mkComment("d", "", "u4", 0),
	})

	removed := s.RemoveSubtree("a")

	assert.Equal(t, []string{"a", "b", "e", "c"}, removed)
	assert.Equal(t, []string{"p", "d"}, ids(s.All()))
	assert.Empty(t, s.ChildIDs("p"))
	assert.Empty(t, s.ChildIDs("a"))
	assert.Empty(t, s.ChildIDs("b"))
}

func TestStoreRemoveSubtreeUnknown(t *testing.T) {
	s := NewStore()
	s.Replace([]api.DetailedComment{mkComment("a", "", "u1", 0)})

	assert.Nil(t, s.RemoveSubtree("missing"))
	assert.Equal(t, 1, s.Len())
}

func TestStoreRemoveSubtreeCycle(t *testing.T) {
	s := NewStore()
	s.Replace([]api.DetailedComment{
		mkComment("x", "y", "u1", 1),
		mkComment("y", "x", "u1", 1),
		mkComment("z", "", "u1", 0),
	})

	removed := s.RemoveSubtree("x")

	assert.ElementsMatch(t, []string{"x", "y"}, removed)
	assert.Equal(t, []string{"z"}, ids(s.All()))
}

func TestStoreIgnoresEmptyIDs(t *testing.T) {
	s := NewStore()
	s.Replace([]api.DetailedComment{mkComment("", "", "u1", 0), mkComment("a", "", "u1", 0)})
	s.Prepend(mkComment("", "", "u1", 0))

	assert.Equal(t, []string{"a"}, ids(s.All()))
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()
	s.Replace([]api.DetailedComment{mkComment("a", "", "u1", 0)})

	assert.True(t, s.Update("a", func(dc *api.DetailedComment) { dc.LikesCount = 3 }))
	assert.False(t, s.Update("missing", func(dc *api.DetailedComment) { dc.LikesCount = 3 }))

	got, _ := s.Get("a")
	assert.Equal(t, 3, got.LikesCount)
}
