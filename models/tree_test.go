package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(minutesAgo int) time.Time {
	return time.Now().Add(-time.Duration(minutesAgo) * time.Minute)
}

func TestBuildCommentTreeNesting(t *testing.T) {
	comments := []Comment{
		{ID: 1, ThreadID: 1},
		{ID: 2, ThreadID: 1, ParentID: uintPtr(1)},
		{ID: 3, ThreadID: 1, ParentID: uintPtr(2)},
		{ID: 4, ThreadID: 1},
	}

	roots := BuildCommentTree(comments)
	require.Len(t, roots, 2)
	assert.Equal(t, uint(1), roots[0].ID)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, uint(2), roots[0].Children[0].ID)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, uint(3), roots[0].Children[0].Children[0].ID)
	assert.Empty(t, roots[1].Children)
}

func TestBuildCommentTreePromotesOrphans(t *testing.T) {
	// Parent 99 is not in the visible set (deleted): its children must
	// surface at root instead of vanishing.
	comments := []Comment{
		{ID: 1, ThreadID: 1},
		{ID: 2, ThreadID: 1, ParentID: uintPtr(99)},
		{ID: 3, ThreadID: 1, ParentID: uintPtr(2)},
	}

	roots := BuildCommentTree(comments)
	require.Len(t, roots, 2)

	ids := []uint{roots[0].ID, roots[1].ID}
	assert.Contains(t, ids, uint(1))
	assert.Contains(t, ids, uint(2))

	for _, root := range roots {
		if root.ID == 2 {
			require.Len(t, root.Children, 1)
			assert.Equal(t, uint(3), root.Children[0].ID)
		}
	}
}

func TestBuildCommentTreeSelfParent(t *testing.T) {
	comments := []Comment{
		{ID: 5, ThreadID: 1, ParentID: uintPtr(5)},
	}
	roots := BuildCommentTree(comments)
	require.Len(t, roots, 1)
	assert.Empty(t, roots[0].Children)
}

func TestSortCommentTreeNewestThenUpvotes(t *testing.T) {
	sameTime := at(10)
	comments := []Comment{
		{ID: 1, CreatedAt: at(30), UpvoteCount: 0},
		{ID: 2, CreatedAt: at(5), UpvoteCount: 0},
		{ID: 3, CreatedAt: sameTime, UpvoteCount: 2},
		{ID: 4, CreatedAt: sameTime, UpvoteCount: 7},
		{ID: 5, ThreadID: 1, ParentID: uintPtr(1), CreatedAt: at(1)},
		{ID: 6, ThreadID: 1, ParentID: uintPtr(1), CreatedAt: at(2)},
	}

	roots := BuildCommentTree(comments)
	SortCommentTree(roots)

	require.Len(t, roots, 4)
	assert.Equal(t, uint(2), roots[0].ID) // newest first
	assert.Equal(t, uint(4), roots[1].ID) // same age: more upvotes wins
	assert.Equal(t, uint(3), roots[2].ID)
	assert.Equal(t, uint(1), roots[3].ID)

	// Children sorted too.
	require.Len(t, roots[3].Children, 2)
	assert.Equal(t, uint(5), roots[3].Children[0].ID)
	assert.Equal(t, uint(6), roots[3].Children[1].ID)
}

func TestCountTreeNodes(t *testing.T) {
	comments := []Comment{
		{ID: 1},
		{ID: 2, ParentID: uintPtr(1)},
		{ID: 3, ParentID: uintPtr(2)},
		{ID: 4},
	}
	roots := BuildCommentTree(comments)
	assert.Equal(t, 4, CountTreeNodes(roots))
}

func TestSortThreadsPinnedNewestUpvotes(t *testing.T) {
	sameTime := at(20)
	threads := []Thread{
		{ID: 1, CreatedAt: at(1)},
		{ID: 2, IsPinned: true, CreatedAt: at(60)},
		{ID: 3, CreatedAt: sameTime, UpvoteCount: 9},
		{ID: 4, CreatedAt: sameTime, UpvoteCount: 1},
		{ID: 5, IsPinned: true, CreatedAt: at(2)},
	}

	SortThreads(threads)

	assert.Equal(t, uint(5), threads[0].ID) // pinned, newer
	assert.Equal(t, uint(2), threads[1].ID) // pinned, older
	assert.Equal(t, uint(1), threads[2].ID) // newest unpinned
	assert.Equal(t, uint(3), threads[3].ID) // same age, more upvotes
	assert.Equal(t, uint(4), threads[4].ID)
}

func TestDisplayNameAnonymity(t *testing.T) {
	named := Thread{AuthorName: "alice", AuthorID: uintPtr(7)}
	assert.Equal(t, "alice", named.DisplayName())

	anon := Thread{IsAnonymous: true, RealAuthorID: 7}
	assert.Equal(t, "Anonymous", anon.DisplayName())

	anonComment := Comment{IsAnonymous: true, RealAuthorID: 7}
	assert.Equal(t, "Anonymous", anonComment.DisplayName())
}

func uintPtr(v uint) *uint { return &v }
