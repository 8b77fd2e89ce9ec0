package models

import "sort"

// CommentNode is a comment with its replies attached, as served to clients.
type CommentNode struct {
	Comment
	Children []*CommentNode `json:"children"`
}

// BuildCommentTree assembles a flat comment list into a forest of root nodes.
//
// A comment whose parent id does not resolve within the input set is promoted
// to a root instead of being dropped: a reply must never disappear just
// because its parent was deleted. Every input comment appears in the output
// exactly once.
func BuildCommentTree(comments []Comment) []*CommentNode {
	byID := make(map[uint]*CommentNode, len(comments))
	ordered := make([]*CommentNode, 0, len(comments))
	for i := range comments {
		node := &CommentNode{Comment: comments[i], Children: []*CommentNode{}}
		byID[node.ID] = node
		ordered = append(ordered, node)
	}

	roots := make([]*CommentNode, 0, len(comments))
	for _, node := range ordered {
		if node.ParentID != nil {
			if parent, ok := byID[*node.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node) // orphan -> root
	}
	return roots
}

// SortCommentTree orders every sibling list recursively: newest first, ties
// broken by higher upvote count.
func SortCommentTree(nodes []*CommentNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.UpvoteCount > b.UpvoteCount
	})
	for _, n := range nodes {
		SortCommentTree(n.Children)
	}
}

// CountTreeNodes returns the total number of nodes across the forest.
func CountTreeNodes(nodes []*CommentNode) int {
	total := 0
	for _, n := range nodes {
		total += 1 + CountTreeNodes(n.Children)
	}
	return total
}

// SortThreads orders a listing: pinned first, then newest, then highest
// upvotes. Pin status dominates recency.
func SortThreads(threads []Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i], threads[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.UpvoteCount > b.UpvoteCount
	})
}
