package models

import "time"

// Comment is a reply within a thread. ParentID points at another comment in
// the same thread, or is nil for a top-level comment. Anonymity and deletion
// semantics mirror Thread.
type Comment struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ThreadID     uint   `gorm:"index;not null" json:"thread_id"`
	ParentID     *uint  `gorm:"index" json:"parent_id,omitempty"`
	Body         string `gorm:"type:text;not null" json:"body"`
	AuthorID     *uint  `gorm:"index" json:"author_id,omitempty"`
	RealAuthorID uint   `gorm:"index;not null" json:"-"`
	AuthorName   string `gorm:"size:64" json:"author_name"`
	IsAnonymous  bool   `gorm:"default:false" json:"is_anonymous"`

	UpvoteCount int64 `gorm:"default:0" json:"upvote_count"`

	IsDeleted    bool       `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	DeletedByID  *uint      `json:"-"`
	DeleteReason string     `gorm:"size:1000" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AuthorDisplay string `gorm:"-" json:"author_display,omitempty"`
}

// CommentUpvote is one user's upvote on a comment; see ThreadUpvote.
type CommentUpvote struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CommentID uint      `gorm:"uniqueIndex:idx_comment_upvoter;not null" json:"comment_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_comment_upvoter;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName resolves the public-facing author name, honoring anonymity.
func (c *Comment) DisplayName() string {
	if c.IsAnonymous {
		return "Anonymous"
	}
	if c.AuthorName != "" {
		return c.AuthorName
	}
	return "Unknown"
}
