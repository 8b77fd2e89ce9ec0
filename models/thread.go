package models

import "time"

// Thread is a top-level discussion. Content is never hard-deleted: moderation
// flips the soft-delete flags and the public read paths filter on them.
//
// AuthorID is nil exactly when the thread was posted anonymously; RealAuthorID
// always records who posted so administrators can attribute content.
type Thread struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Title        string `gorm:"size:255;not null" json:"title"`
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

	IsPinned   bool       `gorm:"default:false;index" json:"is_pinned"`
	IsLocked   bool       `gorm:"default:false" json:"is_locked"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	LockedByID *uint      `json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Populated by read paths, not persisted.
	CommentCount  int64  `gorm:"-" json:"comment_count"`
	AuthorDisplay string `gorm:"-" json:"author_display,omitempty"`
}

// ThreadUpvote is one user's upvote on a thread. The composite unique index is
// what makes toggling atomic: concurrent inserts for the same pair collapse to
// a single row instead of double-counting.
type ThreadUpvote struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ThreadID  uint      `gorm:"uniqueIndex:idx_thread_upvoter;not null" json:"thread_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_thread_upvoter;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName resolves the public-facing author name, honoring anonymity.
func (t *Thread) DisplayName() string {
	if t.IsAnonymous {
		return "Anonymous"
	}
	if t.AuthorName != "" {
		return t.AuthorName
	}
	return "Unknown"
}
