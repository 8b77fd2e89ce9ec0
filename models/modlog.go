package models

import "time"

// Moderation action taxonomy. The set is open: bulk and future actions use the
// same `<target>_<verb>` shape without a schema change.
const (
	ActionThreadPinned      = "thread_pinned"
	ActionThreadUnpinned    = "thread_unpinned"
	ActionThreadLocked      = "thread_locked"
	ActionThreadUnlocked    = "thread_unlocked"
	ActionThreadDeleted     = "thread_deleted"
	ActionThreadRestored    = "thread_restored"
	ActionCommentDeleted    = "comment_deleted"
	ActionCommentRestored   = "comment_restored"
	ActionReportResolved    = "report_resolved"
	ActionBulkResolved      = "reports_bulk_resolved"
	ActionBulkThreadChange  = "threads_bulk_changed"
	ActionBulkCommentChange = "comments_bulk_changed"
	ActionUserBanned        = "user_banned"
	ActionUserUnbanned      = "user_unbanned"
	ActionRoleGranted       = "role_granted_admin"
	ActionRoleRevoked       = "role_revoked_admin"
	ActionUserNoted         = "user_noted"
)

// ModLog is the append-only audit trail. Rows are created as a side effect of
// every moderation mutation and never updated or deleted afterwards.
//
// TargetID is a string so aggregate entries can use the sentinel "bulk" while
// single-target entries carry the numeric id.
type ModLog struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Type       string  `gorm:"size:64;index;not null" json:"type"`
	TargetType string  `gorm:"size:16;index;not null" json:"target_type"`
	TargetID   string  `gorm:"size:64;index;not null" json:"target_id"`
	ActorID    uint    `gorm:"index;not null" json:"actor_id"`
	Note       string  `gorm:"size:2000" json:"note"`
	Meta       JSONMap `gorm:"type:text" json:"meta"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// FlagSnapshot captures the boolean moderation state of an entity at a point
// in time; logged before and after each action.
type FlagSnapshot struct {
	Pinned  bool `json:"pinned"`
	Locked  bool `json:"locked"`
	Deleted bool `json:"deleted"`
}

// SnapshotThread reads a thread's moderation flags.
func SnapshotThread(t *Thread) FlagSnapshot {
	return FlagSnapshot{Pinned: t.IsPinned, Locked: t.IsLocked, Deleted: t.IsDeleted}
}

// SnapshotComment reads a comment's moderation flags.
func SnapshotComment(c *Comment) FlagSnapshot {
	return FlagSnapshot{Deleted: c.IsDeleted}
}

func (s FlagSnapshot) toMap() map[string]any {
	return map[string]any{"pinned": s.Pinned, "locked": s.Locked, "deleted": s.Deleted}
}

// BeforeAfterMeta builds the structured snapshot pair stored on a log entry.
func BeforeAfterMeta(before, after FlagSnapshot) JSONMap {
	return JSONMap{"before": before.toMap(), "after": after.toMap()}
}
