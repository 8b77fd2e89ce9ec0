package models

import "time"

// Notification event types.
const (
	NotifReportCreated  = "report_created"
	NotifReportResolved = "report_resolved"
)

// Notification is an in-app message for one user. ReadAt nil means unread.
// Rows are mutated only to set ReadAt, and may be bulk-deleted by their owner.
type Notification struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	UserID uint    `gorm:"index;not null" json:"user_id"`
	Type   string  `gorm:"size:64;index" json:"type"`
	Title  string  `gorm:"size:200" json:"title"`
	Body   string  `gorm:"size:5000" json:"body"`
	Link   string  `gorm:"size:512" json:"link"`
	Meta   JSONMap `gorm:"type:text" json:"meta"`

	ReadAt    *time.Time `gorm:"index" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
