package models

import "time"

// Report target types.
const (
	TargetThread  = "thread"
	TargetComment = "comment"
	TargetUser    = "user"
	TargetReport  = "report"
)

// StatusOpen is the default workflow state for a new report. Status is a free
// string rather than an enum: older clients submit values like "new" or
// "pending" and the admin views group them by convention instead of rejecting
// them. Tightening this would be a breaking change, not a cleanup.
const StatusOpen = "open"

// Report is an abuse flag raised by a user against a thread, comment or user.
// Only admins transition status and attach resolution metadata.
type Report struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TargetType string `gorm:"size:16;index;not null" json:"target_type"`
	TargetID   uint   `gorm:"index;not null" json:"target_id"`
	ReporterID uint   `gorm:"index" json:"reporter_id"`

	Category string `gorm:"size:100" json:"category"`
	Reason   string `gorm:"size:2000" json:"reason"`
	Details  string `gorm:"size:4000" json:"details"`

	Status         string     `gorm:"size:64;index;default:'open'" json:"status"`
	ResolutionNote string     `gorm:"size:10000" json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedByID   *uint      `json:"resolved_by_id,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
