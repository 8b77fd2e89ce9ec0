package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/quickclicks/board/models"
)

// idsSampleCap bounds how many ids a bulk log entry records verbatim; the
// full count is always kept alongside.
const idsSampleCap = 10

// ModLogStore is the append-only audit trail for moderation actions.
// Entries are never updated or deleted.
type ModLogStore struct {
	db *gorm.DB
}

func NewModLogStore(db *gorm.DB) *ModLogStore {
	return &ModLogStore{db: db}
}

// LogThreadAction records a single-thread moderation action with flag
// snapshots from before and after the change.
func (s *ModLogStore) LogThreadAction(action string, actorID uint, before, after models.FlagSnapshot, threadID uint, note string) error {
	entry := &models.ModLog{
		Type:       action,
		TargetType: models.TargetThread,
		TargetID:   fmt.Sprintf("%d", threadID),
		ActorID:    actorID,
		Note:       note,
		Meta:       models.BeforeAfterMeta(before, after),
	}
	return s.db.Create(entry).Error
}

// LogCommentAction mirrors LogThreadAction for comments.
func (s *ModLogStore) LogCommentAction(action string, actorID uint, before, after models.FlagSnapshot, commentID uint, note string) error {
	entry := &models.ModLog{
		Type:       action,
		TargetType: models.TargetComment,
		TargetID:   fmt.Sprintf("%d", commentID),
		ActorID:    actorID,
		Note:       note,
		Meta:       models.BeforeAfterMeta(before, after),
	}
	return s.db.Create(entry).Error
}

// LogReportResolved records one report's resolution.
func (s *ModLogStore) LogReportResolved(actorID, reportID uint, status, note string) error {
	entry := &models.ModLog{
		Type:       models.ActionReportResolved,
		TargetType: models.TargetReport,
		TargetID:   fmt.Sprintf("%d", reportID),
		ActorID:    actorID,
		Note:       note,
		Meta:       models.JSONMap{"status": status},
	}
	return s.db.Create(entry).Error
}

// LogBulk records a bulk action as one entry: a sample of the affected
// ids plus the total, never the entire id list.
func (s *ModLogStore) LogBulk(action, targetType string, actorID uint, ids []uint, note string, extra models.JSONMap) error {
	sample := ids
	if len(sample) > idsSampleCap {
		sample = sample[:idsSampleCap]
	}
	meta := models.JSONMap{
		"idsSample": sample,
		"idsCount":  len(ids),
	}
	for key, value := range extra {
		meta[key] = value
	}
	entry := &models.ModLog{
		Type:       action,
		TargetType: targetType,
		TargetID:   "bulk",
		ActorID:    actorID,
		Note:       note,
		Meta:       meta,
	}
	return s.db.Create(entry).Error
}

// LogUserAction records ban toggles, role changes and moderator notes
// against a user account.
func (s *ModLogStore) LogUserAction(action string, actorID, userID uint, note string, meta models.JSONMap) error {
	entry := &models.ModLog{
		Type:       action,
		TargetType: models.TargetUser,
		TargetID:   fmt.Sprintf("%d", userID),
		ActorID:    actorID,
		Note:       note,
		Meta:       meta,
	}
	return s.db.Create(entry).Error
}

// Recent returns the latest entries, newest first.
func (s *ModLogStore) Recent(limit int) ([]models.ModLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.ModLog
	err := s.db.Order("created_at desc, id desc").Limit(limit).Find(&entries).Error
	return entries, err
}

// ByTarget lists all entries against one target, newest first.
func (s *ModLogStore) ByTarget(targetType, targetID string) ([]models.ModLog, error) {
	var entries []models.ModLog
	err := s.db.Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at desc, id desc").Find(&entries).Error
	return entries, err
}

// ByActor lists all entries performed by one moderator, newest first.
func (s *ModLogStore) ByActor(actorID uint, limit int) ([]models.ModLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.ModLog
	err := s.db.Where("actor_id = ?", actorID).
		Order("created_at desc, id desc").Limit(limit).Find(&entries).Error
	return entries, err
}
