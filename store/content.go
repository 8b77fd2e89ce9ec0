package store

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quickclicks/board/models"
)

// Sentinel errors surfaced by the content store. Controllers map these to
// the response taxonomy.
var (
	ErrNotFound     = errors.New("record not found")
	ErrAuthorBanned = errors.New("author is banned")
	ErrBadParent    = errors.New("parent comment belongs to another thread")
	ErrThreadLocked = errors.New("thread is locked")
)

// ContentStore owns the lifecycle of threads and comments: creation,
// soft-deletion, moderation flag changes and upvote toggling.
type ContentStore struct {
	db *gorm.DB
}

func NewContentStore(db *gorm.DB) *ContentStore {
	return &ContentStore{db: db}
}

// DB exposes the underlying handle for callers that compose queries.
func (s *ContentStore) DB() *gorm.DB {
	return s.db
}

// NewThreadInput carries a validated thread submission.
type NewThreadInput struct {
	Title       string
	Body        string
	AuthorID    uint
	AuthorName  string
	IsAnonymous bool
}

// CreateThread persists a new thread. A banned author is rejected and
// anonymous threads keep the real author recorded for moderation while
// clearing the public attribution.
func (s *ContentStore) CreateThread(in NewThreadInput) (*models.Thread, error) {
	if err := s.ensureNotBanned(in.AuthorID); err != nil {
		return nil, err
	}
	thread := &models.Thread{
		Title:        in.Title,
		Body:         in.Body,
		RealAuthorID: in.AuthorID,
		AuthorName:   in.AuthorName,
		IsAnonymous:  in.IsAnonymous,
	}
	if !in.IsAnonymous {
		authorID := in.AuthorID
		thread.AuthorID = &authorID
	} else {
		thread.AuthorName = ""
	}
	if err := s.db.Create(thread).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

// NewCommentInput carries a validated comment submission.
type NewCommentInput struct {
	ThreadID    uint
	ParentID    *uint
	Body        string
	AuthorID    uint
	AuthorName  string
	IsAnonymous bool
}

// CreateComment persists a reply. The parent, when given, must exist and
// belong to the same thread; replying under a deleted parent is allowed
// so conversations survive moderation.
func (s *ContentStore) CreateComment(in NewCommentInput) (*models.Comment, error) {
	if err := s.ensureNotBanned(in.AuthorID); err != nil {
		return nil, err
	}

	var thread models.Thread
	if err := s.db.Select("id", "is_locked", "is_deleted").
		First(&thread, in.ThreadID).Error; err != nil {
		return nil, ErrNotFound
	}
	if thread.IsDeleted {
		return nil, ErrNotFound
	}

	if in.ParentID != nil {
		var parent models.Comment
		if err := s.db.Select("id", "thread_id").
			First(&parent, *in.ParentID).Error; err != nil {
			return nil, ErrBadParent
		}
		if parent.ThreadID != in.ThreadID {
			return nil, ErrBadParent
		}
	}

	comment := &models.Comment{
		ThreadID:     in.ThreadID,
		ParentID:     in.ParentID,
		Body:         in.Body,
		RealAuthorID: in.AuthorID,
		AuthorName:   in.AuthorName,
		IsAnonymous:  in.IsAnonymous,
	}
	if !in.IsAnonymous {
		authorID := in.AuthorID
		comment.AuthorID = &authorID
	} else {
		comment.AuthorName = ""
	}
	if err := s.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *ContentStore) ensureNotBanned(userID uint) error {
	if userID == 0 {
		return nil
	}
	var user models.User
	if err := s.db.Select("id", "is_banned").First(&user, userID).Error; err != nil {
		return ErrNotFound
	}
	if user.IsBanned {
		return ErrAuthorBanned
	}
	return nil
}

// GetThread fetches one thread. Deleted threads are only visible when
// includeDeleted is set (admin views).
func (s *ContentStore) GetThread(id uint, includeDeleted bool) (*models.Thread, error) {
	var thread models.Thread
	if err := s.db.First(&thread, id).Error; err != nil {
		return nil, ErrNotFound
	}
	if thread.IsDeleted && !includeDeleted {
		return nil, ErrNotFound
	}
	return &thread, nil
}

// ListThreads returns threads ordered pinned first, then newest, then by
// upvotes, with per-thread visible comment counts attached.
func (s *ContentStore) ListThreads(includeDeleted bool) ([]models.Thread, error) {
	query := s.db.Model(&models.Thread{})
	if !includeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	var threads []models.Thread
	if err := query.Find(&threads).Error; err != nil {
		return nil, err
	}
	models.SortThreads(threads)

	type countRow struct {
		ThreadID uint
		N        int64
	}
	var rows []countRow
	countQuery := s.db.Model(&models.Comment{}).
		Select("thread_id, count(*) as n").
		Group("thread_id")
	if !includeDeleted {
		countQuery = countQuery.Where("is_deleted = ?", false)
	}
	if err := countQuery.Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.ThreadID] = row.N
	}
	for i := range threads {
		threads[i].CommentCount = counts[threads[i].ID]
	}
	return threads, nil
}

// ListComments returns a thread's comments in insertion order. When
// deleted comments are excluded, replies under them become orphans and
// the tree builder promotes those to root.
func (s *ContentStore) ListComments(threadID uint, includeDeleted bool) ([]models.Comment, error) {
	query := s.db.Where("thread_id = ?", threadID)
	if !includeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	var comments []models.Comment
	if err := query.Order("id asc").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// SoftDeleteThread marks a thread deleted, recording who and why. Already
// deleted threads are left untouched and reported as unchanged.
func (s *ContentStore) SoftDeleteThread(id, actorID uint, reason string) (*models.Thread, bool, error) {
	var thread models.Thread
	if err := s.db.First(&thread, id).Error; err != nil {
		return nil, false, ErrNotFound
	}
	if thread.IsDeleted {
		return &thread, false, nil
	}
	now := time.Now()
	updates := map[string]interface{}{
		"is_deleted":    true,
		"deleted_at":    now,
		"deleted_by_id": actorID,
		"delete_reason": reason,
	}
	if err := s.db.Model(&thread).Updates(updates).Error; err != nil {
		return nil, false, err
	}
	return &thread, true, nil
}

// RestoreThread clears the deletion flags. Restoring a live thread is a
// no-op.
func (s *ContentStore) RestoreThread(id uint) (*models.Thread, bool, error) {
	var thread models.Thread
	if err := s.db.First(&thread, id).Error; err != nil {
		return nil, false, ErrNotFound
	}
	if !thread.IsDeleted {
		return &thread, false, nil
	}
	updates := map[string]interface{}{
		"is_deleted":    false,
		"deleted_at":    nil,
		"deleted_by_id": nil,
		"delete_reason": "",
	}
	if err := s.db.Model(&thread).Updates(updates).Error; err != nil {
		return nil, false, err
	}
	return &thread, true, nil
}

// SoftDeleteComment marks a comment deleted while keeping it in place so
// its descendants stay reachable.
func (s *ContentStore) SoftDeleteComment(id, actorID uint, reason string) (*models.Comment, bool, error) {
	var comment models.Comment
	if err := s.db.First(&comment, id).Error; err != nil {
		return nil, false, ErrNotFound
	}
	if comment.IsDeleted {
		return &comment, false, nil
	}
	now := time.Now()
	updates := map[string]interface{}{
		"is_deleted":    true,
		"deleted_at":    now,
		"deleted_by_id": actorID,
		"delete_reason": reason,
	}
	if err := s.db.Model(&comment).Updates(updates).Error; err != nil {
		return nil, false, err
	}
	return &comment, true, nil
}

// RestoreComment clears a comment's deletion flags.
func (s *ContentStore) RestoreComment(id uint) (*models.Comment, bool, error) {
	var comment models.Comment
	if err := s.db.First(&comment, id).Error; err != nil {
		return nil, false, ErrNotFound
	}
	if !comment.IsDeleted {
		return &comment, false, nil
	}
	updates := map[string]interface{}{
		"is_deleted":    false,
		"deleted_at":    nil,
		"deleted_by_id": nil,
		"delete_reason": "",
	}
	if err := s.db.Model(&comment).Updates(updates).Error; err != nil {
		return nil, false, err
	}
	return &comment, true, nil
}

// SetThreadPinned flips the pin flag, returning whether anything changed.
func (s *ContentStore) SetThreadPinned(id uint, pinned bool) (*models.Thread, bool, error) {
	return s.setThreadFlag(id, "is_pinned", pinned, func(t *models.Thread) bool { return t.IsPinned })
}

// SetThreadLocked flips the lock flag and stamps who locked it.
func (s *ContentStore) SetThreadLocked(id, actorID uint, locked bool) (*models.Thread, bool, error) {
	var thread models.Thread
	if err := s.db.First(&thread, id).Error; err != nil {
		return nil, false, ErrNotFound
	}
	if thread.IsLocked == locked {
		return &thread, false, nil
	}
	updates := map[string]interface{}{"is_locked": locked}
	if locked {
		now := time.Now()
		updates["locked_at"] = now
		updates["locked_by_id"] = actorID
	} else {
		updates["locked_at"] = nil
		updates["locked_by_id"] = nil
	}
	if err := s.db.Model(&thread).Updates(updates).Error; err != nil {
		return nil, false, err
	}
	return &thread, true, nil
}

func (s *ContentStore) setThreadFlag(id uint, column string, value bool, current func(*models.Thread) bool) (*models.Thread, bool, error) {
	var thread models.Thread
	if err := s.db.First(&thread, id).Error; err != nil {
		return nil, false, ErrNotFound
	}
	if current(&thread) == value {
		return &thread, false, nil
	}
	if err := s.db.Model(&thread).Update(column, value).Error; err != nil {
		return nil, false, err
	}
	return &thread, true, nil
}

// ToggleThreadUpvote adds the user's upvote, or removes it when already
// present. The unique index on (thread_id, user_id) makes the toggle safe
// under concurrent requests; the stored count is recomputed from the join
// table so it always equals the number of distinct upvoters.
func (s *ContentStore) ToggleThreadUpvote(threadID, userID uint) (int64, bool, error) {
	var thread models.Thread
	if err := s.db.Select("id", "is_deleted").First(&thread, threadID).Error; err != nil {
		return 0, false, ErrNotFound
	}
	if thread.IsDeleted {
		return 0, false, ErrNotFound
	}

	var count int64
	var upvoted bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ThreadUpvote{ThreadID: threadID, UserID: userID})
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			if err := tx.Where("thread_id = ? AND user_id = ?", threadID, userID).
				Delete(&models.ThreadUpvote{}).Error; err != nil {
				return err
			}
			upvoted = false
		} else {
			upvoted = true
		}
		if err := tx.Model(&models.ThreadUpvote{}).
			Where("thread_id = ?", threadID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.Thread{}).Where("id = ?", threadID).
			Update("upvote_count", count).Error
	})
	if err != nil {
		return 0, false, err
	}
	return count, upvoted, nil
}

// ToggleCommentUpvote mirrors ToggleThreadUpvote for comments.
func (s *ContentStore) ToggleCommentUpvote(commentID, userID uint) (int64, bool, error) {
	var comment models.Comment
	if err := s.db.Select("id", "is_deleted").First(&comment, commentID).Error; err != nil {
		return 0, false, ErrNotFound
	}
	if comment.IsDeleted {
		return 0, false, ErrNotFound
	}

	var count int64
	var upvoted bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CommentUpvote{CommentID: commentID, UserID: userID})
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			if err := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).
				Delete(&models.CommentUpvote{}).Error; err != nil {
				return err
			}
			upvoted = false
		} else {
			upvoted = true
		}
		if err := tx.Model(&models.CommentUpvote{}).
			Where("comment_id = ?", commentID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).Where("id = ?", commentID).
			Update("upvote_count", count).Error
	})
	if err != nil {
		return 0, false, err
	}
	return count, upvoted, nil
}

// BulkActionResult reports which targets a bulk action actually changed.
type BulkActionResult struct {
	Requested  []uint
	ChangedIDs []uint
}

// BulkThreadAction applies delete or restore across many threads at once.
// Missing ids and already-satisfied threads are skipped silently.
func (s *ContentStore) BulkThreadAction(ids []uint, action string, actorID uint, reason string) (*BulkActionResult, error) {
	result := &BulkActionResult{Requested: ids}
	for _, id := range ids {
		var changed bool
		var err error
		switch action {
		case "delete":
			_, changed, err = s.SoftDeleteThread(id, actorID, reason)
		case "restore":
			_, changed, err = s.RestoreThread(id)
		default:
			return nil, errors.New("unsupported bulk action: " + action)
		}
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if changed {
			result.ChangedIDs = append(result.ChangedIDs, id)
		}
	}
	return result, nil
}

// BulkCommentAction applies delete or restore across many comments at once,
// with the same skip semantics as BulkThreadAction.
func (s *ContentStore) BulkCommentAction(ids []uint, action string, actorID uint, reason string) (*BulkActionResult, error) {
	result := &BulkActionResult{Requested: ids}
	for _, id := range ids {
		var changed bool
		var err error
		switch action {
		case "delete":
			_, changed, err = s.SoftDeleteComment(id, actorID, reason)
		case "restore":
			_, changed, err = s.RestoreComment(id)
		default:
			return nil, errors.New("unsupported bulk action: " + action)
		}
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if changed {
			result.ChangedIDs = append(result.ChangedIDs, id)
		}
	}
	return result, nil
}
