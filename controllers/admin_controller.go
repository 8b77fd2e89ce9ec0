package controllers

import (
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quickclicks/board/middleware"
	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/notify"
	"github.com/quickclicks/board/store"
	"github.com/quickclicks/board/utils"
)

// AdminController hosts the moderation surface: report handling, content
// lifecycle actions, user management and the audit trail.
type AdminController struct {
	db      *gorm.DB
	content *store.ContentStore
	reports *store.ReportStore
	modlog  *store.ModLogStore
	fanout  *notify.Fanout
}

func NewAdminController(db *gorm.DB, content *store.ContentStore, reports *store.ReportStore, modlog *store.ModLogStore, fanout *notify.Fanout) *AdminController {
	return &AdminController{db: db, content: content, reports: reports, modlog: modlog, fanout: fanout}
}

// Metrics returns board-wide counters for the admin dashboard.
func (a *AdminController) Metrics(ctx *gin.Context) {
	var users, banned, threads, deletedThreads, comments, openReports, totalReports int64
	a.db.Model(&models.User{}).Count(&users)
	a.db.Model(&models.User{}).Where("is_banned = ?", true).Count(&banned)
	a.db.Model(&models.Thread{}).Count(&threads)
	a.db.Model(&models.Thread{}).Where("is_deleted = ?", true).Count(&deletedThreads)
	a.db.Model(&models.Comment{}).Where("is_deleted = ?", false).Count(&comments)
	a.db.Model(&models.Report{}).Count(&totalReports)

	reports, err := a.reports.ListReports(true, false)
	if err == nil {
		openReports = int64(len(reports))
	}

	utils.Success(ctx, gin.H{
		"users":           users,
		"banned_users":    banned,
		"threads":         threads,
		"deleted_threads": deletedThreads,
		"comments":        comments,
		"reports_total":   totalReports,
		"reports_open":    openReports,
	})
}

// ListReports returns the moderation queue. status=open or status=resolved
// narrows the bucket; anything non-open counts as resolved.
func (a *AdminController) ListReports(ctx *gin.Context) {
	status := ctx.Query("status")
	reports, err := a.reports.ListReports(status == "open", status == "resolved")
	if err != nil {
		utils.FailInternal(ctx, "failed to list reports")
		return
	}
	utils.Success(ctx, gin.H{"reports": reports})
}

// ResolveReport closes a report, logs the action and notifies the
// reporter plus the owner of the reported content.
func (a *AdminController) ResolveReport(ctx *gin.Context) {
	reportID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid report id")
		return
	}
	var req struct {
		Status string `json:"status" binding:"max=64"`
		Note   string `json:"note" binding:"max=2000"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid resolution payload")
		return
	}
	actorID, _ := middleware.CurrentUserID(ctx)

	report, err := a.reports.Resolve(uint(reportID), actorID, req.Status, req.Note)
	if err != nil {
		failStoreError(ctx, err, "failed to resolve report")
		return
	}

	if err := a.modlog.LogReportResolved(actorID, report.ID, report.Status, req.Note); err != nil {
		utils.Logger.Warn("modlog write failed", zap.Error(err))
	}
	a.fanout.ReportResolved(report, req.Note)
	utils.Success(ctx, gin.H{"report": report})
}

// BulkResolveReports closes many reports at once and writes a single
// audit entry with a sample of the ids.
func (a *AdminController) BulkResolveReports(ctx *gin.Context) {
	var req struct {
		IDs    []uint `json:"ids" binding:"required,min=1"`
		Status string `json:"status" binding:"max=64"`
		Note   string `json:"note" binding:"max=2000"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid bulk payload")
		return
	}
	actorID, _ := middleware.CurrentUserID(ctx)

	openIDs, err := a.reports.BulkResolve(req.IDs, actorID, req.Status, req.Note)
	if err != nil {
		utils.FailInternal(ctx, "failed to resolve reports")
		return
	}
	if err := a.modlog.LogBulk(models.ActionBulkResolved, models.TargetReport, actorID,
		req.IDs, req.Note, nil); err != nil {
		utils.Logger.Warn("modlog write failed", zap.Error(err))
	}

	for _, id := range openIDs {
		if report, err := a.reports.GetReport(id); err == nil {
			a.fanout.ReportResolved(report, req.Note)
		}
	}
	utils.Success(ctx, gin.H{"resolved": len(req.IDs), "previously_open": len(openIDs)})
}

type flagRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// threadFlagAction runs one moderation mutation on a thread and logs it
// with before/after snapshots when the state actually changed.
func (a *AdminController) threadFlagAction(ctx *gin.Context, action string,
	mutate func(id, actorID uint, reason string) (*models.Thread, bool, error)) {
	threadID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid thread id")
		return
	}
	var req flagRequest
	_ = ctx.ShouldBindJSON(&req)
	actorID, _ := middleware.CurrentUserID(ctx)

	before, err := a.content.GetThread(uint(threadID), true)
	if err != nil {
		utils.FailNotFound(ctx, "thread not found")
		return
	}
	beforeSnap := models.SnapshotThread(before)

	thread, changed, err := mutate(uint(threadID), actorID, req.Reason)
	if err != nil {
		failStoreError(ctx, err, "moderation action failed")
		return
	}

	if changed {
		after, err := a.content.GetThread(uint(threadID), true)
		if err == nil {
			if logErr := a.modlog.LogThreadAction(action, actorID, beforeSnap,
				models.SnapshotThread(after), uint(threadID), req.Reason); logErr != nil {
				utils.Logger.Warn("modlog write failed", zap.Error(logErr))
			}
			thread = after
		}
		utils.InvalidateByPrefix(threadListCacheKey)
		a.fanout.Hub().Broadcast(notify.Event{Name: "thread_moderated", Data: gin.H{
			"action":    action,
			"thread_id": threadID,
		}})
	}
	utils.Success(ctx, gin.H{"thread": thread, "changed": changed})
}

// PinThread marks a thread as pinned so it sorts to the top of the list.
func (a *AdminController) PinThread(ctx *gin.Context) {
	a.threadFlagAction(ctx, models.ActionThreadPinned,
		func(id, _ uint, _ string) (*models.Thread, bool, error) {
			return a.content.SetThreadPinned(id, true)
		})
}

// UnpinThread clears the pin flag.
func (a *AdminController) UnpinThread(ctx *gin.Context) {
	a.threadFlagAction(ctx, models.ActionThreadUnpinned,
		func(id, _ uint, _ string) (*models.Thread, bool, error) {
			return a.content.SetThreadPinned(id, false)
		})
}

// LockThread prevents further comments on a thread.
func (a *AdminController) LockThread(ctx *gin.Context) {
	a.threadFlagAction(ctx, models.ActionThreadLocked,
		func(id, actorID uint, _ string) (*models.Thread, bool, error) {
			return a.content.SetThreadLocked(id, actorID, true)
		})
}

// UnlockThread reopens a locked thread.
func (a *AdminController) UnlockThread(ctx *gin.Context) {
	a.threadFlagAction(ctx, models.ActionThreadUnlocked,
		func(id, actorID uint, _ string) (*models.Thread, bool, error) {
			return a.content.SetThreadLocked(id, actorID, false)
		})
}

// DeleteThread soft-deletes a thread; the record and its comments stay in
// storage for restore.
func (a *AdminController) DeleteThread(ctx *gin.Context) {
	a.threadFlagAction(ctx, models.ActionThreadDeleted, a.content.SoftDeleteThread)
}

// RestoreThread brings a soft-deleted thread back.
func (a *AdminController) RestoreThread(ctx *gin.Context) {
	a.threadFlagAction(ctx, models.ActionThreadRestored,
		func(id, _ uint, _ string) (*models.Thread, bool, error) {
			return a.content.RestoreThread(id)
		})
}

// DeleteComment soft-deletes one comment. Its replies stay visible and
// are promoted in the public tree.
func (a *AdminController) DeleteComment(ctx *gin.Context) {
	a.commentFlagAction(ctx, models.ActionCommentDeleted, a.content.SoftDeleteComment)
}

// RestoreComment brings a soft-deleted comment back.
func (a *AdminController) RestoreComment(ctx *gin.Context) {
	a.commentFlagAction(ctx, models.ActionCommentRestored,
		func(id, _ uint, _ string) (*models.Comment, bool, error) {
			return a.content.RestoreComment(id)
		})
}

func (a *AdminController) commentFlagAction(ctx *gin.Context, action string,
	mutate func(id, actorID uint, reason string) (*models.Comment, bool, error)) {
	commentID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid comment id")
		return
	}
	var req flagRequest
	_ = ctx.ShouldBindJSON(&req)
	actorID, _ := middleware.CurrentUserID(ctx)

	var before models.Comment
	if err := a.db.First(&before, uint(commentID)).Error; err != nil {
		utils.FailNotFound(ctx, "comment not found")
		return
	}
	beforeSnap := models.SnapshotComment(&before)

	comment, changed, err := mutate(uint(commentID), actorID, req.Reason)
	if err != nil {
		failStoreError(ctx, err, "moderation action failed")
		return
	}
	if changed {
		if logErr := a.modlog.LogCommentAction(action, actorID, beforeSnap,
			models.SnapshotComment(comment), uint(commentID), req.Reason); logErr != nil {
			utils.Logger.Warn("modlog write failed", zap.Error(logErr))
		}
		utils.InvalidateByPrefix(threadListCacheKey)
	}
	utils.Success(ctx, gin.H{"comment": comment, "changed": changed})
}

// BulkThreads applies delete or restore across many threads with a
// single audit entry.
func (a *AdminController) BulkThreads(ctx *gin.Context) {
	var req struct {
		IDs    []uint `json:"ids" binding:"required,min=1"`
		Action string `json:"action" binding:"required,oneof=delete restore"`
		Reason string `json:"reason" binding:"max=500"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid bulk payload")
		return
	}
	actorID, _ := middleware.CurrentUserID(ctx)

	result, err := a.content.BulkThreadAction(req.IDs, req.Action, actorID, req.Reason)
	if err != nil {
		utils.FailInternal(ctx, "bulk action failed")
		return
	}
	if err := a.modlog.LogBulk(models.ActionBulkThreadChange, models.TargetThread, actorID,
		req.IDs, req.Reason, models.JSONMap{"action": req.Action, "changed": len(result.ChangedIDs)}); err != nil {
		utils.Logger.Warn("modlog write failed", zap.Error(err))
	}
	utils.InvalidateByPrefix(threadListCacheKey)
	utils.Success(ctx, gin.H{"requested": len(req.IDs), "changed": result.ChangedIDs})
}

// BulkComments is the comment counterpart of BulkThreads.
func (a *AdminController) BulkComments(ctx *gin.Context) {
	var req struct {
		IDs    []uint `json:"ids" binding:"required,min=1"`
		Action string `json:"action" binding:"required,oneof=delete restore"`
		Reason string `json:"reason" binding:"max=500"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid bulk payload")
		return
	}
	actorID, _ := middleware.CurrentUserID(ctx)

	result, err := a.content.BulkCommentAction(req.IDs, req.Action, actorID, req.Reason)
	if err != nil {
		utils.FailInternal(ctx, "bulk action failed")
		return
	}
	if err := a.modlog.LogBulk(models.ActionBulkCommentChange, models.TargetComment, actorID,
		req.IDs, req.Reason, models.JSONMap{"action": req.Action, "changed": len(result.ChangedIDs)}); err != nil {
		utils.Logger.Warn("modlog write failed", zap.Error(err))
	}
	utils.Success(ctx, gin.H{"requested": len(req.IDs), "changed": result.ChangedIDs})
}

// ListUsers returns accounts for the user management view.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	var users []models.User
	if err := a.db.Order("created_at desc").Limit(500).Find(&users).Error; err != nil {
		utils.FailInternal(ctx, "failed to list users")
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		user := publicUser(&users[i])
		user["notes"] = users[i].Notes
		user["token_version"] = users[i].TokenVersion
		out = append(out, user)
	}
	utils.Success(ctx, gin.H{"users": out})
}

// ToggleBan flips a user's ban flag. Banning bumps the token version so
// every outstanding session dies immediately.
func (a *AdminController) ToggleBan(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid user id")
		return
	}
	var req flagRequest
	_ = ctx.ShouldBindJSON(&req)
	actorID, _ := middleware.CurrentUserID(ctx)
	if actorID == uint(userID) {
		utils.FailValidation(ctx, "cannot ban yourself")
		return
	}

	var user models.User
	if err := a.db.First(&user, uint(userID)).Error; err != nil {
		utils.FailNotFound(ctx, "user not found")
		return
	}

	banned := !user.IsBanned
	err = a.db.Model(&user).Updates(map[string]interface{}{
		"is_banned":     banned,
		"token_version": user.TokenVersion + 1,
	}).Error
	if err != nil {
		utils.FailInternal(ctx, "failed to update user")
		return
	}

	action := models.ActionUserUnbanned
	if banned {
		action = models.ActionUserBanned
	}
	if err := a.modlog.LogUserAction(action, actorID, user.ID, req.Reason,
		models.JSONMap{"banned": banned}); err != nil {
		utils.Logger.Warn("modlog write failed", zap.Error(err))
	}
	utils.Logger.Info("user ban toggled",
		zap.Uint("user_id", user.ID), zap.Bool("banned", banned), zap.Uint("actor_id", actorID))
	utils.Success(ctx, gin.H{"user_id": user.ID, "banned": banned})
}

// SetRole grants or revokes the admin role.
func (a *AdminController) SetRole(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid user id")
		return
	}
	var req struct {
		Role string `json:"role" binding:"required,oneof=user admin"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid role payload")
		return
	}
	actorID, _ := middleware.CurrentUserID(ctx)
	if actorID == uint(userID) {
		utils.FailValidation(ctx, "cannot change your own role")
		return
	}

	var user models.User
	if err := a.db.First(&user, uint(userID)).Error; err != nil {
		utils.FailNotFound(ctx, "user not found")
		return
	}
	if user.Role == req.Role {
		utils.Success(ctx, gin.H{"user_id": user.ID, "role": user.Role, "changed": false})
		return
	}
	err = a.db.Model(&user).Updates(map[string]interface{}{
		"role":          req.Role,
		"token_version": user.TokenVersion + 1,
	}).Error
	if err != nil {
		utils.FailInternal(ctx, "failed to update role")
		return
	}

	action := models.ActionRoleRevoked
	if req.Role == models.RoleAdmin {
		action = models.ActionRoleGranted
	}
	if err := a.modlog.LogUserAction(action, actorID, user.ID, "",
		models.JSONMap{"role": req.Role}); err != nil {
		utils.Logger.Warn("modlog write failed", zap.Error(err))
	}
	utils.Success(ctx, gin.H{"user_id": user.ID, "role": req.Role, "changed": true})
}

// SetNote replaces the moderator-only note on an account.
func (a *AdminController) SetNote(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid user id")
		return
	}
	var req struct {
		Note string `json:"note" binding:"max=2000"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid note payload")
		return
	}
	actorID, _ := middleware.CurrentUserID(ctx)

	result := a.db.Model(&models.User{}).Where("id = ?", uint(userID)).
		Update("notes", req.Note)
	if result.Error != nil {
		utils.FailInternal(ctx, "failed to update note")
		return
	}
	if result.RowsAffected == 0 {
		utils.FailNotFound(ctx, "user not found")
		return
	}
	if err := a.modlog.LogUserAction(models.ActionUserNoted, actorID, uint(userID),
		req.Note, nil); err != nil {
		utils.Logger.Warn("modlog write failed", zap.Error(err))
	}
	utils.Success(ctx, gin.H{"user_id": userID, "noted": true})
}

// ModLog queries the audit trail. Filters: target_type+target_id, or
// actor_id; otherwise the most recent entries.
func (a *AdminController) ModLog(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "100"))

	targetType := ctx.Query("target_type")
	targetID := ctx.Query("target_id")
	if targetType != "" && targetID != "" {
		entries, err := a.modlog.ByTarget(targetType, targetID)
		if err != nil {
			utils.FailInternal(ctx, "failed to query audit log")
			return
		}
		utils.Success(ctx, gin.H{"entries": entries})
		return
	}

	if actor := ctx.Query("actor_id"); actor != "" {
		actorID, err := strconv.ParseUint(actor, 10, 64)
		if err != nil {
			utils.FailValidation(ctx, "invalid actor id")
			return
		}
		entries, err := a.modlog.ByActor(uint(actorID), limit)
		if err != nil {
			utils.FailInternal(ctx, "failed to query audit log")
			return
		}
		utils.Success(ctx, gin.H{"entries": entries})
		return
	}

	entries, err := a.modlog.Recent(limit)
	if err != nil {
		utils.FailInternal(ctx, "failed to query audit log")
		return
	}
	utils.Success(ctx, gin.H{"entries": entries})
}

// Stream serves the admin firehose of moderation events over SSE.
func (a *AdminController) Stream(ctx *gin.Context) {
	events, cancel := a.fanout.Hub().SubscribeBroadcast()
	defer cancel()

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-events:
			if !open {
				return false
			}
			ctx.SSEvent(event.Name, event.Data)
			return true
		case <-heartbeat.C:
			ctx.SSEvent("ping", time.Now().Unix())
			return true
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}
