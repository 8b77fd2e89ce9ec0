package controllers

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/store"
	"github.com/quickclicks/board/utils"
)

// ExportController streams moderation data as CSV or JSON downloads.
type ExportController struct {
	db      *gorm.DB
	reports *store.ReportStore
	modlog  *store.ModLogStore
}

func NewExportController(db *gorm.DB, reports *store.ReportStore, modlog *store.ModLogStore) *ExportController {
	return &ExportController{db: db, reports: reports, modlog: modlog}
}

// Reports exports the report queue. format=csv produces a download;
// anything else returns JSON.
func (e *ExportController) Reports(ctx *gin.Context) {
	reports, err := e.reports.ListReports(false, false)
	if err != nil {
		utils.FailInternal(ctx, "failed to export reports")
		return
	}

	if ctx.Query("format") != "csv" {
		utils.Success(ctx, gin.H{"reports": reports})
		return
	}

	setDownloadHeaders(ctx, "reports")
	writer := csv.NewWriter(ctx.Writer)
	defer writer.Flush()

	_ = writer.Write([]string{
		"id", "target_type", "target_id", "reporter_id", "category",
		"reason", "status", "resolved_at", "resolved_by_id", "created_at",
	})
	for _, report := range reports {
		_ = writer.Write([]string{
			fmt.Sprintf("%d", report.ID),
			report.TargetType,
			fmt.Sprintf("%d", report.TargetID),
			fmt.Sprintf("%d", report.ReporterID),
			report.Category,
			report.Reason,
			report.Status,
			formatTimePtr(report.ResolvedAt),
			formatUintPtr(report.ResolvedByID),
			report.CreatedAt.Format(time.RFC3339),
		})
	}
}

// ModLog exports the audit trail.
func (e *ExportController) ModLog(ctx *gin.Context) {
	entries, err := e.modlog.Recent(500)
	if err != nil {
		utils.FailInternal(ctx, "failed to export audit log")
		return
	}

	if ctx.Query("format") != "csv" {
		utils.Success(ctx, gin.H{"entries": entries})
		return
	}

	setDownloadHeaders(ctx, "modlog")
	writer := csv.NewWriter(ctx.Writer)
	defer writer.Flush()

	_ = writer.Write([]string{
		"id", "type", "target_type", "target_id", "actor_id", "note", "created_at",
	})
	for _, entry := range entries {
		_ = writer.Write([]string{
			fmt.Sprintf("%d", entry.ID),
			entry.Type,
			entry.TargetType,
			entry.TargetID,
			fmt.Sprintf("%d", entry.ActorID),
			entry.Note,
			entry.CreatedAt.Format(time.RFC3339),
		})
	}
}

// Comments exports all comments, deleted ones included, so moderators
// can audit removals offline.
func (e *ExportController) Comments(ctx *gin.Context) {
	var comments []models.Comment
	if err := e.db.Order("id asc").Find(&comments).Error; err != nil {
		utils.FailInternal(ctx, "failed to export comments")
		return
	}

	if ctx.Query("format") != "csv" {
		utils.Success(ctx, gin.H{"comments": comments})
		return
	}

	setDownloadHeaders(ctx, "comments")
	writer := csv.NewWriter(ctx.Writer)
	defer writer.Flush()

	_ = writer.Write([]string{
		"id", "thread_id", "parent_id", "author_id", "author_name",
		"body", "upvote_count", "is_deleted", "deleted_at", "created_at",
	})
	for _, comment := range comments {
		_ = writer.Write([]string{
			fmt.Sprintf("%d", comment.ID),
			fmt.Sprintf("%d", comment.ThreadID),
			formatUintPtr(comment.ParentID),
			formatUintPtr(comment.AuthorID),
			comment.AuthorName,
			comment.Body,
			fmt.Sprintf("%d", comment.UpvoteCount),
			strconv.FormatBool(comment.IsDeleted),
			formatTimePtr(comment.DeletedAt),
			comment.CreatedAt.Format(time.RFC3339),
		})
	}
}

// Users exports the account list. Password hashes and admin notes never
// leave the database.
func (e *ExportController) Users(ctx *gin.Context) {
	var users []models.User
	if err := e.db.Order("id asc").Find(&users).Error; err != nil {
		utils.FailInternal(ctx, "failed to export users")
		return
	}

	if ctx.Query("format") != "csv" {
		out := make([]gin.H, 0, len(users))
		for i := range users {
			out = append(out, publicUser(&users[i]))
		}
		utils.Success(ctx, gin.H{"users": out})
		return
	}

	setDownloadHeaders(ctx, "users")
	writer := csv.NewWriter(ctx.Writer)
	defer writer.Flush()

	_ = writer.Write([]string{
		"id", "name", "email", "role", "is_banned", "created_at",
	})
	for _, user := range users {
		_ = writer.Write([]string{
			fmt.Sprintf("%d", user.ID),
			user.Name,
			user.Email,
			user.Role,
			strconv.FormatBool(user.IsBanned),
			user.CreatedAt.Format(time.RFC3339),
		})
	}
}

func setDownloadHeaders(ctx *gin.Context, name string) {
	filename := fmt.Sprintf("%s-%s.csv", name, time.Now().Format("20060102-150405"))
	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatUintPtr(v *uint) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}
