package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quickclicks/board/middleware"
	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/notify"
	"github.com/quickclicks/board/store"
	"github.com/quickclicks/board/utils"
)

var reportTargetTypes = map[string]bool{
	models.TargetThread:  true,
	models.TargetComment: true,
	models.TargetUser:    true,
}

// ReportController lets users flag content for moderation.
type ReportController struct {
	reports *store.ReportStore
	fanout  *notify.Fanout
}

func NewReportController(reports *store.ReportStore, fanout *notify.Fanout) *ReportController {
	return &ReportController{reports: reports, fanout: fanout}
}

// CreateReport files a report and fans a notification out to every
// active admin.
func (r *ReportController) CreateReport(ctx *gin.Context) {
	var req struct {
		TargetType string `json:"target_type" binding:"required"`
		TargetID   uint   `json:"target_id" binding:"required"`
		Category   string `json:"category" binding:"required,max=64"`
		Reason     string `json:"reason" binding:"required,max=500"`
		Details    string `json:"details" binding:"max=4000"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid report payload")
		return
	}
	if !reportTargetTypes[req.TargetType] {
		utils.FailValidation(ctx, "unsupported report target")
		return
	}

	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}

	report, err := r.reports.CreateReport(store.NewReportInput{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ReporterID: userID,
		Category:   strings.TrimSpace(req.Category),
		Reason:     utils.Sanitize(strings.TrimSpace(req.Reason)),
		Details:    utils.Sanitize(req.Details),
	})
	if err != nil {
		failStoreError(ctx, err, "failed to file report")
		return
	}

	r.fanout.ReportCreated(report)
	utils.Success(ctx, gin.H{"report": report})
}

// MyReports lists the caller's own reports, newest first.
func (r *ReportController) MyReports(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}
	var reports []models.Report
	err := r.reports.DB().Where("reporter_id = ?", userID).
		Order("created_at desc, id desc").Find(&reports).Error
	if err != nil {
		utils.FailInternal(ctx, "failed to list reports")
		return
	}
	utils.Success(ctx, gin.H{"reports": reports})
}
