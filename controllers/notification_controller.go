package controllers

import (
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickclicks/board/middleware"
	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/notify"
	"github.com/quickclicks/board/utils"
)

// NotificationController serves the per-user inbox and its live stream.
type NotificationController struct {
	db     *gorm.DB
	fanout *notify.Fanout
}

func NewNotificationController(db *gorm.DB, fanout *notify.Fanout) *NotificationController {
	return &NotificationController{db: db, fanout: fanout}
}

// List returns the caller's notifications newest first, plus the unread
// total.
func (n *NotificationController) List(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}

	var notifications []models.Notification
	err := n.db.Where("user_id = ?", userID).
		Order("created_at desc, id desc").Limit(200).
		Find(&notifications).Error
	if err != nil {
		utils.FailInternal(ctx, "failed to list notifications")
		return
	}

	var unread int64
	n.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).Count(&unread)

	utils.Success(ctx, gin.H{"notifications": notifications, "unread": unread})
}

// MarkRead marks one notification as read. Marking an already read
// notification is a no-op.
func (n *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}
	notificationID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid notification id")
		return
	}

	now := time.Now()
	result := n.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", uint(notificationID), userID).
		Update("read_at", now)
	if result.Error != nil {
		utils.FailInternal(ctx, "failed to mark notification")
		return
	}
	if result.RowsAffected > 0 {
		n.fanout.PushUnreadCount(userID)
	}
	utils.Success(ctx, gin.H{"marked": result.RowsAffected > 0})
}

// MarkAllRead marks every unread notification of the caller as read.
func (n *NotificationController) MarkAllRead(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}
	now := time.Now()
	result := n.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now)
	if result.Error != nil {
		utils.FailInternal(ctx, "failed to mark notifications")
		return
	}
	n.fanout.PushUnreadCount(userID)
	utils.Success(ctx, gin.H{"marked": result.RowsAffected})
}

// Clear deletes every notification of the caller.
func (n *NotificationController) Clear(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}
	if err := n.db.Where("user_id = ?", userID).
		Delete(&models.Notification{}).Error; err != nil {
		utils.FailInternal(ctx, "failed to clear notifications")
		return
	}
	n.fanout.PushUnreadCount(userID)
	utils.Success(ctx, gin.H{"cleared": true})
}

// Stream serves a Server-Sent Events feed of unread counts. The initial
// count is pushed immediately so clients never render stale badges, and
// a heartbeat keeps proxies from closing the idle connection.
func (n *NotificationController) Stream(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}

	events, cancel := n.fanout.Hub().Subscribe(userID)
	defer cancel()

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	go n.fanout.PushUnreadCount(userID)

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
