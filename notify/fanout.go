package notify

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quickclicks/board/config"
	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/utils"
)

// Fanout turns moderation events into persisted notifications, live
// unread-count pushes and optional emails. Delivery failures are logged
// and swallowed: the triggering request must never fail because a
// notification could not be sent.
type Fanout struct {
	db  *gorm.DB
	hub *Hub
}

func NewFanout(db *gorm.DB, hub *Hub) *Fanout {
	return &Fanout{db: db, hub: hub}
}

// Hub exposes the live-stream registry for serving SSE endpoints.
func (f *Fanout) Hub() *Hub {
	return f.hub
}

// ReportCreated notifies every non-banned admin about a fresh report,
// with a deep link into the moderation queue.
func (f *Fanout) ReportCreated(report *models.Report) {
	var admins []models.User
	err := f.db.Where("role = ? AND is_banned = ?", models.RoleAdmin, false).
		Find(&admins).Error
	if err != nil {
		f.warn("admin lookup failed", err)
		return
	}

	title := "New report: " + report.Category
	body := report.Reason
	link := fmt.Sprintf("%s/admin/reports/%d", config.Get().PublicBaseURL, report.ID)
	meta := models.JSONMap{
		"reportId":   report.ID,
		"targetType": report.TargetType,
		"targetId":   report.TargetID,
	}

	for _, admin := range admins {
		f.deliver(admin.ID, models.NotifReportCreated, title, body, link, meta)
	}

	f.hub.Broadcast(Event{Name: "report_created", Data: meta})

	if config.Get().SendReportEmails && len(config.Get().AdminEmails) > 0 {
		go f.emailAdmins(report, link)
	}
}

// ReportResolved notifies the reporter, and the owner of the reported
// content when moderation touched it.
func (f *Fanout) ReportResolved(report *models.Report, note string) {
	title := "Your report has been reviewed"
	body := note
	if body == "" {
		body = "A moderator has reviewed your report."
	}
	link := fmt.Sprintf("%s/reports/%d", config.Get().PublicBaseURL, report.ID)
	meta := models.JSONMap{"reportId": report.ID, "status": report.Status}

	if report.ReporterID != 0 {
		f.deliver(report.ReporterID, models.NotifReportResolved, title, body, link, meta)
	}

	if ownerID, ok := f.contentOwner(report); ok && ownerID != report.ReporterID {
		f.deliver(ownerID, models.NotifReportResolved,
			"A moderator reviewed your content", body, link, meta)
	}
}

func (f *Fanout) contentOwner(report *models.Report) (uint, bool) {
	switch report.TargetType {
	case models.TargetThread:
		var thread models.Thread
		if err := f.db.Select("real_author_id").First(&thread, report.TargetID).Error; err != nil {
			return 0, false
		}
		return thread.RealAuthorID, thread.RealAuthorID != 0
	case models.TargetComment:
		var comment models.Comment
		if err := f.db.Select("real_author_id").First(&comment, report.TargetID).Error; err != nil {
			return 0, false
		}
		return comment.RealAuthorID, comment.RealAuthorID != 0
	case models.TargetUser:
		return report.TargetID, report.TargetID != 0
	}
	return 0, false
}

// deliver persists one notification and pushes the recipient's fresh
// unread count to any live streams.
func (f *Fanout) deliver(userID uint, kind, title, body, link string, meta models.JSONMap) {
	notification := &models.Notification{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
		Link:   link,
		Meta:   meta,
	}
	if err := f.db.Create(notification).Error; err != nil {
		f.warn("notification persist failed", err)
		return
	}
	f.PushUnreadCount(userID)
}

// PushUnreadCount sends the current unread total to a user's live streams.
func (f *Fanout) PushUnreadCount(userID uint) {
	var unread int64
	err := f.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&unread).Error
	if err != nil {
		f.warn("unread count failed", err)
		return
	}
	f.hub.Push(userID, Event{Name: "unread", Data: map[string]int64{"unread": unread}})
}

func (f *Fanout) emailAdmins(report *models.Report, link string) {
	subject := fmt.Sprintf("[board] new report #%d (%s)", report.ID, report.Category)
	text := fmt.Sprintf("A new report was filed at %s.\n\nCategory: %s\nReason: %s\n\n%s\n",
		time.Now().Format(time.RFC1123), report.Category, report.Reason, link)
	if err := utils.SendMail(config.Get().AdminEmails, subject, text, ""); err != nil {
		f.warn("report email failed", err)
	}
}

func (f *Fanout) warn(msg string, err error) {
	if utils.Logger != nil {
		utils.Logger.Warn("fanout: "+msg, zap.Error(err))
	}
}
