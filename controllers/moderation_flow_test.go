package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quickclicks/board/config"
	"github.com/quickclicks/board/middleware"
	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/notify"
	"github.com/quickclicks/board/store"
	"github.com/quickclicks/board/utils"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

// newTestEnv wires the same handler chain the real router uses, minus the
// CSRF and coarse rate-limit layers that are covered by their own tests.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	config.SetForTesting(config.AppConfig{
		JWTSecret:           "test-secret",
		PublicBaseURL:       "https://board.example",
		ThreadRateMax:       100,
		ThreadRateWindowMs:  60000,
		CommentRateMax:      100,
		CommentRateWindowMs: 60000,
		ReportRateMax:       100,
		ReportRateWindowMs:  60000,
		ContentMinChars:     3,
		ContentMaxLinks:     5,
		DedupWindowMs:       1,
	})
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Thread{},
		&models.ThreadUpvote{},
		&models.Comment{},
		&models.CommentUpvote{},
		&models.Report{},
		&models.ModLog{},
		&models.Notification{},
	))

	contentStore := store.NewContentStore(db)
	reportStore := store.NewReportStore(db)
	modlogStore := store.NewModLogStore(db)
	hub := notify.NewHub()
	fanout := notify.NewFanout(db, hub)
	guard := middleware.NewAbuseGuard()

	threadController := NewThreadController(contentStore)
	commentController := NewCommentController(contentStore)
	reportController := NewReportController(reportStore, fanout)
	notificationController := NewNotificationController(db, fanout)
	adminController := NewAdminController(db, contentStore, reportStore, modlogStore, fanout)
	exportController := NewExportController(db, reportStore, modlogStore)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")

	api.GET("/threads/:id", middleware.TryAuth(db), threadController.GetThread)
	api.POST("/threads",
		middleware.AuthRequired(db),
		guard.RateLimit(middleware.ActionThread),
		guard.ContentRules("thread", true),
		threadController.CreateThread)
	api.POST("/threads/:id/comments",
		middleware.AuthRequired(db),
		middleware.EnsureThreadUnlocked(db),
		guard.RateLimit(middleware.ActionComment),
		guard.ContentRules("comment", true),
		commentController.CreateComment)
	api.POST("/reports", middleware.AuthRequired(db), reportController.CreateReport)
	api.GET("/notifications", middleware.AuthRequired(db), notificationController.List)

	admin := api.Group("/admin", middleware.AdminRequired(db))
	admin.POST("/threads/:id/lock", adminController.LockThread)
	admin.POST("/threads/:id/unlock", adminController.UnlockThread)
	admin.DELETE("/comments/:id", adminController.DeleteComment)
	admin.POST("/comments/bulk", adminController.BulkComments)
	admin.POST("/reports/:id/resolve", adminController.ResolveReport)
	admin.POST("/users/:id/toggle-ban", adminController.ToggleBan)
	admin.GET("/export/comments", exportController.Comments)
	admin.GET("/export/users", exportController.Users)

	return &testEnv{db: db, router: r}
}

func (env *testEnv) user(t *testing.T, name, role string) (*models.User, string) {
	t.Helper()
	user := &models.User{
		Name: name, Email: name + "@example.com",
		PasswordHash: "x", Role: role,
	}
	require.NoError(t, env.db.Create(user).Error)
	token, err := utils.GenerateToken(user.ID, user.Name, user.Role, user.TokenVersion, time.Hour)
	require.NoError(t, err)
	return user, token
}

func (env *testEnv) do(method, target, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestLockedThreadRejectsCommentsUntilUnlocked(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.user(t, "alice", models.RoleUser)
	_, adminToken := env.user(t, "mod", models.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/threads", userToken,
		`{"title":"hello","body":"first thread body"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	threadData := decodeData(t, rec)["thread"].(map[string]any)
	threadID := uint(threadData["id"].(float64))
	commentsPath := fmt.Sprintf("/api/v1/threads/%d/comments", threadID)

	rec = env.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/threads/%d/lock", threadID), adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Regular users hit 423 while the thread is locked.
	rec = env.do(http.MethodPost, commentsPath, userToken, `{"body":"am i late"}`)
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Contains(t, rec.Body.String(), "locked")

	// Admins may still comment, e.g. to explain the lock.
	rec = env.do(http.MethodPost, commentsPath, adminToken, `{"body":"locked for review"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/threads/%d/unlock", threadID), adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, commentsPath, userToken, `{"body":"back in business"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Both lock and unlock left audit entries.
	var entries []models.ModLog
	require.NoError(t, env.db.Where("target_type = ?", models.TargetThread).Find(&entries).Error)
	types := make([]string, 0, len(entries))
	for _, entry := range entries {
		types = append(types, entry.Type)
	}
	assert.Contains(t, types, models.ActionThreadLocked)
	assert.Contains(t, types, models.ActionThreadUnlocked)
}

func TestDeletedCommentChildrenPromotedInPublicTree(t *testing.T) {
	env := newTestEnv(t)
	user, userToken := env.user(t, "alice", models.RoleUser)
	_, adminToken := env.user(t, "mod", models.RoleAdmin)
	_ = user

	rec := env.do(http.MethodPost, "/api/v1/threads", userToken,
		`{"title":"tree","body":"the thread body"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	threadID := uint(decodeData(t, rec)["thread"].(map[string]any)["id"].(float64))
	commentsPath := fmt.Sprintf("/api/v1/threads/%d/comments", threadID)

	rec = env.do(http.MethodPost, commentsPath, userToken, `{"body":"parent comment"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	parentID := uint(decodeData(t, rec)["comment"].(map[string]any)["id"].(float64))

	rec = env.do(http.MethodPost, commentsPath, userToken,
		fmt.Sprintf(`{"body":"child comment","parent_id":%d}`, parentID))
	require.Equal(t, http.StatusOK, rec.Code)
	childID := uint(decodeData(t, rec)["comment"].(map[string]any)["id"].(float64))

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/comments/%d", parentID), adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Public view: the deleted parent is gone, its child moved to root.
	rec = env.do(http.MethodGet, fmt.Sprintf("/api/v1/threads/%d", threadID), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decodeData(t, rec)["comments"].([]any)
	require.Len(t, comments, 1)
	assert.EqualValues(t, childID, comments[0].(map[string]any)["id"].(float64))
}

func TestReportFanoutAndResolutionNotifications(t *testing.T) {
	env := newTestEnv(t)
	_, reporterToken := env.user(t, "reporter", models.RoleUser)
	adminA, adminAToken := env.user(t, "modA", models.RoleAdmin)
	adminB, _ := env.user(t, "modB", models.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/threads", reporterToken,
		`{"title":"spammy","body":"buy my stuff"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	threadID := uint(decodeData(t, rec)["thread"].(map[string]any)["id"].(float64))

	rec = env.do(http.MethodPost, "/api/v1/reports", reporterToken, fmt.Sprintf(
		`{"target_type":"thread","target_id":%d,"category":"spam","reason":"obvious ad"}`, threadID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reportID := uint(decodeData(t, rec)["report"].(map[string]any)["id"].(float64))

	// Every admin got exactly one notification.
	for _, admin := range []*models.User{adminA, adminB} {
		var count int64
		env.db.Model(&models.Notification{}).Where("user_id = ?", admin.ID).Count(&count)
		assert.Equal(t, int64(1), count, "admin %s", admin.Name)
	}

	rec = env.do(http.MethodPost,
		fmt.Sprintf("/api/v1/admin/reports/%d/resolve", reportID), adminAToken,
		`{"status":"closed","note":"removed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The reporter sees the resolution in their inbox.
	rec = env.do(http.MethodGet, "/api/v1/notifications", reporterToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	notifications := data["notifications"].([]any)
	require.NotEmpty(t, notifications)
	assert.EqualValues(t, len(notifications), data["unread"])

	var audit models.ModLog
	require.NoError(t, env.db.Where("type = ?", models.ActionReportResolved).First(&audit).Error)
	assert.Equal(t, adminA.ID, audit.ActorID)
}

func TestBanRetiresOutstandingTokens(t *testing.T) {
	env := newTestEnv(t)
	banned, bannedToken := env.user(t, "badguy", models.RoleUser)
	_, adminToken := env.user(t, "mod", models.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/threads", bannedToken,
		`{"title":"fine","body":"still allowed here"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost,
		fmt.Sprintf("/api/v1/admin/users/%d/toggle-ban", banned.ID), adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The old token dies immediately since the token version was bumped.
	rec = env.do(http.MethodPost, "/api/v1/threads", bannedToken,
		`{"title":"more","body":"should be rejected"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A fresh token for the banned account fails authorization instead.
	var fresh models.User
	require.NoError(t, env.db.First(&fresh, banned.ID).Error)
	newToken, err := utils.GenerateToken(fresh.ID, fresh.Name, fresh.Role, fresh.TokenVersion, time.Hour)
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/api/v1/threads", newToken,
		`{"title":"again","body":"still banned though"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
