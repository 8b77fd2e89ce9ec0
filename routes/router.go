package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickclicks/board/config"
	"github.com/quickclicks/board/controllers"
	"github.com/quickclicks/board/middleware"
	"github.com/quickclicks/board/notify"
	"github.com/quickclicks/board/store"
	"github.com/quickclicks/board/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, guard *middleware.AbuseGuard) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.GlobalRateLimit())
	r.Use(middleware.IssueCsrfCookie())
	r.Use(middleware.CsrfGuard())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	contentStore := store.NewContentStore(db)
	reportStore := store.NewReportStore(db)
	modlogStore := store.NewModLogStore(db)
	hub := notify.NewHub()
	fanout := notify.NewFanout(db, hub)

	authController := controllers.NewAuthController(db)
	threadController := controllers.NewThreadController(contentStore)
	commentController := controllers.NewCommentController(contentStore)
	reportController := controllers.NewReportController(reportStore, fanout)
	notificationController := controllers.NewNotificationController(db, fanout)
	adminController := controllers.NewAdminController(db, contentStore, reportStore, modlogStore, fanout)
	exportController := controllers.NewExportController(db, reportStore, modlogStore)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(db), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(db), authController.Me)

	threads := api.Group("/threads")
	threads.GET("", middleware.TryAuth(db), threadController.ListThreads)
	threads.GET("/:id", middleware.TryAuth(db), threadController.GetThread)
	threads.POST("",
		middleware.AuthRequired(db),
		guard.RateLimit(middleware.ActionThread),
		guard.ContentRules("thread", true),
		threadController.CreateThread)
	threads.POST("/:id/upvote", middleware.AuthRequired(db), threadController.ToggleUpvote)
	threads.POST("/:id/comments",
		middleware.AuthRequired(db),
		middleware.EnsureThreadUnlocked(db),
		guard.RateLimit(middleware.ActionComment),
		guard.ContentRules("comment", true),
		commentController.CreateComment)

	comments := api.Group("/comments")
	comments.POST("/:id/upvote", middleware.AuthRequired(db), commentController.ToggleUpvote)

	reports := api.Group("/reports")
	reports.Use(middleware.AuthRequired(db))
	reports.POST("",
		guard.RateLimit(middleware.ActionReport),
		guard.ContentRules("report", false),
		reportController.CreateReport)
	reports.GET("/mine", reportController.MyReports)

	notifications := api.Group("/notifications")
	notifications.Use(middleware.AuthRequired(db))
	notifications.GET("", notificationController.List)
	notifications.GET("/stream", notificationController.Stream)
	notifications.POST("/:id/read", notificationController.MarkRead)
	notifications.POST("/read-all", notificationController.MarkAllRead)
	notifications.DELETE("", notificationController.Clear)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(db))
	admin.GET("/metrics", adminController.Metrics)
	admin.GET("/stream", adminController.Stream)

	admin.GET("/reports", adminController.ListReports)
	admin.POST("/reports/:id/resolve", adminController.ResolveReport)
	admin.POST("/reports/bulk-resolve", adminController.BulkResolveReports)

	admin.POST("/threads/:id/pin", adminController.PinThread)
	admin.POST("/threads/:id/unpin", adminController.UnpinThread)
	admin.POST("/threads/:id/lock", adminController.LockThread)
	admin.POST("/threads/:id/unlock", adminController.UnlockThread)
	admin.DELETE("/threads/:id", adminController.DeleteThread)
	admin.POST("/threads/:id/restore", adminController.RestoreThread)
	admin.POST("/threads/bulk", adminController.BulkThreads)

	admin.DELETE("/comments/:id", adminController.DeleteComment)
	admin.POST("/comments/:id/restore", adminController.RestoreComment)
	admin.POST("/comments/bulk", adminController.BulkComments)

	admin.GET("/users", adminController.ListUsers)
	admin.POST("/users/:id/toggle-ban", adminController.ToggleBan)
	admin.POST("/users/:id/role", adminController.SetRole)
	admin.POST("/users/:id/note", adminController.SetNote)

	admin.GET("/modlog", adminController.ModLog)
	admin.GET("/export/reports", exportController.Reports)
	admin.GET("/export/comments", exportController.Comments)
	admin.GET("/export/users", exportController.Users)
	admin.GET("/export/modlog", exportController.ModLog)

	return r
}
