package main

import (
	"github.com/quickclicks/board/config"
	"github.com/quickclicks/board/middleware"
	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/routes"
	"github.com/quickclicks/board/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Thread{},
		&models.ThreadUpvote{},
		&models.Comment{},
		&models.CommentUpvote{},
		&models.Report{},
		&models.ModLog{},
		&models.Notification{},
	)

	guard := middleware.NewAbuseGuard()
	guard.StartSweeper()
	defer guard.Stop()

	r := routes.SetupRouter(db, guard)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
