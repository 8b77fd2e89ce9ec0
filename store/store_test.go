package store

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quickclicks/board/models"
)

// openTestDB builds an isolated in-memory database with the full schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
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
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, role string, banned bool) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
		IsBanned:     banned,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedThread(t *testing.T, db *gorm.DB, author *models.User, title string) *models.Thread {
	t.Helper()
	content := NewContentStore(db)
	thread, err := content.CreateThread(NewThreadInput{
		Title:      title,
		Body:       "body of " + title,
		AuthorID:   author.ID,
		AuthorName: author.Name,
	})
	require.NoError(t, err)
	return thread
}
