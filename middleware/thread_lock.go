package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/utils"
)

// EnsureThreadUnlocked blocks comment creation on locked threads. Admins
// may still comment, for example to explain why a thread was locked.
func EnsureThreadUnlocked(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		threadID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
		if err != nil {
			utils.FailValidation(ctx, "invalid thread id")
			ctx.Abort()
			return
		}

		var thread models.Thread
		if err := db.Select("id", "is_locked", "is_deleted").
			First(&thread, uint(threadID)).Error; err != nil {
			utils.FailNotFound(ctx, "thread not found")
			ctx.Abort()
			return
		}
		if thread.IsDeleted && !IsAdmin(ctx) {
			utils.FailNotFound(ctx, "thread not found")
			ctx.Abort()
			return
		}
		if thread.IsLocked && !IsAdmin(ctx) {
			utils.FailLocked(ctx, "thread is locked")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
