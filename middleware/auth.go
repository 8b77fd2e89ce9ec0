package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/utils"
)

// Context keys used to store the authenticated identity in Gin context.
const (
	ContextUserIDKey   = "user_id"
	ContextUserNameKey = "user_name"
	ContextRoleKey     = "user_role"
	ContextBannedKey   = "user_banned"
)

// AuthRequired ensures the request is authenticated via JWT bearer token.
// The account's role, ban flag and token version are re-read from storage so
// a ban takes effect immediately rather than at token expiry.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := authenticate(ctx, db); !ok {
			ctx.Abort()
			return
		}
		if banned, _ := ctx.Get(ContextBannedKey); banned == true {
			utils.FailAuthorization(ctx, "account is banned from posting")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// TryAuth attaches the identity when a valid token is present and silently
// continues otherwise. Used on public read paths where admins may opt into
// seeing deleted content.
func TryAuth(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := bearerToken(ctx)
		if tokenString == "" || utils.IsTokenBlacklisted(tokenString) {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			ctx.Next()
			return
		}
		var user models.User
		if err := db.Select("id", "name", "role", "is_banned", "token_version").
			First(&user, claims.UserID).Error; err != nil {
			ctx.Next()
			return
		}
		if user.IsBanned || user.TokenVersion != claims.TokenVersion {
			ctx.Next()
			return
		}
		setIdentity(ctx, &user)
		ctx.Next()
	}
}

// AdminRequired ensures the request comes from a non-banned admin.
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := authenticate(ctx, db); !ok {
			ctx.Abort()
			return
		}
		if banned, _ := ctx.Get(ContextBannedKey); banned == true {
			utils.FailAuthorization(ctx, "account is banned")
			ctx.Abort()
			return
		}
		if !IsAdmin(ctx) {
			utils.FailAuthorization(ctx, "admin access only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func authenticate(ctx *gin.Context, db *gorm.DB) (*utils.Claims, bool) {
	tokenString := bearerToken(ctx)
	if tokenString == "" {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return nil, false
	}
	if utils.IsTokenBlacklisted(tokenString) {
		utils.FailUnauthenticated(ctx, "token revoked")
		return nil, false
	}
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		utils.FailUnauthenticated(ctx, "invalid token")
		return nil, false
	}

	var user models.User
	if err := db.Select("id", "name", "role", "is_banned", "token_version").
		First(&user, claims.UserID).Error; err != nil {
		utils.FailUnauthenticated(ctx, "account not found")
		return nil, false
	}
	if user.TokenVersion != claims.TokenVersion {
		utils.FailUnauthenticated(ctx, "session expired")
		return nil, false
	}

	setIdentity(ctx, &user)
	return claims, true
}

func setIdentity(ctx *gin.Context, user *models.User) {
	ctx.Set(ContextUserIDKey, user.ID)
	ctx.Set(ContextUserNameKey, user.Name)
	ctx.Set(ContextRoleKey, user.Role)
	ctx.Set(ContextBannedKey, user.IsBanned)
}

func bearerToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentUserID extracts the authenticated user id from Gin context.
func CurrentUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// IsAdmin reports whether the current identity holds the admin role.
func IsAdmin(ctx *gin.Context) bool {
	role, _ := ctx.Get(ContextRoleKey)
	return role == models.RoleAdmin
}
