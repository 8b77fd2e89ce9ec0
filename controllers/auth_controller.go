package controllers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quickclicks/board/middleware"
	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/utils"
)

const tokenLifetime = 7 * 24 * time.Hour

// AuthController handles registration, login and session lifecycle.
type AuthController struct {
	db *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a new account. Registration is throttled per IP with
// a cooldown and a daily cap to slow down bulk signups.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,min=2,max=32"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8,max=72"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid registration payload")
		return
	}

	ip := ctx.ClientIP()
	if utils.RegistrationIsBanned(ip) {
		utils.FailThrottle(ctx, "registration temporarily unavailable")
		return
	}
	if !utils.RegistrationCooldownTry(ip) {
		utils.FailThrottle(ctx, "please wait before registering again")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.FailThrottle(ctx, "daily registration limit reached")
		return
	}

	name := utils.Sanitize(strings.TrimSpace(req.Name))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := a.db.Where("email = ?", email).First(&existing).Error; err == nil {
		if fails := utils.RegistrationFailRecord(ip); utils.RegistrationFailureBanDue(fails) {
			utils.RegistrationBan(ip)
			utils.Logger.Warn("registration temp ban",
				zap.String("ip", ip), zap.Int("fails", fails))
		}
		utils.FailConflict(ctx, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.FailInternal(ctx, "registration failed")
		return
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		RegisterIP:   ip,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.FailInternal(ctx, "registration failed")
		return
	}
	utils.RegistrationDailyIncrement(ip)

	token, err := utils.GenerateToken(user.ID, user.Name, user.Role, user.TokenVersion, tokenLifetime)
	if err != nil {
		utils.FailInternal(ctx, "registration failed")
		return
	}
	utils.Logger.Info("user registered",
		zap.Uint("user_id", user.ID), zap.String("ip", ip))
	utils.Success(ctx, gin.H{"token": token, "user": publicUser(&user)})
}

// Login authenticates with email and password.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid login payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.FailUnauthenticated(ctx, "invalid email or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.FailUnauthenticated(ctx, "invalid email or password")
		return
	}
	if user.IsBanned {
		utils.FailAuthorization(ctx, "account is banned")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Name, user.Role, user.TokenVersion, tokenLifetime)
	if err != nil {
		utils.FailInternal(ctx, "login failed")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": publicUser(&user)})
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 {
		utils.BlacklistToken(strings.TrimSpace(parts[1]), time.Now().Add(tokenLifetime))
	}
	utils.Success(ctx, gin.H{"logged_out": true})
}

// Me returns the current account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.FailNotFound(ctx, "account not found")
		return
	}
	utils.Success(ctx, gin.H{"user": publicUser(&user)})
}

func publicUser(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"is_banned":  user.IsBanned,
		"created_at": user.CreatedAt,
	}
}
