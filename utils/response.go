package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error kinds surfaced to callers. The kind string is the stable contract;
// messages are human-readable and may change.
const (
	KindValidation    = "validation"
	KindNotFound      = "not_found"
	KindAuthorization = "authorization"
	KindConflict      = "conflict"
	KindThrottle      = "throttle"
	KindLocked        = "locked"
	KindSecurity      = "security"
	KindInternal      = "internal"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, JSONResponse{Code: 0, Message: "success", Data: data})
}

// Fail writes a structured failure with a stable kind discriminator.
func Fail(ctx *gin.Context, status int, kind, message string) {
	ctx.JSON(status, JSONResponse{Code: status, Kind: kind, Message: message})
}

// Shorthand failure helpers covering the taxonomy.

func FailValidation(ctx *gin.Context, message string) {
	Fail(ctx, http.StatusBadRequest, KindValidation, message)
}

func FailNotFound(ctx *gin.Context, message string) {
	Fail(ctx, http.StatusNotFound, KindNotFound, message)
}

func FailAuthorization(ctx *gin.Context, message string) {
	Fail(ctx, http.StatusForbidden, KindAuthorization, message)
}

func FailUnauthenticated(ctx *gin.Context, message string) {
	Fail(ctx, http.StatusUnauthorized, KindAuthorization, message)
}

func FailConflict(ctx *gin.Context, message string) {
	Fail(ctx, http.StatusConflict, KindConflict, message)
}

func FailThrottle(ctx *gin.Context, message string) {
	Fail(ctx, http.StatusTooManyRequests, KindThrottle, message)
}

func FailLocked(ctx *gin.Context, message string) {
	Fail(ctx, http.StatusLocked, KindLocked, message)
}

func FailSecurity(ctx *gin.Context, message string) {
	Fail(ctx, http.StatusForbidden, KindSecurity, message)
}

// FailInternal hides the underlying error from untrusted callers; the real
// cause belongs in the log, not the response.
func FailInternal(ctx *gin.Context, message string) {
	Fail(ctx, http.StatusInternalServerError, KindInternal, message)
}
