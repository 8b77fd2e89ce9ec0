package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quickclicks/board/config"
	"github.com/quickclicks/board/utils"
)

const (
	// CsrfCookieName is the double-submit cookie. It is intentionally
	// readable by scripts so the frontend can echo it in the header.
	CsrfCookieName = "csrf_token"
	// CsrfHeaderName carries the echoed token on mutating requests.
	CsrfHeaderName = "X-CSRF-Token"
)

var csrfSafeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// IssueCsrfCookie makes sure every response carries a CSRF cookie so the
// client always has a token to echo back.
func IssueCsrfCookie() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, err := ctx.Cookie(CsrfCookieName); err != nil {
			token := uuid.NewString()
			ctx.SetSameSite(http.SameSiteLaxMode)
			ctx.SetCookie(CsrfCookieName, token, 7*24*3600, "/", "", false, false)
		}
		ctx.Next()
	}
}

// CsrfGuard validates mutating requests with the double-submit cookie
// pattern plus an Origin/Referer host check. A matching token pair still
// needs a same-origin request; with the relaxed fallback enabled a
// same-origin request without a token is accepted too. Rejections are
// deliberately generic: they never reveal whether the cookie, the header
// or the origin failed.
func CsrfGuard() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if csrfSafeMethods[ctx.Request.Method] {
			ctx.Next()
			return
		}

		cookie, err := ctx.Cookie(CsrfCookieName)
		header := ctx.GetHeader(CsrfHeaderName)
		tokenOk := err == nil && cookie != "" && header != "" &&
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) == 1

		sameOrigin := originAllowed(ctx)

		if tokenOk && sameOrigin {
			ctx.Next()
			return
		}
		if !tokenOk && sameOrigin && config.Get().CsrfOriginFallback {
			ctx.Next()
			return
		}
		if sameOrigin {
			rejectCsrf(ctx, "token mismatch")
		} else {
			rejectCsrf(ctx, "origin not verified")
		}
	}
}

func rejectCsrf(ctx *gin.Context, reason string) {
	if utils.Logger != nil {
		utils.Logger.Warn("csrf rejection",
			zap.String("reason", reason),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("ip", ctx.ClientIP()))
	}
	utils.FailSecurity(ctx, "request blocked")
	ctx.Abort()
}

// originAllowed compares the Origin (or, failing that, Referer) host
// against the Host / X-Forwarded-Host of the request. A request carrying
// neither header is never positively same-origin.
func originAllowed(ctx *gin.Context) bool {
	source := ctx.GetHeader("Origin")
	if source == "" {
		source = ctx.GetHeader("Referer")
	}
	if source == "" {
		return false
	}

	parsed, err := url.Parse(source)
	if err != nil || parsed.Host == "" {
		return false
	}
	sourceHost := hostOnly(parsed.Host)

	for _, candidate := range []string{
		ctx.GetHeader("X-Forwarded-Host"),
		ctx.Request.Host,
	} {
		if candidate == "" {
			continue
		}
		// X-Forwarded-Host may carry a list when crossing proxies.
		first := strings.TrimSpace(strings.Split(candidate, ",")[0])
		if sourceHost == hostOnly(first) {
			return true
		}
	}
	return false
}

func hostOnly(hostport string) string {
	if idx := strings.LastIndex(hostport, ":"); idx > 0 && !strings.Contains(hostport[idx+1:], "]") {
		return strings.ToLower(hostport[:idx])
	}
	return strings.ToLower(hostport)
}
