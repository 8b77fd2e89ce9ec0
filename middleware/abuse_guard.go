package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quickclicks/board/config"
	"github.com/quickclicks/board/utils"
)

// Posting actions tracked by the sliding-window limiter.
const (
	ActionThread  = "thread"
	ActionComment = "comment"
	ActionReport  = "report"
)

// honeypotField is a hidden form field real browsers leave empty. Bots
// that fill it get a generic validation error, never a hint.
const honeypotField = "website"

var linkPattern = regexp.MustCompile(`(?i)https?://|www\.`)
var spacePattern = regexp.MustCompile(`\s+`)

// AbuseGuard throttles posting per user+IP with a sliding window of
// timestamps, applies content rules (honeypot, minimum length, link cap)
// and rejects near-duplicate submissions within a configurable window.
type AbuseGuard struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	dups    map[string][]dupEntry
	done    chan struct{}
	once    sync.Once
}

type dupEntry struct {
	hash string
	at   time.Time
}

type actionPolicy struct {
	max    int
	window time.Duration
}

// NewAbuseGuard builds a guard with empty state. Call StartSweeper to
// begin background pruning of expired entries.
func NewAbuseGuard() *AbuseGuard {
	return &AbuseGuard{
		buckets: make(map[string][]time.Time),
		dups:    make(map[string][]dupEntry),
		done:    make(chan struct{}),
	}
}

func policyFor(action string) actionPolicy {
	cfg := config.Get()
	switch action {
	case ActionComment:
		return actionPolicy{cfg.CommentRateMax, time.Duration(cfg.CommentRateWindowMs) * time.Millisecond}
	case ActionReport:
		return actionPolicy{cfg.ReportRateMax, time.Duration(cfg.ReportRateWindowMs) * time.Millisecond}
	default:
		return actionPolicy{cfg.ThreadRateMax, time.Duration(cfg.ThreadRateWindowMs) * time.Millisecond}
	}
}

// RateLimit returns a middleware limiting how many times one user+IP pair
// may perform the given action inside its window. Anonymous posters are
// keyed by IP alone.
func (g *AbuseGuard) RateLimit(action string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		policy := policyFor(action)
		uid, _ := CurrentUserID(ctx)
		key := fmt.Sprintf("%s:%d:%s", action, uid, ctx.ClientIP())

		if !g.allow(key, policy, time.Now()) {
			if utils.Logger != nil {
				utils.Logger.Warn("posting throttled",
					zap.String("action", action),
					zap.Uint("user_id", uid),
					zap.String("ip", ctx.ClientIP()))
			}
			utils.FailThrottle(ctx, "you are posting too fast, slow down")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func (g *AbuseGuard) allow(key string, policy actionPolicy, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-policy.window)
	stamps := g.buckets[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= policy.max {
		g.buckets[key] = kept
		return false
	}
	g.buckets[key] = append(kept, now)
	return true
}

// contentBody is the subset of posting payloads the guard inspects. The
// honeypot field is accepted here so it never reaches the real binding.
type contentBody struct {
	Body     string `json:"body"`
	Details  string `json:"details"`
	Honeypot string `json:"website"`
}

// ContentRules validates the payload of a posting request: honeypot,
// minimum length, link count and duplicate suppression. kind scopes the
// duplicate window so a comment never collides with a thread.
func (g *AbuseGuard) ContentRules(kind string, enforceLength bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			utils.FailValidation(ctx, "invalid request body")
			ctx.Abort()
			return
		}
		// Restore the body so handlers can bind it again.
		ctx.Request.Body = io.NopCloser(bytes.NewReader(raw))

		var payload contentBody
		if err := json.Unmarshal(raw, &payload); err != nil {
			utils.FailValidation(ctx, "invalid request body")
			ctx.Abort()
			return
		}

		if strings.TrimSpace(payload.Honeypot) != "" {
			// Same shape and wording as an ordinary validation error.
			utils.FailValidation(ctx, "invalid submission")
			ctx.Abort()
			return
		}

		// All content rules inspect the body text alone; titles are
		// validated by the handler binding.
		text := payload.Body
		if text == "" {
			text = payload.Details
		}

		if enforceLength && len(strings.TrimSpace(text)) < config.Get().ContentMinChars {
			utils.FailValidation(ctx,
				fmt.Sprintf("content must be at least %d characters", config.Get().ContentMinChars))
			ctx.Abort()
			return
		}

		if len(linkPattern.FindAllStringIndex(text, -1)) > config.Get().ContentMaxLinks {
			utils.FailValidation(ctx, "too many links in submission")
			ctx.Abort()
			return
		}

		uid, _ := CurrentUserID(ctx)
		if g.isDuplicate(kind, uid, text, time.Now()) {
			utils.FailConflict(ctx, "duplicate submission, please wait before reposting")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// isDuplicate keeps a list of normalized fingerprints per kind+user and
// flags a repeat of any submission still inside the dedup window. A
// rejected repeat is not recorded, so it cannot extend the window.
func (g *AbuseGuard) isDuplicate(kind string, uid uint, text string, now time.Time) bool {
	normalized := spacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	sum := sha1.Sum([]byte(normalized))
	hash := hex.EncodeToString(sum[:])
	key := fmt.Sprintf("dup:%s:%d", kind, uid)
	window := time.Duration(config.Get().DedupWindowMs) * time.Millisecond

	g.mu.Lock()
	defer g.mu.Unlock()

	entries := g.dups[key]
	kept := entries[:0]
	for _, entry := range entries {
		if now.Sub(entry.at) < window {
			kept = append(kept, entry)
		}
	}
	for _, entry := range kept {
		if entry.hash == hash {
			g.dups[key] = kept
			return true
		}
	}
	g.dups[key] = append(kept, dupEntry{hash: hash, at: now})
	return false
}

// StartSweeper prunes stale rate buckets and duplicate fingerprints in
// the background so the maps do not grow without bound.
func (g *AbuseGuard) StartSweeper() {
	interval := time.Duration(config.Get().AbuseSweepSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-g.done:
				return
			case now := <-ticker.C:
				g.sweep(now)
			}
		}
	}()
}

func (g *AbuseGuard) sweep(now time.Time) {
	maxWindow := time.Duration(config.Get().ThreadRateWindowMs) * time.Millisecond
	for _, ms := range []int{config.Get().CommentRateWindowMs, config.Get().ReportRateWindowMs} {
		if d := time.Duration(ms) * time.Millisecond; d > maxWindow {
			maxWindow = d
		}
	}
	cutoff := now.Add(-maxWindow)
	dupCutoff := now.Add(-time.Duration(config.Get().DedupWindowMs) * time.Millisecond)

	g.mu.Lock()
	defer g.mu.Unlock()
	for key, stamps := range g.buckets {
		kept := stamps[:0]
		for _, ts := range stamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(g.buckets, key)
		} else {
			g.buckets[key] = kept
		}
	}
	for key, entries := range g.dups {
		kept := entries[:0]
		for _, entry := range entries {
			if entry.at.After(dupCutoff) {
				kept = append(kept, entry)
			}
		}
		if len(kept) == 0 {
			delete(g.dups, key)
		} else {
			g.dups[key] = kept
		}
	}
}

// Stop terminates the background sweeper.
func (g *AbuseGuard) Stop() {
	g.once.Do(func() { close(g.done) })
}
