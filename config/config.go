package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort   string
	JWTSecret string
	GinMode   string
	GinPath   string
	// Base URL used when building deep links for notifications and emails.
	PublicBaseURL  string
	AllowedOrigins []string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis for caching, token blacklist and registration throttling
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// SMTP for moderation emails
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool

	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// Global per-IP limiter (token bucket)
	RateLimitPerMinute int

	// Abuse guard (sliding window + duplicate detection)
	ThreadRateMax       int
	ThreadRateWindowMs  int
	CommentRateMax      int
	CommentRateWindowMs int
	ReportRateMax       int
	ReportRateWindowMs  int
	ContentMinChars     int
	ContentMaxLinks     int
	DedupWindowMs       int
	AbuseSweepSec       int

	// CSRF: accept same-origin requests without a token header. Off by default.
	CsrfOriginFallback bool

	// Registration throttling (Redis backed)
	RegisterAttemptCooldownSec int
	RegisterMaxPerIPPerDay     int
	RegisterFailedMaxPerHour   int
	RegisterTempBanMinutes     int

	// Moderation email routing
	SendReportEmails bool
	AdminEmails      []string
}

var cfg AppConfig
var loaded bool

// Load reads configuration once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// SetForTesting replaces the cached configuration. Test helper only.
func SetForTesting(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // missing file is fine; env can carry everything
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	if app, ok := raw["app"].(map[string]any); ok {
		setString(app, "AppPort", &out.AppPort)
		setString(app, "JWTSecret", &out.JWTSecret)
		setString(app, "GinMode", &out.GinMode)
		setString(app, "PublicBaseURL", &out.PublicBaseURL)
		setStringSlice(app, "AllowedOrigins", &out.AllowedOrigins)
		setInt(app, "RateLimitPerMinute", &out.RateLimitPerMinute)
	}
	if dbs, ok := raw["database"].(map[string]any); ok {
		setString(dbs, "DBHost", &out.DBHost)
		setString(dbs, "DBPort", &out.DBPort)
		setString(dbs, "DBUser", &out.DBUser)
		setString(dbs, "DBPassword", &out.DBPassword)
		setString(dbs, "DBName", &out.DBName)
	}
	if rds, ok := raw["redis"].(map[string]any); ok {
		setString(rds, "RedisHost", &out.RedisHost)
		setInt(rds, "RedisPort", &out.RedisPort)
		setInt(rds, "RedisDB", &out.RedisDB)
		setString(rds, "RedisPassword", &out.RedisPassword)
	}
	if sm, ok := raw["smtp"].(map[string]any); ok {
		setString(sm, "SMTPHost", &out.SMTPHost)
		setInt(sm, "SMTPPort", &out.SMTPPort)
		setString(sm, "SMTPUsername", &out.SMTPUsername)
		setString(sm, "SMTPPassword", &out.SMTPPassword)
		setString(sm, "SMTPFrom", &out.SMTPFrom)
		setString(sm, "SMTPFromName", &out.SMTPFromName)
		setBool(sm, "SMTPTLS", &out.SMTPTLS)
	}
	if lg, ok := raw["log"].(map[string]any); ok {
		setString(lg, "Level", &out.LogLevel)
		setString(lg, "Path", &out.LogPath)
		setString(lg, "GinPath", &out.GinPath)
		setInt(lg, "MaxSizeMB", &out.LogMaxSizeMB)
		setInt(lg, "MaxBackups", &out.LogMaxBackups)
		setInt(lg, "MaxAgeDays", &out.LogMaxAgeDays)
		setBool(lg, "Compress", &out.LogCompress)
	}
	if ab, ok := raw["abuse"].(map[string]any); ok {
		setInt(ab, "ThreadRateMax", &out.ThreadRateMax)
		setInt(ab, "ThreadRateWindowMs", &out.ThreadRateWindowMs)
		setInt(ab, "CommentRateMax", &out.CommentRateMax)
		setInt(ab, "CommentRateWindowMs", &out.CommentRateWindowMs)
		setInt(ab, "ReportRateMax", &out.ReportRateMax)
		setInt(ab, "ReportRateWindowMs", &out.ReportRateWindowMs)
		setInt(ab, "ContentMinChars", &out.ContentMinChars)
		setInt(ab, "ContentMaxLinks", &out.ContentMaxLinks)
		setInt(ab, "DedupWindowMs", &out.DedupWindowMs)
		setInt(ab, "SweepSec", &out.AbuseSweepSec)
	}
	if cs, ok := raw["csrf"].(map[string]any); ok {
		setBool(cs, "OriginFallback", &out.CsrfOriginFallback)
	}
	if rg, ok := raw["register"].(map[string]any); ok {
		setInt(rg, "AttemptCooldownSec", &out.RegisterAttemptCooldownSec)
		setInt(rg, "MaxPerIPPerDay", &out.RegisterMaxPerIPPerDay)
		setInt(rg, "FailedMaxPerHour", &out.RegisterFailedMaxPerHour)
		setInt(rg, "TempBanMinutes", &out.RegisterTempBanMinutes)
	}
	if ml, ok := raw["mail"].(map[string]any); ok {
		setBool(ml, "SendReportEmails", &out.SendReportEmails)
		setStringSlice(ml, "AdminEmails", &out.AdminEmails)
	}
	return nil
}

func setString(m map[string]any, key string, dst *string) {
	if v, ok := m[key].(string); ok && v != "" {
		*dst = v
	}
}

func setBool(m map[string]any, key string, dst *bool) {
	if v, ok := m[key].(bool); ok {
		*dst = v
	}
}

func setInt(m map[string]any, key string, dst *int) {
	switch v := m[key].(type) {
	case float64:
		if v != 0 {
			*dst = int(v)
		}
	case int:
		if v != 0 {
			*dst = v
		}
	}
}

func setStringSlice(m map[string]any, key string, dst *[]string) {
	arr, ok := m[key].([]any)
	if !ok {
		return
	}
	res := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			res = append(res, s)
		}
	}
	if len(res) > 0 {
		*dst = res
	}
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if c.ThreadRateMax == 0 {
		c.ThreadRateMax = 6
	}
	if c.ThreadRateWindowMs == 0 {
		c.ThreadRateWindowMs = 60_000
	}
	if c.CommentRateMax == 0 {
		c.CommentRateMax = 20
	}
	if c.CommentRateWindowMs == 0 {
		c.CommentRateWindowMs = 60_000
	}
	if c.ReportRateMax == 0 {
		c.ReportRateMax = 10
	}
	if c.ReportRateWindowMs == 0 {
		c.ReportRateWindowMs = 60_000
	}
	if c.ContentMinChars == 0 {
		c.ContentMinChars = 1
	}
	if c.ContentMaxLinks == 0 {
		c.ContentMaxLinks = 8
	}
	if c.DedupWindowMs == 0 {
		c.DedupWindowMs = 10 * 60_000
	}
	if c.AbuseSweepSec == 0 {
		c.AbuseSweepSec = 60
	}
	if c.RegisterAttemptCooldownSec == 0 {
		c.RegisterAttemptCooldownSec = 10
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 10
	}
	if c.RegisterFailedMaxPerHour == 0 {
		c.RegisterFailedMaxPerHour = 20
	}
	if c.RegisterTempBanMinutes == 0 {
		c.RegisterTempBanMinutes = 60
	}
}

func applyEnvOverrides(c *AppConfig) {
	c.AppPort = getEnv("APP_PORT", c.AppPort)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	if v, err := strconv.Atoi(os.Getenv("REDIS_PORT")); err == nil && v > 0 {
		c.RedisPort = v
	}
	c.SMTPHost = getEnv("SMTP_HOST", c.SMTPHost)
	c.SMTPUsername = getEnv("SMTP_USERNAME", c.SMTPUsername)
	c.SMTPPassword = getEnv("SMTP_PASSWORD", c.SMTPPassword)
	c.SMTPFrom = getEnv("SMTP_FROM", c.SMTPFrom)
	if v, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && v > 0 {
		c.SMTPPort = v
	}
	if v := os.Getenv("CSRF_ORIGIN_FALLBACK"); v == "1" || strings.EqualFold(v, "true") {
		c.CsrfOriginFallback = true
	}
	if v := os.Getenv("SEND_REPORT_EMAILS"); v == "1" || strings.EqualFold(v, "true") {
		c.SendReportEmails = true
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		parts := strings.Split(v, ",")
		res := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				res = append(res, p)
			}
		}
		c.AdminEmails = res
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
