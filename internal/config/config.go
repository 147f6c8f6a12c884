// Package config reads the process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendFile, BackendSQLite}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	MaxUploadBytes     int64

	// Storage
	DataBackend  string
	DataFilePath string
	SQLiteDBPath string

	// AMQP, optional
	AMQPURL           string
	AMQPExchange      string
	AMQPSyncQueue     string
	AMQPReminderQueue string

	// Google Sheets mirror, optional
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleSheetPrefix        string

	// OCR
	OCRAPIKey   string
	OCREndpoint string
	OCRLanguage string

	// Identity provider, disabled without a client id
	AuthDomain       string
	AuthClientID     string
	AuthClientSecret string
	AuthRedirectURL  string
	AuthLogoutURL    string
	AuthScopes       []string
	SessionTTL       time.Duration

	// Background work
	ReminderInterval     time.Duration
	OverviewCacheSize    int
	OverviewCacheTTL     time.Duration
	CacheCleanupInterval time.Duration
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	r := reader{k: k}

	cfg := &Config{
		Port:               r.str("PORT", "8081"),
		RateLimitPerMinute: r.int("RATE_LIMIT_PER_MINUTE", 60),
		MaxUploadBytes:     int64(r.int("MAX_UPLOAD_BYTES", 5<<20)),

		DataBackend:  r.str("DATA_BACKEND", BackendMemory),
		DataFilePath: r.str("DATA_FILE_PATH", "./data/fintrack.json"),
		SQLiteDBPath: r.str("SQLITE_DB_PATH", "./data/fintrack.db"),

		AMQPURL:           r.str("AMQP_URL", ""),
		AMQPExchange:      r.str("AMQP_EXCHANGE", "fintrack"),
		AMQPSyncQueue:     r.str("AMQP_SYNC_QUEUE", "sync_profiles"),
		AMQPReminderQueue: r.str("AMQP_REMINDER_QUEUE", "due_reminders"),

		GoogleSpreadsheetID:      r.str("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: r.str("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: r.str("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleSheetPrefix:        r.str("GOOGLE_SHEET_PREFIX", ""),

		OCRAPIKey:   r.str("OCR_API_KEY", ""),
		OCREndpoint: r.str("OCR_ENDPOINT", "https://api.ocr.space/parse/image"),
		OCRLanguage: r.str("OCR_LANGUAGE", "eng"),

		AuthDomain:       strings.TrimRight(r.str("AUTH_DOMAIN", ""), "/"),
		AuthClientID:     r.str("AUTH_CLIENT_ID", ""),
		AuthClientSecret: r.str("AUTH_CLIENT_SECRET", ""),
		AuthRedirectURL:  r.str("AUTH_REDIRECT_URL", ""),
		AuthLogoutURL:    r.str("AUTH_LOGOUT_URL", ""),
		AuthScopes:       strings.Fields(r.str("AUTH_SCOPES", "openid email profile")),
		SessionTTL:       r.duration("SESSION_TTL", 12*time.Hour),

		ReminderInterval:     r.duration("REMINDER_INTERVAL", time.Hour),
		OverviewCacheSize:    r.int("OVERVIEW_CACHE_SIZE", 256),
		OverviewCacheTTL:     r.duration("OVERVIEW_CACHE_TTL", 10*time.Minute),
		CacheCleanupInterval: r.duration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
	}
	return cfg, nil
}

// AMQPEnabled reports whether a broker is configured.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// AuthEnabled reports whether sign-in is required.
func (c *Config) AuthEnabled() bool { return c.AuthClientID != "" }

// SheetsEnabled reports whether the spreadsheet mirror is configured.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	switch c.DataBackend {
	case BackendFile:
		if c.DataFilePath == "" {
			errors = append(errors, "data file path cannot be empty when using file backend")
		} else if msg := ensureDir(c.DataFilePath); msg != "" {
			errors = append(errors, msg)
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPSyncQueue == "" || c.AMQPReminderQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.AuthEnabled() {
		if !isHTTPURL(c.AuthDomain) {
			errors = append(errors, fmt.Sprintf("invalid auth domain '%s': must be an http(s) URL", c.AuthDomain))
		}
		if !isHTTPURL(c.AuthRedirectURL) {
			errors = append(errors, fmt.Sprintf("invalid auth redirect URL '%s': must be an http(s) URL", c.AuthRedirectURL))
		}
		if c.AuthLogoutURL != "" && !isHTTPURL(c.AuthLogoutURL) {
			errors = append(errors, fmt.Sprintf("invalid auth logout URL '%s': must be an http(s) URL", c.AuthLogoutURL))
		}
		if c.SessionTTL < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
		}
	}

	if c.ReminderInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at least 1 second", c.ReminderInterval))
	} else if c.ReminderInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at most 24 hours", c.ReminderInterval))
	}
	if c.OverviewCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid overview cache size %d: must be at least 1", c.OverviewCacheSize))
	}
	if c.OverviewCacheTTL <= 0 || c.CacheCleanupInterval <= 0 {
		errors = append(errors, "cache TTL and cleanup interval must be positive")
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ensureDir creates the parent directory of path when missing.
func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create data directory '%s': %v", dir, err)
		}
	}
	return ""
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// reader applies defaults on top of the loaded keys. Unparsable numbers and
// durations fall back to the default.
type reader struct {
	k *koanf.Koanf
}

func (r reader) str(key, def string) string {
	if v := strings.TrimSpace(r.k.String(key)); v != "" {
		return v
	}
	return def
}

func (r reader) int(key string, def int) int {
	if i, err := strconv.Atoi(r.str(key, "")); err == nil {
		return i
	}
	return def
}

func (r reader) duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(r.str(key, "")); err == nil {
		return d
	}
	return def
}
