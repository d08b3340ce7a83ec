package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"famledger/internal/ledger"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets, reached with a service account
	GoogleSpreadsheetID      string
	GoogleDataSheet          string
	GoogleUsersSheet         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Ledger
	LedgerTimezone string
	FilterFallback string

	// Mail, used by the e-mail export and the monthly report
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	ReportCron       string
	ReportRecipients []string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Backend selection
	DataBackend   string
	DataDirectory string
}

var validBackends = []string{"memory", "sheets", "sqlite"}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/famledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "famledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_transactions"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleDataSheet:          getEnv("GOOGLE_DATA_SHEET", "Data"),
		GoogleUsersSheet:         getEnv("GOOGLE_USERS_SHEET", "Users"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 12*time.Hour),

		LedgerTimezone: getEnv("LEDGER_TIMEZONE", "UTC"),
		FilterFallback: getEnv("FILTER_FALLBACK", "open"),

		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:         getEnv("SMTP_FROM", ""),
		ReportCron:       getEnv("REPORT_CRON", "0 7 1 * *"),
		ReportRecipients: getEnvList("REPORT_RECIPIENTS"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		DataDirectory: getEnv("DATA_DIR", "data"),
	}

	return cfg
}

// Location returns the ledger time zone used to decide "today".
func (c *Config) Location() (*time.Location, error) {
	if c.LedgerTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.LedgerTimezone)
}

// Fallback returns the filter fallback policy.
func (c *Config) Fallback() ledger.FallbackPolicy {
	p, _ := ledger.ParseFallbackPolicy(c.FilterFallback)
	return p
}

// SMTPEnabled reports whether mail can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.DataBackend == "sheets" {
		errors = append(errors, c.googleErrors("sheets backend")...)
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		errors = append(errors, "SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid LEDGER_TIMEZONE '%s': %v", c.LedgerTimezone, err))
	}
	if _, err := ledger.ParseFallbackPolicy(c.FilterFallback); err != nil {
		errors = append(errors, err.Error())
	}

	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
	}
	if c.SMTPEnabled() {
		if _, err := mail.ParseAddress(c.SMTPFrom); err != nil {
			errors = append(errors, fmt.Sprintf("invalid SMTP_FROM '%s': %v", c.SMTPFrom, err))
		}
	}
	if _, err := cron.ParseStandard(c.ReportCron); err != nil {
		errors = append(errors, fmt.Sprintf("invalid REPORT_CRON '%s': %v", c.ReportCron, err))
	}
	for _, r := range c.ReportRecipients {
		if _, err := mail.ParseAddress(r); err != nil {
			errors = append(errors, fmt.Sprintf("invalid report recipient '%s': %v", r, err))
		}
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	return joinErrors(errors)
}

// ValidateMirror checks the settings the Sheets mirror worker needs on top of
// Validate.
func (c *Config) ValidateMirror() error {
	errors := c.googleErrors("the sync worker")
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the sync worker")
	}
	return joinErrors(errors)
}

// ValidateReport checks the settings the scheduled report needs on top of
// Validate.
func (c *Config) ValidateReport() error {
	var errors []string
	if !c.SMTPEnabled() {
		errors = append(errors, "SMTP_HOST is required for the scheduled report")
	}
	if len(c.ReportRecipients) == 0 {
		errors = append(errors, "REPORT_RECIPIENTS is required for the scheduled report")
	}
	return joinErrors(errors)
}

func (c *Config) googleErrors(use string) []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, fmt.Sprintf("Google Spreadsheet ID is required for %s", use))
	}
	if c.GoogleDataSheet == "" || c.GoogleUsersSheet == "" {
		errors = append(errors, fmt.Sprintf("Google data and users sheet names are required for %s", use))
	}

	hasFile := c.GoogleServiceAccountFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, fmt.Sprintf("either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for %s", use))
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func joinErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
