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

	"reportes/internal/storage"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Reporting view
	DataBackend    string
	SQLiteDBPath   string
	DatabaseURL    string
	ReportView     string
	ReportPushdown bool
	SeedFile       string
	QueryTimeout   time.Duration

	// Dashboard and exports
	DashboardRefresh time.Duration
	ExportRateLimit  int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Blob storage for async exports
	BlobDriver      string
	BlobDir         string
	BlobS3Bucket    string
	BlobS3Region    string
	BlobS3Endpoint  string
	BlobS3PathStyle bool

	// Google Sheets publishing
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

var validBackends = []string{"memory", "sqlite", "mysql", "postgres"}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:    getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/reportes.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ReportView:     getEnv("REPORT_VIEW", storage.DefaultView),
		ReportPushdown: getEnvBool("REPORT_PUSHDOWN", true),
		SeedFile:       getEnv("SEED_FILE", ""),
		QueryTimeout:   getEnvDuration("QUERY_TIMEOUT", 30*time.Second),

		DashboardRefresh: getEnvDuration("DASHBOARD_REFRESH", 5*time.Minute),
		ExportRateLimit:  getEnvInt("EXPORT_RATE_LIMIT", 20),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "reportes"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "export_requests"),

		BlobDriver:      getEnv("BLOB_DRIVER", "local"),
		BlobDir:         getEnv("BLOB_DIR", "./data/exports"),
		BlobS3Bucket:    getEnv("BLOB_S3_BUCKET", ""),
		BlobS3Region:    getEnv("BLOB_S3_REGION", ""),
		BlobS3Endpoint:  getEnv("BLOB_S3_ENDPOINT", ""),
		BlobS3PathStyle: getEnvBool("BLOB_S3_PATH_STYLE", false),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}
}

// ExportsEnabled reports whether the async export queue is configured.
func (c *Config) ExportsEnabled() bool { return c.AMQPURL != "" }

// SheetsEnabled reports whether the sheets export kind can be served.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
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
	case "mysql", "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, fmt.Sprintf("DATABASE_URL is required when using %s backend", c.DataBackend))
		}
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	}

	if !storage.ValidViewName(c.ReportView) {
		errors = append(errors, fmt.Sprintf("invalid report view '%s': must be a plain identifier", c.ReportView))
	}

	if c.QueryTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid query timeout %v: must be at least 1 second", c.QueryTimeout))
	}
	if c.DashboardRefresh < time.Second {
		errors = append(errors, fmt.Sprintf("invalid dashboard refresh %v: must be at least 1 second", c.DashboardRefresh))
	} else if c.DashboardRefresh > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid dashboard refresh %v: must be at most 24 hours", c.DashboardRefresh))
	}
	if c.ExportRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid export rate limit %d: must be at least 1", c.ExportRateLimit))
	}

	// Validate AMQP URL if provided
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

	switch c.BlobDriver {
	case "local":
		if c.BlobDir == "" {
			errors = append(errors, "BLOB_DIR cannot be empty when using local blob driver")
		}
	case "s3":
		if c.BlobS3Bucket == "" {
			errors = append(errors, "BLOB_S3_BUCKET is required when using s3 blob driver")
		}
		if c.BlobS3Endpoint != "" {
			if _, err := url.ParseRequestURI(c.BlobS3Endpoint); err != nil {
				errors = append(errors, fmt.Sprintf("invalid BLOB_S3_ENDPOINT '%s': %v", c.BlobS3Endpoint, err))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid blob driver '%s': must be 'local' or 's3'", c.BlobDriver))
	}

	// Validate Google Sheets configuration if a spreadsheet is set
	if c.GoogleSpreadsheetID != "" {
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided with GOOGLE_SPREADSHEET_ID")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Return combined errors
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
