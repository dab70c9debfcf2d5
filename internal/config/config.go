package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds catalog database settings.
// Driver selects "postgres" (default) or "sqlite"; SQLitePath is used only by the latter.
type DatabaseConfig struct {
	Driver             string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	SQLitePath         string
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Config holds settings for AWS S3 or any S3-compatible endpoint.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// GCSConfig holds settings for Google Cloud Storage. Credentials come from ADC.
type GCSConfig struct {
	Bucket string
}

// StorageConfig selects and configures the object store backend.
type StorageConfig struct {
	Backend          string
	PresignExpirySec int
	MinIO            MinIOConfig
	S3               S3Config
	GCS              GCSConfig
}

// FeedConfig describes how to reach the upstream exchange feed.
type FeedConfig struct {
	IndexURL          string
	FileURLTemplate   string
	UserAgent         string
	FetchTimeoutSec   int
	RequestsPerSecond float64
	SpecsFile         string
	Holidays          []string
	BusinessDateLag   int
}

// PipelineConfig holds ingestion policy switches.
type PipelineConfig struct {
	FetchConcurrency   int
	StoreUnchangedCopy bool
	ExtractArchives    bool
}

// ScheduleConfig controls the daily trigger.
type ScheduleConfig struct {
	Enabled bool
	Cron    string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Timezone string
	LogLevel string
	Database DatabaseConfig
	Storage  StorageConfig
	Feed     FeedConfig
	Pipeline PipelineConfig
	Schedule ScheduleConfig
}

const (
	defaultIndexURL        = "https://api3.sgx.com/infofeed/Apps?A=COW_Tickdownload_Content&B=TimeSalesData&C_T=20"
	defaultFileURLTemplate = "https://links.sgx.com/1.0.0/derivatives-historical/{key}/{filename}"
	defaultUserAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
)

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("TIMEZONE", "Asia/Singapore"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Driver:             getEnv("CATALOG_DRIVER", "postgres"),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			SQLitePath:         getEnv("SQLITE_PATH", "data/metadata.db"),
		},
		Storage: StorageConfig{
			Backend:          getEnv("STORAGE_BACKEND", "minio"),
			PresignExpirySec: getEnvInt("PRESIGN_EXPIRY_SEC", 900),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "datalake"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Bucket:    getEnv("S3_BUCKET", ""),
				Region:    getEnv("S3_REGION", ""),
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
			},
			GCS: GCSConfig{
				Bucket: getEnv("GCS_BUCKET", ""),
			},
		},
		Feed: FeedConfig{
			IndexURL:          getEnv("FEED_INDEX_URL", defaultIndexURL),
			FileURLTemplate:   getEnv("FEED_FILE_URL_TEMPLATE", defaultFileURLTemplate),
			UserAgent:         getEnv("FEED_USER_AGENT", defaultUserAgent),
			FetchTimeoutSec:   getEnvInt("FEED_FETCH_TIMEOUT_SEC", 60),
			RequestsPerSecond: getEnvFloat("FEED_REQUESTS_PER_SECOND", 2),
			SpecsFile:         getEnv("FEED_SPECS_FILE", ""),
			Holidays:          getEnvList("FEED_HOLIDAYS"),
			BusinessDateLag:   getEnvInt("BUSINESS_DATE_LAG", 1),
		},
		Pipeline: PipelineConfig{
			FetchConcurrency:   getEnvInt("PIPELINE_FETCH_CONCURRENCY", 4),
			StoreUnchangedCopy: getEnvBool("PIPELINE_STORE_UNCHANGED_COPY", false),
			ExtractArchives:    getEnvBool("PIPELINE_EXTRACT_ARCHIVES", true),
		},
		Schedule: ScheduleConfig{
			Enabled: getEnvBool("SCHEDULE_ENABLED", true),
			Cron:    getEnv("SCHEDULE_CRON", "0 7 * * *"),
		},
	}
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FetchTimeout returns the per-file upstream timeout.
func (c FeedConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
