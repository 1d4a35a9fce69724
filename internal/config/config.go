package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PresignExpiry is the lifetime of download URLs handed back to clients.
	PresignExpiry time.Duration
}

// UploaderConfig holds the client-side queue settings.
type UploaderConfig struct {
	URL            string
	Headers        map[string]string
	Meta           map[string]any
	FinalImageMime string
	MaxImageWidth  int
	MaxImageHeight int
	Quality        int
	MaxTasks       int
	ThumbWidth     int
	ThumbHeight    int
	EndDebounce    time.Duration
	// Transport selects the upload sink: "http" posts to URL, "s3" writes
	// straight to the MinIO bucket.
	Transport string
	Timeout   time.Duration
}

// AppConfig is the centralized configuration struct for both binaries.
// It is populated from environment variables.
type AppConfig struct {
	AppHost  string
	Port     string
	LogLevel slog.Level
	// Timezone names the location request log timestamps are rendered in.
	Timezone       string
	MetricsEnabled bool
	// MaxBodyBytes caps the receiver's request body size.
	MaxBodyBytes int
	Database     DatabaseConfig
	MinIO        MinIOConfig
	Uploader     UploaderConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	return &AppConfig{
		AppHost:      getEnv("APP_HOST", "localhost:8080"),
		Port:         getEnv("PORT", "8080"),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		Timezone:       getEnv("APP_TIMEZONE", "UTC"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MaxBodyBytes:   getEnvInt("MAX_BODY_BYTES", 64<<20),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:      getEnv("MINIO_ENDPOINT", ""),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
			Bucket:        getEnv("MINIO_BUCKET", ""),
			UseSSL:        getEnvBool("MINIO_USE_SSL", false),
			PresignExpiry: time.Duration(getEnvInt("MINIO_PRESIGN_EXPIRY_SEC", 3600)) * time.Second,
		},
		Uploader: UploaderConfig{
			URL:            getEnv("UPLOAD_URL", "http://localhost:8080/upload"),
			Headers:        getEnvJSON[map[string]string]("UPLOAD_HEADERS"),
			Meta:           getEnvJSON[map[string]any]("UPLOAD_META"),
			FinalImageMime: getEnv("UPLOAD_FINAL_IMAGE_MIME", "image/jpeg"),
			MaxImageWidth:  getEnvInt("UPLOAD_MAX_IMAGE_WIDTH", 0),
			MaxImageHeight: getEnvInt("UPLOAD_MAX_IMAGE_HEIGHT", 0),
			Quality:        getEnvInt("UPLOAD_QUALITY", 70),
			MaxTasks:       getEnvInt("UPLOAD_MAX_TASKS", 3),
			ThumbWidth:     getEnvInt("UPLOAD_THUMB_WIDTH", 0),
			ThumbHeight:    getEnvInt("UPLOAD_THUMB_HEIGHT", 0),
			EndDebounce:    time.Duration(getEnvInt("UPLOAD_END_DEBOUNCE_MS", 200)) * time.Millisecond,
			Transport:      getEnv("UPLOAD_TRANSPORT", "http"),
			Timeout:        time.Duration(getEnvInt("UPLOAD_TIMEOUT_SEC", 120)) * time.Second,
		},
	}
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

func getEnvLevel(key string, def slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.TrimSpace(v))); err == nil {
			return l
		}
	}
	return def
}

// getEnvJSON decodes a JSON object from the variable, returning the zero
// value when it is unset or invalid.
func getEnvJSON[T any](key string) T {
	var out T
	if v := os.Getenv(key); v != "" {
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			var zero T
			return zero
		}
	}
	return out
}
