package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const sixtyMB = 60 * 1024 * 1024

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	LogLevel             string

	JWTSecret     string
	WebhookSecret string

	AWSRegion          string
	S3Bucket           string
	S3TranscriptBucket string
	S3PresignExpire    time.Duration
	S3MaxBytes         int64

	OpenAIAPIKey string
	OpenAIModel  string

	// SummarizeDelay is how long after a transcript callback the
	// summarization job becomes due. The transcript object is written by an
	// external job and may not be readable the instant the callback lands.
	SummarizeDelay time.Duration
}

// Load reads .env (when present) and the environment. Missing required
// variables panic: the process cannot run without them and there is no
// caller that could recover.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		LogLevel:             getenv("LOG_LEVEL", "info"),

		JWTSecret:     mustGetenv("JWT_SECRET"),
		WebhookSecret: mustGetenv("WEBHOOK_SECRET"),

		AWSRegion:          getenv("AWS_REGION", "ap-south-1"),
		S3Bucket:           getenv("S3_BUCKET", "dev-bucket"),
		S3TranscriptBucket: getenv("S3_TRANSCRIPT_BUCKET", "dev-bucket"),
		S3PresignExpire:    getDuration("S3_PRESIGN_EXPIRE", time.Hour),
		S3MaxBytes:         getInt64("S3_MAX_BYTES", sixtyMB),

		OpenAIAPIKey: mustGetenv("OPENAI_API_KEY"),
		OpenAIModel:  getenv("OPENAI_MODEL", "gpt-4o-mini"),

		SummarizeDelay: getDuration("SUMMARIZE_DELAY", 60*time.Second),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
