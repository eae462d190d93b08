package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	ClientURL       string
	TrustedProxies  []string

	DatabaseURL string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	MaxImageBytes  int64
	MaxResumeBytes int64

	ContactRateLimit  int
	ContactRateWindow time.Duration
	APIRateLimit      int
	APIRateWindow     time.Duration

	NotifyTransport  string
	NotifyQueueURL   string
	NotifyTimeout    time.Duration
	AdminNotifyEmail string
	MailFrom         string
	MailSignature    string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPass         string

	AdminEmails        []string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

const (
	defaultMaxImageBytes  = 5 << 20
	defaultMaxResumeBytes = 10 << 20
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173,https://*.vercel.app")),
		ClientURL:       strings.TrimSpace(os.Getenv("CLIENT_URL")),
		TrustedProxies:  splitAndTrim(getEnv("TRUSTED_PROXIES", "")),

		DatabaseURL: dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./uploads"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		MaxImageBytes:  getEnvInt64("ASSET_MAX_IMAGE_BYTES", defaultMaxImageBytes),
		MaxResumeBytes: getEnvInt64("ASSET_MAX_RESUME_BYTES", defaultMaxResumeBytes),

		ContactRateLimit:  getEnvInt("CONTACT_RATE_LIMIT", 3),
		ContactRateWindow: getEnvDuration("CONTACT_RATE_WINDOW", 15*time.Minute),
		APIRateLimit:      getEnvInt("API_RATE_LIMIT", 100),
		APIRateWindow:     getEnvDuration("API_RATE_WINDOW", 15*time.Minute),

		NotifyTransport:  normalizeTransport(getEnv("NOTIFY_TRANSPORT", "log")),
		NotifyQueueURL:   strings.TrimSpace(os.Getenv("NOTIFY_QUEUE_URL")),
		NotifyTimeout:    getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		AdminNotifyEmail: getEnv("ADMIN_NOTIFY_EMAIL", ""),
		MailFrom:         getEnv("MAIL_FROM", ""),
		MailSignature:    getEnv("MAIL_SIGNATURE", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUser:         getEnv("SMTP_USER", ""),
		SMTPPass:         getEnv("SMTP_PASS", ""),

		AdminEmails:        lowerAll(splitAndTrim(getEnv("ADMIN_EMAILS", ""))),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

// AllowedOrigins merges the configured CORS origins with CLIENT_URL.
func (c Config) AllowedOrigins() []string {
	out := append([]string(nil), c.CORSAllowOrigin...)
	if c.ClientURL != "" {
		out = append(out, c.ClientURL)
	}
	return out
}

// IsDevLike reports whether the environment tolerates missing infrastructure.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local", "":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid size: %q", key, raw)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeTransport(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ses":
		return "ses"
	case "smtp":
		return "smtp"
	default:
		return "log"
	}
}
