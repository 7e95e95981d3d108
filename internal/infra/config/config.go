package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	StoreBackend       string
	MongoURI           string
	MongoDB            string
	RedisURL           string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	S3Endpoint         string
	S3PublicEndpoint   string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3UseSSL           bool
	EmailAPIURL        string
	EmailAPIKey        string
	EmailFrom          string
	AppBaseURL         string
	AdminEmails        string
	AcademicDomains    []string
	SessionTTL         time.Duration
	SecureCookies      bool
	ActivityDebounce   time.Duration
	ActiveThreshold    time.Duration
	NotifyTimeout      time.Duration
	LoginPath          string
	CORSOrigins        []string
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "campusmarket"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3PublicEndpoint: getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:         getEnv("S3_BUCKET", "campusmarket-photos"),
		EmailAPIURL:      os.Getenv("EMAIL_API_URL"),
		EmailAPIKey:      os.Getenv("EMAIL_API_KEY"),
		EmailFrom:        getEnv("EMAIL_FROM", "Campus Market <no-reply@campusmarket.local>"),
		AppBaseURL:       strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		AdminEmails:      os.Getenv("ADMIN_EMAILS"),
		AcademicDomains:  splitList(os.Getenv("ACADEMIC_DOMAINS")),
		LoginPath:        getEnv("LOGIN_PATH", "/login"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}
	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"SESSION_TTL", 7 * 24 * time.Hour, &cfg.SessionTTL},
		{"ACTIVITY_DEBOUNCE", time.Minute, &cfg.ActivityDebounce},
		{"ACTIVE_THRESHOLD", 5 * time.Minute, &cfg.ActiveThreshold},
		{"NOTIFY_TIMEOUT", 10 * time.Second, &cfg.NotifyTimeout},
	}
	for _, d := range durations {
		val, err := parseDurationEnv(d.key, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dest = val
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	useSSL, err := parseBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	secure, err := parseBoolEnv("SECURE_COOKIES", cfg.Env != "dev" && cfg.Env != "local")
	if err != nil {
		return Config{}, err
	}
	cfg.SecureCookies = secure

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required for STORE_BACKEND=mongo")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}
	if !strings.HasPrefix(cfg.LoginPath, "/") {
		return Config{}, fmt.Errorf("LOGIN_PATH must start with '/'")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
