package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT (issued by the external auth service, verified here)
	JWTSecret string

	// Admin
	AdminUserIDs string
	AdminToken   string

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string

	// Zone cache (Redis is optional, in-memory otherwise)
	RedisAddr     string
	RedisPassword string
	ZoneCacheTTL  time.Duration

	// Risk engine
	ThrottleWindow    time.Duration
	ClusterTimeout    time.Duration
	ClusterInterval   time.Duration
	StatsInterval     time.Duration
	LocationRetention time.Duration

	// Notification dispatch
	PushWebhookURL    string
	PushWebhookToken  string
	PushRatePerSecond float64
	DispatchQueueSize int
	DispatchWorkers   int
	DispatchTimeout   time.Duration
}

// Load reads configuration from the environment. A local .env file is
// honoured when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "crimewatch_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		ZoneCacheTTL:  parseDuration(getEnv("ZONE_CACHE_TTL", "1m"), time.Minute),

		ThrottleWindow:    parseDuration(getEnv("THROTTLE_WINDOW", "1h"), time.Hour),
		ClusterTimeout:    parseDuration(getEnv("CLUSTER_TIMEOUT", "2m"), 2*time.Minute),
		ClusterInterval:   parseDuration(getEnv("CLUSTER_INTERVAL", "0s"), 0),
		StatsInterval:     parseDuration(getEnv("ZONE_STATS_INTERVAL", "0s"), 0),
		LocationRetention: parseDuration(getEnv("LOCATION_RETENTION", "2160h"), 90*24*time.Hour),

		PushWebhookURL:    getEnv("PUSH_WEBHOOK_URL", ""),
		PushWebhookToken:  getEnv("PUSH_WEBHOOK_TOKEN", ""),
		PushRatePerSecond: parseFloat(getEnv("PUSH_RATE_PER_SECOND", "20"), 20),
		DispatchQueueSize: parseInt(getEnv("DISPATCH_QUEUE_SIZE", "256"), 256),
		DispatchWorkers:   parseInt(getEnv("DISPATCH_WORKERS", "4"), 4),
		DispatchTimeout:   parseDuration(getEnv("DISPATCH_TIMEOUT", "10s"), 10*time.Second),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}
