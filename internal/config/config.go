package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	SessionSecret string
	SessionTTL    time.Duration

	// Default admin seeding. Seeding only happens when both email and
	// password are set, so shipping a well-known password is an explicit
	// deployment decision.
	AdminEmail    string
	AdminPassword string
	AdminName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRateLimit  int
	LoginRateWindow time.Duration

	OtelEndpoint string
}

func Load() Config {
	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)
	dbURL := buildDBURL()

	return Config{
		Env:   env,
		Port:  port,
		DBURL: dbURL,

		SessionSecret: getEnv("SESSION_SECRET", "dev-only-secret"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 12*time.Hour),

		AdminEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", time.Minute),

		OtelEndpoint: os.Getenv("OTEL_EXPORTER_ENDPOINT"),
	}
}

// IsProduction gates the secure flag on session and flash cookies.
func (c Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "timeclock")
	pass := getEnv("DB_PASSWORD", "timeclock")
	name := getEnv("DB_NAME", "timeclock")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
	}
	return fallback
}
