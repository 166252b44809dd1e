package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devJWTSecret is only good for local runs; Validate rejects it in prod.
const devJWTSecret = "dev-secret-change-me"

var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set in prod")

type Config struct {
	Env   string
	Port  int
	DBURL string

	// Store selects the user store: "postgres" or "memory".
	Store         string
	RunMigrations bool

	JWTSecret           string
	JWTAccessTTLMinutes int
	BcryptCost          int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelEndpoint string

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads configuration from the environment. A .env file in the working directory
// is loaded first when present; real environment variables win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: getEnv("DATABASE_URL", buildDBURL()),

		Store:         getEnv("USER_STORE", "postgres"),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),

		JWTSecret:           getEnv("JWT_SECRET", devJWTSecret),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),
		BcryptCost:          getEnvInt("BCRYPT_COST", 10),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}
}

// Validate reports settings the process must not start with.
func (c Config) Validate() error {
	if c.Env == "prod" && (c.JWTSecret == "" || c.JWTSecret == devJWTSecret) {
		return ErrInsecureJWTSecret
	}
	return nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "usershub")
	pass := getEnv("DB_PASSWORD", "usershub")
	name := getEnv("DB_NAME", "usershub")
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
			slog.Warn("invalid integer in env, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
