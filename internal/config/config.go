package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	devJWTSecret = "dev-secret-change-me"
)

type Config struct {
	Env  string
	Port int

	// DataBackend selects where users, rooms and courses live.
	DataBackend string
	DBURL       string
	DBMaxConns  int32

	// SessionBackend selects the session store.
	SessionBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	SessionTTL    time.Duration
	ControllerTTL time.Duration
	SweepInterval time.Duration
	CookieSecure  bool

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	DevMode       bool
	RoleSwitching bool

	CORSOrigins  []string
	MaxBodyBytes int64

	ServiceName  string
	OTLPEndpoint string
}

// Load reads .env.local and .env when present, then the environment.
// Variables already set in the process win over both files.
func Load() Config {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("config: could not read env file", "file", f, "err", err)
		}
	}

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:  env,
		Port: getEnvInt("PORT", 8080),

		DataBackend: strings.ToLower(getEnv("DATA_BACKEND", BackendMemory)),
		DBURL:       getEnv("DATABASE_URL", buildDBURL()),
		DBMaxConns:  int32(getEnvInt("DB_MAX_CONNS", 5)),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", BackendMemory)),
		RedisAddr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),

		SessionTTL:    getEnvDuration("SESSION_TTL", 8*time.Hour),
		ControllerTTL: getEnvDuration("CONTROLLER_TTL", 30*time.Minute),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Minute),
		CookieSecure:  getEnvBool("COOKIE_SECURE", env != "dev"),

		JWTSecret: getEnv("JWT_SECRET", devJWTSecret),
		JWTIssuer: getEnv("JWT_ISSUER", "akbidlab"),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 8*time.Hour),

		DevMode:       getEnvBool("DEV_MODE", env == "dev"),
		RoleSwitching: getEnvBool("ENABLE_ROLE_SWITCHING", false),

		CORSOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		ServiceName:  getEnv("OTEL_SERVICE_NAME", "akbidlab-api"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// RoleSwitchingEnabled is true only when both dev flags are on.
func (c Config) RoleSwitchingEnabled() bool {
	return c.DevMode && c.RoleSwitching
}

func (c Config) Validate() error {
	switch c.DataBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("config: unknown DATA_BACKEND %q", c.DataBackend)
	}

	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	if c.Env != "dev" && c.JWTSecret == devJWTSecret {
		return errors.New("config: JWT_SECRET must be set outside dev")
	}
	if c.SessionTTL <= 0 || c.ControllerTTL <= 0 || c.TokenTTL <= 0 {
		return errors.New("config: ttl values must be positive")
	}
	return nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "akbidlab")
	pass := getEnv("DB_PASSWORD", "akbidlab")
	name := getEnv("DB_NAME", "akbidlab")
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
			slog.Warn("config: not an integer, using default", "key", key, "value", v)
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
			slog.Warn("config: not a boolean, using default", "key", key, "value", v)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
