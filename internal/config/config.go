package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	NotifierLog    = "log"
	NotifierSMTP   = "smtp"
	NotifierRabbit = "rabbit"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr           string
	FrontendURL        string
	CORSAllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	//Auth / Security
	JWTSecret       string
	JWTIssuer       string
	SessionTokenTTL time.Duration
	PasscodeTTL     time.Duration
	GoogleClientID  string

	// Storage
	Store     string // postgres / memory
	DBAddr    string
	DBDebug   bool
	DBMigrate bool
	SeedDemo  bool

	// Delivery
	Notifier       string // log / smtp / rabbit
	FakeFailMode   string // log notifier drills: "", transient, permanent
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
	SMTPTimeout    time.Duration
	SMTPInsecure   bool
	RabbitURL      string
	RabbitExchange string

	// Rate limiting
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RateLimitEnabled bool
}

func Load() (*Config, error) {
	// a missing .env is fine; real env vars win
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),
		JWTIssuer:      getEnv("JWT_ISSUER", "notes-service"),
		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		Store:          strings.ToLower(getEnv("STORE", StorePostgres)),
		Notifier:       strings.ToLower(getEnv("NOTIFIER", NotifierLog)),
		FakeFailMode:   strings.ToLower(getEnv("FAKE_FAIL_MODE", "")),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:       getEnv("SMTP_FROM", ""),
		RabbitURL:      getEnv("RABBIT_URL", ""),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "notes.events"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
	}
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", cfg.FrontendURL))

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	var err error
	if cfg.SessionTokenTTL, err = getDuration("SESSION_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PasscodeTTL, err = getDuration("PASSCODE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SMTPTimeout, err = getDuration("SMTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DBMigrate, err = getBool("DB_MIGRATE", true); err != nil {
		return nil, err
	}
	if cfg.SeedDemo, err = getBool("SEED_DEMO", cfg.Env == "dev"); err != nil {
		return nil, err
	}
	if cfg.SMTPInsecure, err = getBool("SMTP_INSECURE", false); err != nil {
		return nil, err
	}
	if cfg.RateLimitEnabled, err = getBool("RATE_LIMIT_ENABLED", true); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate fails fast on combinations the service cannot start with.
func (c *Config) validate() error {
	if c.PasscodeTTL <= 0 {
		return fmt.Errorf("PASSCODE_TTL must be positive")
	}
	if c.SessionTokenTTL <= 0 {
		return fmt.Errorf("SESSION_TOKEN_TTL must be positive")
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		c.DBAddr = os.Getenv("DB_ADDR")
		if c.DBAddr == "" {
			return fmt.Errorf("missing required env var: DB_ADDR")
		}
		if !strings.HasPrefix(c.DBAddr, "postgres://") && !strings.HasPrefix(c.DBAddr, "postgresql://") {
			return fmt.Errorf("DB_ADDR must be a postgres:// url")
		}
	default:
		return fmt.Errorf("invalid STORE %q (want postgres or memory)", c.Store)
	}

	switch c.Notifier {
	case NotifierLog:
	case NotifierSMTP:
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			return fmt.Errorf("NOTIFIER=smtp requires SMTP_HOST and SMTP_FROM")
		}
	case NotifierRabbit:
		if c.RabbitURL == "" {
			return fmt.Errorf("NOTIFIER=rabbit requires RABBIT_URL")
		}
	default:
		return fmt.Errorf("invalid NOTIFIER %q (want log, smtp or rabbit)", c.Notifier)
	}

	switch c.FakeFailMode {
	case "", "transient", "permanent":
	default:
		return fmt.Errorf("invalid FAKE_FAIL_MODE %q", c.FakeFailMode)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return i, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
