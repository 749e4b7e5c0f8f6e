package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process-wide settings. It is loaded once at startup and
// passed by reference into the components that need it; there are no ambient
// globals.
type Config struct {
	ServerAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64

	AuthSecret    string
	AuthAlgorithm string
	TokenTTL      time.Duration
	TokenIssuer   string

	AdminKey string
	PGDSN    string

	// TrustIDHeader enables the X-User-Id fallback for trusted internal
	// callers. Off by default.
	TrustIDHeader bool

	LoginRatePerMinute int
	LoginRateBurst     int
}

// Load reads configuration from the environment (and a .env file in dev)
// and validates it. Validation failures are fatal to startup: a service
// without a secret must not serve requests.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr:         getEnv("CAREBRIDGE_ADDR", ":8080"),
		ReadTimeout:        getDuration("CAREBRIDGE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getDuration("CAREBRIDGE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:        getDuration("CAREBRIDGE_IDLE_TIMEOUT", 60*time.Second),
		MaxBodyBytes:       getInt64("CAREBRIDGE_MAX_BODY_BYTES", 1<<20),
		AuthSecret:         strings.TrimSpace(os.Getenv("CAREBRIDGE_AUTH_SECRET")),
		AuthAlgorithm:      getEnv("CAREBRIDGE_AUTH_ALG", "HS256"),
		TokenTTL:           time.Duration(getInt("CAREBRIDGE_TOKEN_TTL_MIN", 60)) * time.Minute,
		TokenIssuer:        getEnv("CAREBRIDGE_TOKEN_ISSUER", "carebridge"),
		AdminKey:           strings.TrimSpace(os.Getenv("CAREBRIDGE_ADMIN_KEY")),
		PGDSN:              strings.TrimSpace(os.Getenv("CAREBRIDGE_PG_DSN")),
		TrustIDHeader:      getBool("CAREBRIDGE_TRUST_ID_HEADER", false),
		LoginRatePerMinute: getInt("CAREBRIDGE_LOGIN_RATE_PER_MIN", 10),
		LoginRateBurst:     getInt("CAREBRIDGE_LOGIN_RATE_BURST", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("CAREBRIDGE_AUTH_SECRET is required")
	}
	if c.AdminKey == "" {
		return fmt.Errorf("CAREBRIDGE_ADMIN_KEY is required")
	}
	switch strings.ToUpper(c.AuthAlgorithm) {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported signing algorithm %q", c.AuthAlgorithm)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body size must be positive")
	}
	if c.LoginRatePerMinute <= 0 || c.LoginRateBurst <= 0 {
		return fmt.Errorf("login rate limit values must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
