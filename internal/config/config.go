package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envFileVar = "ENV_FILE"

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"DrivingLicenseIssuer"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"json"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	AutoMigrate    bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
	RedisURL       string        `env:"REDIS_URL"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionSecret string        `env:"SESSION_SECRET"`

	WalletAPIURL      string        `env:"WALLET_API_URL" envDefault:"https://cloud-wallet-api.prod.affinity-project.org/api/v1"`
	IssuerAPIURL      string        `env:"ISSUER_API_URL" envDefault:"https://affinity-issuer.prod.affinity-project.org/api/v1"`
	VerifierAPIURL    string        `env:"VERIFIER_API_URL" envDefault:"https://affinity-verifier.prod.affinity-project.org/api/v1"`
	APIKeyHash        string        `env:"API_KEY_HASH"`
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"30s"`
	HTTPClientRetries int           `env:"HTTP_CLIENT_RETRIES" envDefault:"0"`

	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	EmailSender        string `env:"EMAIL_SENDER"`
	WalletURL          string `env:"WALLET_URL"`

	IssuerUsernames []string `env:"ISSUER_USERNAMES" envSeparator:","`
	LoginRateLimit  int      `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
}

// Load reads configuration values from the environment and populates a Config instance.
// Variables found in the optional dotenv file (ENV_FILE, default ".env") never
// override variables already present in the process environment.
func Load() (Config, error) {
	if err := loadDotEnv(os.Getenv(envFileVar)); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.IssuerUsernames = trimAll(cfg.IssuerUsernames)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTPClientRetries < 0 {
		return fmt.Errorf("HTTP_CLIENT_RETRIES must not be negative")
	}
	if c.ShutdownPeriod <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.IsDev() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.APIKeyHash == "" {
		return fmt.Errorf("API_KEY_HASH must be set when APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// IsDev reports whether the service runs in a local/development environment,
// where missing backends fall back to in-memory implementations.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// EmailEnabled reports whether enough AWS settings exist to send real email.
func (c Config) EmailEnabled() bool {
	return c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != "" && c.EmailSender != ""
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
