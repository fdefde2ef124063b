package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ISSUER_USERNAMES", " alice, ,bob ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lower-cased log level, got %s", cfg.LogLevel)
	}
	if cfg.AWSRegion != "us-east-1" {
		t.Fatalf("expected default region us-east-1, got %s", cfg.AWSRegion)
	}
	if cfg.ShutdownPeriod != 10*time.Second {
		t.Fatalf("expected 10s shutdown period, got %s", cfg.ShutdownPeriod)
	}
	if cfg.HTTPClientRetries != 0 {
		t.Fatalf("expected no retries by default, got %d", cfg.HTTPClientRetries)
	}
	if len(cfg.IssuerUsernames) != 2 || cfg.IssuerUsernames[0] != "alice" || cfg.IssuerUsernames[1] != "bob" {
		t.Fatalf("unexpected issuer usernames: %v", cfg.IssuerUsernames)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("API_KEY_HASH", "hash")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing DATABASE_URL error")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/dl")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadRejectsNegativeRetries(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("HTTP_CLIENT_RETRIES", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("EMAIL_SENDER=issuer@example.com\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("APP_ENV", "development")
	t.Setenv(envFileVar, path)
	t.Cleanup(func() { os.Unsetenv("EMAIL_SENDER") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EmailSender != "issuer@example.com" {
		t.Fatalf("expected sender from env file, got %q", cfg.EmailSender)
	}
	if cfg.EmailEnabled() {
		t.Fatal("email must stay disabled without AWS credentials")
	}
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv(envFileVar, filepath.Join(t.TempDir(), "missing.env"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}
