package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"TOPSIS_PORT", "TOPSIS_METRICS_PORT", "TOPSIS_ADMIN_TOKEN", "TOPSIS_RATE_LIMIT_PER_MINUTE",
	"TOPSIS_DATABASE_DRIVER", "TOPSIS_DATABASE_URL", "TOPSIS_DATABASE_PATH", "TOPSIS_HERMES_URL",
	"TOPSIS_MAIL_HOST", "TOPSIS_MAIL_PORT", "TOPSIS_MAIL_USERNAME", "TOPSIS_MAIL_PASSWORD",
	"TOPSIS_MAIL_FROM", "TOPSIS_MAIL_IMPLICIT_TLS", "TOPSIS_MASHUP_WORK_DIR", "TOPSIS_TICK_INTERVAL_MS",
	"TOPSIS_ARTIFACTS_BACKEND", "TOPSIS_S3_BUCKET", "TOPSIS_S3_ENDPOINT", "TOPSIS_S3_ACCESS_KEY",
	"TOPSIS_S3_SECRET_KEY", "TOPSIS_LOG_LEVEL", "TOPSIS_LOG_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.RateLimitPerMinute != 120 {
		t.Errorf("expected rate limit 120, got %d", cfg.Server.RateLimitPerMinute)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Database.Driver)
	}
	if cfg.Hermes.URL != "" {
		t.Errorf("expected hermes disabled by default, got %s", cfg.Hermes.URL)
	}
	if cfg.Mail.Host != "" {
		t.Errorf("expected mail disabled by default, got %s", cfg.Mail.Host)
	}
	if cfg.Mail.Port != 465 || !cfg.Mail.ImplicitTLS {
		t.Errorf("expected implicit TLS on 465, got %d/%v", cfg.Mail.Port, cfg.Mail.ImplicitTLS)
	}
	if cfg.Mashup.SearchMultiplier != 3 {
		t.Errorf("expected search multiplier 3, got %d", cfg.Mashup.SearchMultiplier)
	}
	if cfg.Mashup.MaxVideos != 50 || cfg.Mashup.MaxDurationSeconds != 60 {
		t.Errorf("unexpected mashup limits %d/%d", cfg.Mashup.MaxVideos, cfg.Mashup.MaxDurationSeconds)
	}
	if cfg.Artifacts.Backend != "local" {
		t.Errorf("expected local artifacts, got %s", cfg.Artifacts.Backend)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	// Duration helpers
	if cfg.TickInterval() != 5*time.Second {
		t.Errorf("expected TickInterval 5s, got %v", cfg.TickInterval())
	}
	if cfg.JobTimeout() != 30*time.Minute {
		t.Errorf("expected JobTimeout 30m, got %v", cfg.JobTimeout())
	}
	if cfg.MailTimeout() != 30*time.Second {
		t.Errorf("expected MailTimeout 30s, got %v", cfg.MailTimeout())
	}
	if cfg.PresignTTL() != 24*time.Hour {
		t.Errorf("expected PresignTTL 24h, got %v", cfg.PresignTTL())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOPSIS_PORT", "9000")
	t.Setenv("TOPSIS_METRICS_PORT", "9001")
	t.Setenv("TOPSIS_ADMIN_TOKEN", "secret-token")
	t.Setenv("TOPSIS_DATABASE_DRIVER", "postgres")
	t.Setenv("TOPSIS_DATABASE_URL", "postgres://localhost/topsis_test")
	t.Setenv("TOPSIS_HERMES_URL", "nats://nats:4222")
	t.Setenv("TOPSIS_MAIL_HOST", "smtp.gmail.com")
	t.Setenv("TOPSIS_MAIL_PORT", "587")
	t.Setenv("TOPSIS_MAIL_PASSWORD", "app-password")
	t.Setenv("TOPSIS_MAIL_IMPLICIT_TLS", "false")
	t.Setenv("TOPSIS_TICK_INTERVAL_MS", "2000")
	t.Setenv("TOPSIS_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.URL != "postgres://localhost/topsis_test" {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.Mail.Host != "smtp.gmail.com" || cfg.Mail.Port != 587 {
		t.Errorf("unexpected mail host %s:%d", cfg.Mail.Host, cfg.Mail.Port)
	}
	if cfg.Mail.Password != "app-password" {
		t.Error("expected mail password from env")
	}
	if cfg.Mail.ImplicitTLS {
		t.Error("expected implicit TLS disabled")
	}
	if cfg.Mashup.TickIntervalMs != 2000 {
		t.Errorf("expected tick 2000, got %d", cfg.Mashup.TickIntervalMs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9100
database:
  driver: sqlite
  path: /var/lib/topsis/runs.db
mashup:
  max_videos: 30
artifacts:
  backend: s3
  s3:
    bucket: mashups
    endpoint: https://nyc3.digitaloceanspaces.com
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port kept, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Database.Path != "/var/lib/topsis/runs.db" {
		t.Errorf("unexpected db path %s", cfg.Database.Path)
	}
	if cfg.Mashup.MaxVideos != 30 {
		t.Errorf("expected max videos 30, got %d", cfg.Mashup.MaxVideos)
	}
	if cfg.Artifacts.S3.Bucket != "mashups" || cfg.Artifacts.S3.Region != "us-east-1" {
		t.Errorf("unexpected s3 config %+v", cfg.Artifacts.S3)
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("TOPSIS_DATABASE_DRIVER", "mysql")
		if _, err := Load(""); err == nil {
			t.Error("expected error for unknown driver")
		}
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("TOPSIS_DATABASE_DRIVER", "postgres")
		if _, err := Load(""); err == nil {
			t.Error("expected error for missing url")
		}
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		t.Setenv("TOPSIS_ARTIFACTS_BACKEND", "s3")
		if _, err := Load(""); err == nil {
			t.Error("expected error for missing bucket")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
