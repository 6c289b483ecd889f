package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Hermes    HermesConfig    `yaml:"hermes"`
	Mail      MailConfig      `yaml:"mail"`
	Mashup    MashupConfig    `yaml:"mashup"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	MetricsPort        int    `yaml:"metrics_port"`
	AdminToken         string `yaml:"admin_token"`
	PublicURL          string `yaml:"public_url"`
	MaxUploadBytes     int64  `yaml:"max_upload_bytes"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int    `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

// MailConfig holds SMTP transport settings. An empty Host disables delivery.
type MailConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	From        string `yaml:"from"`
	ImplicitTLS bool   `yaml:"implicit_tls"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

type MashupConfig struct {
	YtDlpBinary        string `yaml:"ytdlp_binary"`
	FfmpegBinary       string `yaml:"ffmpeg_binary"`
	FfprobeBinary      string `yaml:"ffprobe_binary"`
	WorkDir            string `yaml:"work_dir"`
	SearchMultiplier   int    `yaml:"search_multiplier"`
	MaxVideos          int    `yaml:"max_videos"`
	MaxDurationSeconds int    `yaml:"max_duration_seconds"`
	TickIntervalMs     int    `yaml:"tick_interval_ms"`
	JobTimeoutMs       int    `yaml:"job_timeout_ms"`
	AttachLimitBytes   int64  `yaml:"attach_limit_bytes"`
}

type ArtifactsConfig struct {
	// Backend is "local" or "s3".
	Backend string   `yaml:"backend"`
	Dir     string   `yaml:"dir"`
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket      string `yaml:"bucket"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	Prefix      string `yaml:"prefix"`
	PresignTTLs int    `yaml:"presign_ttl_seconds"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Mashup.TickIntervalMs) * time.Millisecond
}

func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Mashup.JobTimeoutMs) * time.Millisecond
}

func (c *Config) MailTimeout() time.Duration {
	return time.Duration(c.Mail.TimeoutMs) * time.Millisecond
}

func (c *Config) PresignTTL() time.Duration {
	return time.Duration(c.Artifacts.S3.PresignTTLs) * time.Second
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               8700,
			MetricsPort:        8701,
			MaxUploadBytes:     10 << 20,
			RateLimitPerMinute: 120,
			RateLimitBurst:     20,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "topsis.db",
		},
		Mail: MailConfig{
			Port:        465,
			ImplicitTLS: true,
			TimeoutMs:   30000,
		},
		Mashup: MashupConfig{
			YtDlpBinary:        "yt-dlp",
			FfmpegBinary:       "ffmpeg",
			FfprobeBinary:      "ffprobe",
			WorkDir:            "mashup-work",
			SearchMultiplier:   3,
			MaxVideos:          50,
			MaxDurationSeconds: 60,
			TickIntervalMs:     5000,
			JobTimeoutMs:       1800000,
			AttachLimitBytes:   20 << 20,
		},
		Artifacts: ArtifactsConfig{
			Backend: "local",
			Dir:     "artifacts",
			S3: S3Config{
				Region:      "us-east-1",
				Prefix:      "mashups/",
				PresignTTLs: 86400,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("database url required for postgres driver")
	}
	switch c.Artifacts.Backend {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown artifacts backend %q", c.Artifacts.Backend)
	}
	if c.Artifacts.Backend == "s3" && c.Artifacts.S3.Bucket == "" {
		return fmt.Errorf("s3 bucket required for s3 artifacts backend")
	}
	if c.Mashup.SearchMultiplier < 1 {
		return fmt.Errorf("mashup search_multiplier must be at least 1")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TOPSIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("TOPSIS_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("TOPSIS_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("TOPSIS_PUBLIC_URL"); v != "" {
		cfg.Server.PublicURL = v
	}
	if v := os.Getenv("TOPSIS_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("TOPSIS_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TOPSIS_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("TOPSIS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TOPSIS_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("TOPSIS_MAIL_HOST"); v != "" {
		cfg.Mail.Host = v
	}
	if v := os.Getenv("TOPSIS_MAIL_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Mail.Port = n
		}
	}
	if v := os.Getenv("TOPSIS_MAIL_USERNAME"); v != "" {
		cfg.Mail.Username = v
	}
	if v := os.Getenv("TOPSIS_MAIL_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("TOPSIS_MAIL_FROM"); v != "" {
		cfg.Mail.From = v
	}
	if v := os.Getenv("TOPSIS_MAIL_IMPLICIT_TLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Mail.ImplicitTLS = b
		}
	}
	if v := os.Getenv("TOPSIS_MASHUP_WORK_DIR"); v != "" {
		cfg.Mashup.WorkDir = v
	}
	if v := os.Getenv("TOPSIS_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Mashup.TickIntervalMs = n
		}
	}
	if v := os.Getenv("TOPSIS_ARTIFACTS_BACKEND"); v != "" {
		cfg.Artifacts.Backend = v
	}
	if v := os.Getenv("TOPSIS_S3_BUCKET"); v != "" {
		cfg.Artifacts.S3.Bucket = v
	}
	if v := os.Getenv("TOPSIS_S3_ENDPOINT"); v != "" {
		cfg.Artifacts.S3.Endpoint = v
	}
	if v := os.Getenv("TOPSIS_S3_ACCESS_KEY"); v != "" {
		cfg.Artifacts.S3.AccessKey = v
	}
	if v := os.Getenv("TOPSIS_S3_SECRET_KEY"); v != "" {
		cfg.Artifacts.S3.SecretKey = v
	}
	if v := os.Getenv("TOPSIS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TOPSIS_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}
