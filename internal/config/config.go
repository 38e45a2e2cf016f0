package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Interval returns the time between backups.
func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}

type RemindersConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Timezone      string  `yaml:"timezone"`
	DailyHour     int     `yaml:"daily_hour"`
	DailyMinute   int     `yaml:"daily_minute"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	MaxRetries    int     `yaml:"max_retries"`
}

type Config struct {
	HTTP struct {
		Address           string  `yaml:"address"`
		ReadTimeoutSec    int     `yaml:"read_timeout_seconds"`
		WriteTimeoutSec   int     `yaml:"write_timeout_seconds"`
		UserRatePerSecond float64 `yaml:"user_rate_per_second"`
		UserBurst         int     `yaml:"user_burst"`
	} `yaml:"http"`

	Auth struct {
		APIKeys   []string `yaml:"api_keys"`
		JWTSecret string   `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Reminders RemindersConfig `yaml:"reminders"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Email struct {
		SendGridAPIKey string `yaml:"sendgrid_api_key"`
		FromEmail      string `yaml:"from_email"`
		FromName       string `yaml:"from_name"`
	} `yaml:"email"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	// .env is optional; values already in the environment take precedence.
	_ = godotenv.Load()

	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.UserRatePerSecond <= 0 {
		c.HTTP.UserRatePerSecond = 10
	}
	if c.HTTP.UserBurst <= 0 {
		c.HTTP.UserBurst = 20
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/medstock.db"
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Reminders.Timezone == "" {
		c.Reminders.Timezone = "UTC"
	}
	if c.Reminders.DailyHour == 0 && c.Reminders.DailyMinute == 0 {
		c.Reminders.DailyHour = 9
	}
	if c.Reminders.RatePerSecond <= 0 {
		c.Reminders.RatePerSecond = 5
	}
	if c.Reminders.Burst <= 0 {
		c.Reminders.Burst = 10
	}
	if c.Reminders.MaxRetries <= 0 {
		c.Reminders.MaxRetries = 3
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "medstock.events"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// CacheTTL returns how long cached reads stay valid. Zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.Address == "" || c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

// EmailEnabled reports whether SendGrid delivery is configured.
func (c *Config) EmailEnabled() bool {
	return c.Email.SendGridAPIKey != "" && c.Email.FromEmail != ""
}

// KafkaEnabled reports whether inventory events are forwarded to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
