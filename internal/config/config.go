// Package config resolves runtime configuration in priority order:
// defaults, then an optional YAML file, then COMPASS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/casanoova/compass/internal/services"
	"github.com/casanoova/compass/internal/utils"
)

// DevJWTSecret is the fallback signing secret; serve logs a warning when it is in use.
const DevJWTSecret = "compass-dev-secret"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Survey   SurveyConfig   `yaml:"survey"`
	Mail     MailConfig     `yaml:"mail"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	BaseURL         string        `yaml:"base_url"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrations_dir"`
}

type RedisConfig struct {
	URL        string        `yaml:"url"`
	Prefix     string        `yaml:"prefix"`
	CatalogTTL time.Duration `yaml:"catalog_ttl"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	Issuer       string        `yaml:"issuer"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	MagicLinkTTL time.Duration `yaml:"magic_link_ttl"`
	CronSecret   string        `yaml:"cron_secret"`
}

type SurveyConfig struct {
	ReleasePolicy string              `yaml:"release_policy"`
	Team          services.TeamPolicy `yaml:"team"`
	DefaultLocale string              `yaml:"default_locale"`
}

type MailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			BaseURL:         "http://localhost:3000",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "compass.db"},
		Redis:    RedisConfig{Prefix: "compass", CatalogTTL: 10 * time.Minute},
		Auth: AuthConfig{
			JWTSecret:    DevJWTSecret,
			Issuer:       "compass",
			SessionTTL:   7 * 24 * time.Hour,
			MagicLinkTTL: 15 * time.Minute,
		},
		Survey: SurveyConfig{
			ReleasePolicy: string(services.ReleaseLeaderImmediate),
			DefaultLocale: "en",
		},
		Mail: MailConfig{SMTPPort: 587, From: "survey@localhost"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path when it exists (an empty path skips the file), applies
// the environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = utils.SafeEnv("COMPASS_ADDR", cfg.Server.Addr)
	cfg.Server.BaseURL = utils.SafeEnv("COMPASS_BASE_URL", cfg.Server.BaseURL)
	cfg.Server.CORSOrigins = utils.SafeEnvList("COMPASS_CORS_ORIGINS", cfg.Server.CORSOrigins)
	cfg.Server.ShutdownTimeout = utils.SafeEnvDuration("COMPASS_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Database.Driver = utils.SafeEnv("COMPASS_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = utils.SafeEnv("COMPASS_DB_DSN", cfg.Database.DSN)
	cfg.Database.MigrationsDir = utils.SafeEnv("COMPASS_MIGRATIONS_DIR", cfg.Database.MigrationsDir)

	cfg.Redis.URL = utils.SafeEnv("COMPASS_REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Prefix = utils.SafeEnv("COMPASS_REDIS_PREFIX", cfg.Redis.Prefix)
	cfg.Redis.CatalogTTL = utils.SafeEnvDuration("COMPASS_CATALOG_TTL", cfg.Redis.CatalogTTL)

	cfg.Auth.JWTSecret = utils.SafeEnv("COMPASS_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = utils.SafeEnv("COMPASS_JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.SessionTTL = utils.SafeEnvDuration("COMPASS_SESSION_TTL", cfg.Auth.SessionTTL)
	cfg.Auth.MagicLinkTTL = utils.SafeEnvDuration("COMPASS_MAGIC_LINK_TTL", cfg.Auth.MagicLinkTTL)
	cfg.Auth.CronSecret = utils.SafeEnv("COMPASS_CRON_SECRET", cfg.Auth.CronSecret)

	cfg.Survey.ReleasePolicy = utils.SafeEnv("COMPASS_RELEASE_POLICY", cfg.Survey.ReleasePolicy)
	cfg.Survey.Team.MinMembers = utils.SafeEnvInt("COMPASS_TEAM_MIN_MEMBERS", cfg.Survey.Team.MinMembers)
	cfg.Survey.Team.MaxMembers = utils.SafeEnvInt("COMPASS_TEAM_MAX_MEMBERS", cfg.Survey.Team.MaxMembers)
	cfg.Survey.DefaultLocale = utils.SafeEnv("COMPASS_DEFAULT_LOCALE", cfg.Survey.DefaultLocale)

	cfg.Mail.SMTPHost = utils.SafeEnv("COMPASS_SMTP_HOST", cfg.Mail.SMTPHost)
	cfg.Mail.SMTPPort = utils.SafeEnvInt("COMPASS_SMTP_PORT", cfg.Mail.SMTPPort)
	cfg.Mail.Username = utils.SafeEnv("COMPASS_SMTP_USERNAME", cfg.Mail.Username)
	cfg.Mail.Password = utils.SafeEnv("COMPASS_SMTP_PASSWORD", cfg.Mail.Password)
	cfg.Mail.From = utils.SafeEnv("COMPASS_MAIL_FROM", cfg.Mail.From)

	cfg.Log.Level = utils.SafeEnv("COMPASS_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = utils.SafeEnv("COMPASS_LOG_FORMAT", cfg.Log.Format)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite3 or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if _, err := services.ParseReleasePolicy(c.Survey.ReleasePolicy); err != nil {
		errs = append(errs, fmt.Errorf("survey.release_policy: %w", err))
	}
	t := c.Survey.Team
	if t.MinMembers < 0 || t.MaxMembers < 0 {
		errs = append(errs, errors.New("survey.team bounds must not be negative"))
	}
	if t.MinMembers > 0 && t.MaxMembers > 0 && t.MinMembers > t.MaxMembers {
		errs = append(errs, errors.New("survey.team.min_members exceeds max_members"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ReleasePolicy returns the validated policy.
func (c Config) ReleasePolicy() services.ReleasePolicy {
	p, _ := services.ParseReleasePolicy(c.Survey.ReleasePolicy)
	return p
}

func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the process logger described by the log section.
func (c Config) NewLogger(w *os.File) *slog.Logger {
	lvl, _ := ParseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
