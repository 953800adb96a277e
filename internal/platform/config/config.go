package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"

	ReplayBackendMemory = "memory"
	ReplayBackendStore  = "store"
)

type Config struct {
	Addr                   string        `mapstructure:"APP_ADDR"`
	Environment            string        `mapstructure:"APP_ENV"`
	FrontendDir            string        `mapstructure:"FRONTEND_DIR"`
	PublicBaseURL          string        `mapstructure:"PUBLIC_BASE_URL"`
	CORSAllowedOrigins     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	StorageDriver          string        `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL            string        `mapstructure:"DATABASE_URL"`
	SQLitePath             string        `mapstructure:"SQLITE_PATH"`
	RunMigrations          bool          `mapstructure:"RUN_MIGRATIONS"`
	JWTSecret              string        `mapstructure:"JWT_SECRET"`
	SessionTTL             time.Duration `mapstructure:"SESSION_TTL"`
	SessionCookieName      string        `mapstructure:"SESSION_COOKIE_NAME"`
	CookieSecure           bool          `mapstructure:"COOKIE_SECURE"`
	SSOSecret              string        `mapstructure:"SSO_SECRET"`
	SSOTokenTTL            time.Duration `mapstructure:"SSO_TOKEN_TTL"`
	ReplayBackend          string        `mapstructure:"SSO_REPLAY_BACKEND"`
	ReplayPurgeInterval    time.Duration `mapstructure:"SSO_REPLAY_PURGE_INTERVAL"`
	ApprovalValidity       time.Duration `mapstructure:"APPROVAL_VALIDITY"`
	ApprovalGraceOverwrite bool          `mapstructure:"APPROVAL_GRACE_OVERWRITE"`
	ScheduleLockLeadDays   int           `mapstructure:"SCHEDULE_LOCK_LEAD_DAYS"`
	ScheduleLockTime       string        `mapstructure:"SCHEDULE_LOCK_TIME"`
	ScheduleWeeksAhead     int           `mapstructure:"SCHEDULE_WEEKS_AHEAD"`
	ScheduleTimezone       string        `mapstructure:"SCHEDULE_TIMEZONE"`
	ChatEnabled            bool          `mapstructure:"CHAT_ENABLED"`
	ChatWebhookURL         string        `mapstructure:"CHAT_WEBHOOK_URL"`
	ChatWebhookToken       string        `mapstructure:"CHAT_WEBHOOK_TOKEN"`
	ChatOutgoingToken      string        `mapstructure:"CHAT_OUTGOING_TOKEN"`
	ChatSkipTLSVerify      bool          `mapstructure:"CHAT_SKIP_TLS_VERIFY"`
	MaxBodyBytes           int64         `mapstructure:"MAX_BODY_BYTES"`
	RateLimitPerMinute     int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	MetricsEnabled         bool          `mapstructure:"METRICS_ENABLED"`
}

func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("FRONTEND_DIR", "frontend/dist")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:5173")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "data/emsys.db")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SESSION_COOKIE_NAME", "access_token_cookie")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("SSO_SECRET", "")
	v.SetDefault("SSO_TOKEN_TTL", "15m")
	v.SetDefault("SSO_REPLAY_BACKEND", ReplayBackendStore)
	v.SetDefault("SSO_REPLAY_PURGE_INTERVAL", "10m")
	v.SetDefault("APPROVAL_VALIDITY", "30m")
	v.SetDefault("APPROVAL_GRACE_OVERWRITE", true)
	v.SetDefault("SCHEDULE_LOCK_LEAD_DAYS", 3)
	v.SetDefault("SCHEDULE_LOCK_TIME", "18:00")
	v.SetDefault("SCHEDULE_WEEKS_AHEAD", 1)
	v.SetDefault("SCHEDULE_TIMEZONE", "Local")
	v.SetDefault("CHAT_ENABLED", false)
	v.SetDefault("CHAT_WEBHOOK_URL", "")
	v.SetDefault("CHAT_WEBHOOK_TOKEN", "")
	v.SetDefault("CHAT_OUTGOING_TOKEN", "")
	v.SetDefault("CHAT_SKIP_TLS_VERIFY", false)
	v.SetDefault("MAX_BODY_BYTES", 1048576)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("METRICS_ENABLED", true)
}

// LockTimeOfDay parses ScheduleLockTime ("HH:MM" or "HH:MM:SS") as an offset from midnight.
func (c Config) LockTimeOfDay() (time.Duration, error) {
	raw := strings.TrimSpace(c.ScheduleLockTime)
	for _, layout := range []string{"15:04:05", "15:04"} {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return time.Duration(parsed.Hour())*time.Hour +
				time.Duration(parsed.Minute())*time.Minute +
				time.Duration(parsed.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("SCHEDULE_LOCK_TIME %q must be HH:MM or HH:MM:SS", c.ScheduleLockTime)
}

func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.ScheduleTimezone)
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func (c Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StorageDriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORAGE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverPostgres, StorageDriverSQLite)
	}
	if c.ReplayBackend != ReplayBackendMemory && c.ReplayBackend != ReplayBackendStore {
		return fmt.Errorf("SSO_REPLAY_BACKEND must be %q or %q", ReplayBackendMemory, ReplayBackendStore)
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.SSOSecret) == "" {
			return fmt.Errorf("SSO_SECRET must be set in production")
		}
		if c.ChatEnabled && strings.TrimSpace(c.ChatOutgoingToken) == "" {
			return fmt.Errorf("CHAT_OUTGOING_TOKEN must be set in production when CHAT_ENABLED is true")
		}
		if c.ReplayBackend == ReplayBackendMemory {
			return fmt.Errorf("SSO_REPLAY_BACKEND=memory is single-instance only and not allowed in production")
		}
	}
	if c.SSOTokenTTL <= 0 {
		return fmt.Errorf("SSO_TOKEN_TTL must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.ApprovalValidity <= 0 {
		return fmt.Errorf("APPROVAL_VALIDITY must be positive")
	}
	if c.ScheduleLockLeadDays < 0 {
		return fmt.Errorf("SCHEDULE_LOCK_LEAD_DAYS must not be negative")
	}
	if c.ScheduleWeeksAhead < 0 {
		return fmt.Errorf("SCHEDULE_WEEKS_AHEAD must not be negative")
	}
	if _, err := c.LockTimeOfDay(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE: %w", err)
	}
	if c.ChatEnabled && strings.TrimSpace(c.ChatWebhookURL) == "" {
		return fmt.Errorf("CHAT_WEBHOOK_URL must be set when CHAT_ENABLED is true")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}
