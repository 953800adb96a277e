package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/emsys")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 15*time.Minute, cfg.SSOTokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.ApprovalValidity)
	assert.True(t, cfg.ApprovalGraceOverwrite)
	assert.Equal(t, 3, cfg.ScheduleLockLeadDays)
	assert.Equal(t, "18:00", cfg.ScheduleLockTime)
	assert.Equal(t, 1, cfg.ScheduleWeeksAhead)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", StorageDriverSQLite)
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("SSO_TOKEN_TTL", "5m")
	t.Setenv("APPROVAL_GRACE_OVERWRITE", "false")
	t.Setenv("SCHEDULE_LOCK_TIME", "17:30:15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.SSOTokenTTL)
	assert.False(t, cfg.ApprovalGraceOverwrite)
	tod, err := cfg.LockTimeOfDay()
	require.NoError(t, err)
	assert.Equal(t, 17*time.Hour+30*time.Minute+15*time.Second, tod)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			StorageDriver:      StorageDriverPostgres,
			DatabaseURL:        "postgres://localhost/emsys",
			ReplayBackend:      ReplayBackendStore,
			SSOTokenTTL:        15 * time.Minute,
			SessionTTL:         30 * time.Minute,
			ApprovalValidity:   30 * time.Minute,
			ScheduleLockTime:   "18:00",
			ScheduleTimezone:   "UTC",
			MaxBodyBytes:       4096,
			RateLimitPerMinute: 60,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "mysql" }, wantErr: true},
		{name: "bad lock time", mutate: func(c *Config) { c.ScheduleLockTime = "6pm" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.ScheduleTimezone = "Mars/Olympus" }, wantErr: true},
		{name: "zero validity", mutate: func(c *Config) { c.ApprovalValidity = 0 }, wantErr: true},
		{name: "chat without url", mutate: func(c *Config) { c.ChatEnabled = true }, wantErr: true},
		{
			name: "production memory replay guard",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.JWTSecret = "s"
				c.SSOSecret = "s"
				c.ReplayBackend = ReplayBackendMemory
			},
			wantErr: true,
		},
		{
			name: "production without sso secret",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.JWTSecret = "s"
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Config{CORSAllowedOrigins: " http://a.test ,, http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}
