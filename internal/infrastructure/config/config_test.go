package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "souqlink-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
	assert.Equal(t, 24*time.Hour, cfg.Attribution.Window)
	assert.Equal(t, 30*time.Minute, cfg.Attribution.ClickCooldown)
	assert.Equal(t, 3, cfg.Attribution.MaxConversionsPerClick)
	assert.InDelta(t, 0.05, cfg.Attribution.DefaultRate, 1e-9)
	assert.Equal(t, "https://accounts.salla.sa/oauth2/token", cfg.Salla.TokenURL)
	assert.Equal(t, "https://oauth.zid.sa/oauth/token", cfg.Zid.TokenURL)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SOUQLINK_APP_PORT", "9090")
	t.Setenv("SOUQLINK_DATABASE_PASSWORD", "s3cret")
	t.Setenv("SOUQLINK_SALLA_WEBHOOK_SECRET", "whs")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "whs", cfg.Salla.WebhookSecret)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults pass", func(t *testing.T) {
		assert.NoError(t, valid().validate())
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"idle conns above open conns",
			func(c *Config) { c.Database.MaxIdleConns = 100 },
			"max_idle_conns",
		},
		{
			"rate above one",
			func(c *Config) { c.Attribution.DefaultRate = 1.5 },
			"default_rate",
		},
		{
			"conversion cap below one",
			func(c *Config) { c.Attribution.MaxConversionsPerClick = 0 },
			"max_conversions_per_click",
		},
		{
			"production requires jwt secret",
			func(c *Config) { c.App.Env = "production" },
			"jwt.secret",
		},
		{
			"production rejects short jwt secret",
			func(c *Config) {
				c.App.Env = "production"
				c.JWT.Secret = "short"
			},
			"32 characters",
		},
		{
			"production rejects wildcard cors",
			func(c *Config) {
				c.App.Env = "production"
				c.JWT.Secret = "0123456789abcdef0123456789abcdef"
				c.Database.Password = "pw"
				c.Database.SSLMode = "require"
				c.Cookie.Secure = true
				c.Salla.WebhookSecret = "a"
				c.Zid.WebhookSecret = "b"
				c.HTTP.CORSAllowOrigins = []string{"*"}
			},
			"cors_allow_origins",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "souq",
		Password: "p@ss/word",
		DBName:   "souqlink",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// special characters survive escaping
	assert.Contains(t, dsn, "p%40ss%2Fword")
}

func TestStateSigningSecret(t *testing.T) {
	cfg := &Config{JWT: JWTConfig{Secret: "base"}}
	assert.Equal(t, "base", cfg.StateSigningSecret())

	cfg.JWT.StateSecret = "dedicated"
	assert.Equal(t, "dedicated", cfg.StateSigningSecret())
}
