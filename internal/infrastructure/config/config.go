package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Cookie      CookieConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Salla       PlatformConfig
	Zid         PlatformConfig
	Attribution AttributionConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// DashboardURL is where OAuth callbacks redirect with a status query param
	DashboardURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// IdempotencyTTL bounds how long webhook delivery keys stay cached
	IdempotencyTTL time.Duration
}

// JWTConfig holds JWT settings for merchant sessions and the OAuth state token
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
	// StateSecret signs the OAuth state token; falls back to Secret if empty
	StateSecret     string
	StateExpiration time.Duration
}

// CookieConfig holds cookie settings for the OAuth state echo cookie
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// PlatformConfig holds per-platform OAuth app and webhook settings
type PlatformConfig struct {
	ClientID      string
	ClientSecret  string
	AuthorizeURL  string
	TokenURL      string
	UserInfoURL   string
	APIBaseURL    string
	RedirectURL   string
	WebhookSecret string
	Timeout       time.Duration
}

// AttributionConfig holds click attribution and commission settings
type AttributionConfig struct {
	// Window is the fixed attribution window after a click
	Window time.Duration
	// ClickCooldown disqualifies repeat clicks from the same session
	ClickCooldown time.Duration
	// MaxConversionsPerClick caps convertedCount per tracking id
	MaxConversionsPerClick int
	// DefaultRate is the commission rate applied to attributed orders
	DefaultRate float64
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with SOUQLINK_ prefix (e.g., SOUQLINK_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SOUQLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:         v.GetString("app.name"),
			Env:          v.GetString("app.env"),
			Port:         v.GetString("app.port"),
			DashboardURL: v.GetString("app.dashboard_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:           v.GetString("redis.host"),
			Port:           v.GetInt("redis.port"),
			Password:       v.GetString("redis.password"),
			DB:             v.GetInt("redis.db"),
			IdempotencyTTL: v.GetDuration("redis.idempotency_ttl"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
			StateSecret:           v.GetString("jwt.state_secret"),
			StateExpiration:       v.GetDuration("jwt.state_expiration"),
		},
		Cookie: CookieConfig{
			Domain:   v.GetString("cookie.domain"),
			Path:     v.GetString("cookie.path"),
			Secure:   v.GetBool("cookie.secure"),
			SameSite: v.GetString("cookie.same_site"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Salla: loadPlatform(v, "salla"),
		Zid:   loadPlatform(v, "zid"),
		Attribution: AttributionConfig{
			Window:                 v.GetDuration("attribution.window"),
			ClickCooldown:          v.GetDuration("attribution.click_cooldown"),
			MaxConversionsPerClick: v.GetInt("attribution.max_conversions_per_click"),
			DefaultRate:            v.GetFloat64("attribution.default_rate"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPlatform(v *viper.Viper, key string) PlatformConfig {
	return PlatformConfig{
		ClientID:      v.GetString(key + ".client_id"),
		ClientSecret:  v.GetString(key + ".client_secret"),
		AuthorizeURL:  v.GetString(key + ".authorize_url"),
		TokenURL:      v.GetString(key + ".token_url"),
		UserInfoURL:   v.GetString(key + ".user_info_url"),
		APIBaseURL:    v.GetString(key + ".api_base_url"),
		RedirectURL:   v.GetString(key + ".redirect_url"),
		WebhookSecret: v.GetString(key + ".webhook_secret"),
		Timeout:       v.GetDuration(key + ".timeout"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "souqlink-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.DashboardURL == "" {
		cfg.App.DashboardURL = "http://localhost:3000/dashboard"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "souqlink"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.IdempotencyTTL == 0 {
		cfg.Redis.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "souqlink-backend"
	}
	if cfg.JWT.StateExpiration == 0 {
		cfg.JWT.StateExpiration = 10 * time.Minute
	}
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}
	if cfg.Cookie.SameSite == "" {
		cfg.Cookie.SameSite = "lax"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB; webhook payloads are small
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	applyPlatformDefaults(&cfg.Salla, sallaDefaults)
	applyPlatformDefaults(&cfg.Zid, zidDefaults)
	if cfg.Attribution.Window == 0 {
		cfg.Attribution.Window = 24 * time.Hour
	}
	if cfg.Attribution.ClickCooldown == 0 {
		cfg.Attribution.ClickCooldown = 30 * time.Minute
	}
	if cfg.Attribution.MaxConversionsPerClick == 0 {
		cfg.Attribution.MaxConversionsPerClick = 3
	}
	if cfg.Attribution.DefaultRate == 0 {
		cfg.Attribution.DefaultRate = 0.05
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

var sallaDefaults = PlatformConfig{
	AuthorizeURL: "https://accounts.salla.sa/oauth2/auth",
	TokenURL:     "https://accounts.salla.sa/oauth2/token",
	UserInfoURL:  "https://accounts.salla.sa/oauth2/user/info",
	APIBaseURL:   "https://api.salla.dev/admin/v2",
	Timeout:      30 * time.Second,
}

var zidDefaults = PlatformConfig{
	AuthorizeURL: "https://oauth.zid.sa/oauth/authorize",
	TokenURL:     "https://oauth.zid.sa/oauth/token",
	APIBaseURL:   "https://api.zid.sa/v1",
	Timeout:      30 * time.Second,
}

func applyPlatformDefaults(cfg *PlatformConfig, def PlatformConfig) {
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = def.AuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = def.TokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = def.UserInfoURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = def.APIBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
}

// validate checks configuration consistency
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Attribution.DefaultRate < 0 || c.Attribution.DefaultRate > 1 {
		return fmt.Errorf("attribution.default_rate must be between 0.0 and 1.0, got %f", c.Attribution.DefaultRate)
	}
	if c.Attribution.MaxConversionsPerClick < 1 {
		return fmt.Errorf("attribution.max_conversions_per_click must be at least 1")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if !c.Cookie.Secure {
			return fmt.Errorf("cookie.secure must be true in production (HTTPS required for the OAuth state cookie)")
		}
		if c.Salla.WebhookSecret == "" || c.Zid.WebhookSecret == "" {
			return fmt.Errorf("webhook secrets are required for both platforms in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// StateSigningSecret returns the secret used for OAuth state tokens
func (c *Config) StateSigningSecret() string {
	if c.JWT.StateSecret != "" {
		return c.JWT.StateSecret
	}
	return c.JWT.Secret
}

// Platform returns the config block for a platform key ("salla"/"zid")
func (c *Config) Platform(key string) (PlatformConfig, bool) {
	switch strings.ToLower(key) {
	case "salla":
		return c.Salla, true
	case "zid":
		return c.Zid, true
	default:
		return PlatformConfig{}, false
	}
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for Redis
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
