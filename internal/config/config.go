// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Session   SessionConfig   `koanf:"session"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Billing   BillingConfig   `koanf:"billing"`
	Plans     PlansConfig     `koanf:"plans"`
	OAuth     OAuthConfig     `koanf:"oauth"`
	OTP       OTPConfig       `koanf:"otp"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	BaseURL     string `koanf:"base_url"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type SessionConfig struct {
	AccessCookie  string `koanf:"access_cookie"`
	RefreshCookie string `koanf:"refresh_cookie"`
	Domain        string `koanf:"domain"`
	Secure        bool   `koanf:"secure"`
}

// RateLimitConfig holds the global API limit and the tighter bucket
// applied to the authentication endpoints.
type RateLimitConfig struct {
	Backend      string        `koanf:"backend"`
	Requests     int           `koanf:"requests"`
	Window       time.Duration `koanf:"window"`
	AuthRequests int           `koanf:"auth_requests"`
	AuthWindow   time.Duration `koanf:"auth_window"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// BillingConfig configures the payment provider. Prices maps
// plan -> interval -> provider price id.
type BillingConfig struct {
	SecretKey     string                       `koanf:"secret_key"`
	WebhookSecret string                       `koanf:"webhook_secret"`
	SuccessURL    string                       `koanf:"success_url"`
	CancelURL     string                       `koanf:"cancel_url"`
	Prices        map[string]map[string]string `koanf:"prices"`
}

func (b BillingConfig) Enabled() bool {
	return b.SecretKey != ""
}

type PlansConfig struct {
	Source   string              `koanf:"source"`
	Features map[string][]string `koanf:"features"`
}

type OAuthConfig struct {
	Provider     string   `koanf:"provider"`
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	AuthURL      string   `koanf:"auth_url"`
	TokenURL     string   `koanf:"token_url"`
	UserInfoURL  string   `koanf:"user_info_url"`
	RedirectURL  string   `koanf:"redirect_url"`
	Scopes       []string `koanf:"scopes"`
}

func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

type OTPConfig struct {
	TTL         time.Duration `koanf:"ttl"`
	Length      int           `koanf:"length"`
	MaxAttempts int           `koanf:"max_attempts"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Ledger API",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.base_url":    "http://localhost:3000",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "720h",
		"jwt.issuer":               "ledger-api",
		"jwt.audience":             "ledger-web",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"session.access_cookie":  "session",
		"session.refresh_cookie": "session_refresh",
		"session.secure":         false,

		"rate_limit.backend":       "redis",
		"rate_limit.requests":      100,
		"rate_limit.window":        "1m",
		"rate_limit.auth_requests": 5,
		"rate_limit.auth_window":   "1m",

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "ledger-api",

		"billing.success_url": "http://localhost:3000/settings/billing?checkout=success",
		"billing.cancel_url":  "http://localhost:3000/settings/billing?checkout=canceled",

		"plans.source": "database",
		"plans.features": map[string]any{
			"free":       []string{"customers", "transactions", "dashboard"},
			"basic":      []string{"customers", "transactions", "dashboard", "export"},
			"pro":        []string{"customers", "transactions", "dashboard", "export", "custom_fields"},
			"enterprise": []string{"customers", "transactions", "dashboard", "export", "custom_fields", "api_access"},
		},

		"oauth.provider":      "google",
		"oauth.auth_url":      "https://accounts.google.com/o/oauth2/auth",
		"oauth.token_url":     "https://oauth2.googleapis.com/token",
		"oauth.user_info_url": "https://openidconnect.googleapis.com/v1/userinfo",
		"oauth.scopes":        []string{"openid", "email", "profile"},

		"otp.ttl":          "10m",
		"otp.length":       6,
		"otp.max_attempts": 5,
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                    "database.url",
	"DATABASE_AUTO_MIGRATE":           "database.auto_migrate",
	"REDIS_URL":                       "redis.url",
	"ENVIRONMENT":                     "app.environment",
	"APP_BASE_URL":                    "app.base_url",
	"HOST":                            "server.host",
	"PORT":                            "server.port",
	"LOG_LEVEL":                       "log.level",
	"LOG_FORMAT":                      "log.format",
	"JWT_PRIVATE_KEY_PATH":            "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":             "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":         "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":        "jwt.refresh_token_expire",
	"JWT_ISSUER":                      "jwt.issuer",
	"JWT_AUDIENCE":                    "jwt.audience",
	"SESSION_COOKIE_DOMAIN":           "session.domain",
	"SESSION_COOKIE_SECURE":           "session.secure",
	"RATE_LIMIT_BACKEND":              "rate_limit.backend",
	"RATE_LIMIT_REQUESTS":             "rate_limit.requests",
	"RATE_LIMIT_WINDOW":               "rate_limit.window",
	"RATE_LIMIT_AUTH_REQUESTS":        "rate_limit.auth_requests",
	"RATE_LIMIT_AUTH_WINDOW":          "rate_limit.auth_window",
	"OTEL_ENDPOINT":                   "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT":     "otel.endpoint",
	"OTEL_SERVICE_NAME":               "otel.service_name",
	"OTEL_ENABLED":                    "otel.enabled",
	"OTEL_INSECURE":                   "otel.insecure",
	"OTEL_SAMPLE_RATE":                "otel.sample_rate",
	"STRIPE_SECRET_KEY":               "billing.secret_key",
	"STRIPE_WEBHOOK_SECRET":           "billing.webhook_secret",
	"STRIPE_SUCCESS_URL":              "billing.success_url",
	"STRIPE_CANCEL_URL":               "billing.cancel_url",
	"STRIPE_PRICE_PRO_MONTHLY":        "billing.prices.pro.monthly",
	"STRIPE_PRICE_PRO_YEARLY":         "billing.prices.pro.yearly",
	"STRIPE_PRICE_ENTERPRISE_MONTHLY": "billing.prices.enterprise.monthly",
	"STRIPE_PRICE_ENTERPRISE_YEARLY":  "billing.prices.enterprise.yearly",
	"PLANS_SOURCE":                    "plans.source",
	"OAUTH_CLIENT_ID":                 "oauth.client_id",
	"OAUTH_CLIENT_SECRET":             "oauth.client_secret",
	"OAUTH_REDIRECT_URL":              "oauth.redirect_url",
	"OTP_TTL":                         "otp.ttl",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if !c.Session.Secure {
			return fmt.Errorf("SESSION_COOKIE_SECURE must be true in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	switch c.RateLimit.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf(
			"rate_limit.backend must be redis or memory, got %q",
			c.RateLimit.Backend,
		)
	}

	if c.RateLimit.Window <= 0 || c.RateLimit.AuthWindow <= 0 {
		return fmt.Errorf("rate_limit windows must be positive")
	}

	switch c.Plans.Source {
	case "database", "config":
	default:
		return fmt.Errorf(
			"plans.source must be database or config, got %q",
			c.Plans.Source,
		)
	}

	for plan, intervals := range c.Billing.Prices {
		for interval, priceID := range intervals {
			if strings.TrimSpace(priceID) == "" {
				return fmt.Errorf(
					"billing.prices.%s.%s is empty",
					plan,
					interval,
				)
			}
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
