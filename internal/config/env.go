package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"natours/internal/validation"

	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	ConfigPathEnvVar = "CONFIG_PATH"
)

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

type Env struct {
	App       AppConfig       `koanf:"app"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Email     EmailConfig     `koanf:"email"`
	Stripe    StripeConfig    `koanf:"stripe"`
	Redis     RedisConfig     `koanf:"redis"`
	Log       LogConfig       `koanf:"log"`
}

type AppConfig struct {
	Env       string `koanf:"env" validate:"oneof=development production"`
	Addr      string `koanf:"addr" validate:"required"`
	GinMode   string `koanf:"gin_mode"`
	PublicDir string `koanf:"public_dir" validate:"required"`
	// PublicURL overrides the scheme+host derived from requests in emails and payment redirects.
	PublicURL string `koanf:"public_url"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
}

type AuthConfig struct {
	JWTSecret         string        `koanf:"jwt_secret" validate:"required,min=32"`
	JWTExpiresIn      time.Duration `koanf:"jwt_expires_in" validate:"required"`
	CookieExpiresDays int           `koanf:"cookie_expires_days" validate:"gte=1"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests" validate:"gte=1"`
	Window   time.Duration `koanf:"window" validate:"required"`
}

type CORSConfig struct {
	AllowedOrigins string `koanf:"allowed_origins"`
}

// Origins splits the comma separated allow-list; empty means any origin.
func (c CORSConfig) Origins() []string {
	out := []string{}
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			out = append(out, o)
		}
	}
	return out
}

type EmailConfig struct {
	From         string `koanf:"from" validate:"required"`
	ResendAPIKey string `koanf:"resend_api_key"`
}

type StripeConfig struct {
	SecretKey     string `koanf:"secret_key"`
	WebhookSecret string `koanf:"webhook_secret"`
	Currency      string `koanf:"currency" validate:"required"`
}

type RedisConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func (e Env) IsProduction() bool { return e.App.Env == EnvProduction }

func defaultEnv() Env {
	return Env{
		App: AppConfig{
			Env:       EnvDevelopment,
			Addr:      ":8080",
			PublicDir: "public",
		},
		Database: DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            3306,
			User:            "root",
			Name:            "natours",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 10 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			MigrateOnStart:  true,
		},
		Auth: AuthConfig{
			JWTExpiresIn:      90 * 24 * time.Hour,
			CookieExpiresDays: 90,
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   time.Hour,
		},
		Email: EmailConfig{
			From: "Natours <hello@natours.dev>",
		},
		Stripe: StripeConfig{
			Currency: "usd",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envMappings maps flat environment variable names onto config paths.
var envMappings = map[string]string{
	"app_env":               "app.env",
	"node_env":              "app.env",
	"app_addr":              "app.addr",
	"gin_mode":              "app.gin_mode",
	"public_dir":            "app.public_dir",
	"public_url":            "app.public_url",
	"db_host":               "database.host",
	"db_port":               "database.port",
	"db_user":               "database.user",
	"db_password":           "database.password",
	"db_name":               "database.name",
	"db_max_open_conns":     "database.max_open_conns",
	"db_max_idle_conns":     "database.max_idle_conns",
	"db_migrate_on_start":   "database.migrate_on_start",
	"jwt_secret":            "auth.jwt_secret",
	"jwt_expires_in":        "auth.jwt_expires_in",
	"jwt_cookie_expires_in": "auth.cookie_expires_days",
	"rate_limit_requests":   "rate_limit.requests",
	"rate_limit_window":     "rate_limit.window",
	"cors_allowed_origins":  "cors.allowed_origins",
	"email_from":            "email.from",
	"resend_api_key":        "email.resend_api_key",
	"stripe_secret_key":     "stripe.secret_key",
	"stripe_webhook_secret": "stripe.webhook_secret",
	"stripe_currency":       "stripe.currency",
	"redis_addr":            "redis.addr",
	"log_level":             "log.level",
	"log_format":            "log.format",
}

// envTransform returns "" for unrelated variables so koanf skips them.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// LoadEnv layers struct defaults, an optional YAML file and the environment.
func LoadEnv() (Env, error) {
	k := koanf.New(".")

	defaults := defaultEnv()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return Env{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Env{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return Env{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Env
	if err := k.Unmarshal("", &cfg); err != nil {
		return Env{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.App.GinMode = strings.TrimSpace(cfg.App.GinMode)

	if err := validation.Struct(cfg); err != nil {
		return Env{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); p != "" {
		return p
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
