package config // package config loads application configuration from the environment

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each leaf field maps to an
// environment variable; the yaml tags allow the same values to come from an
// optional file passed via CONFIG_PATH.
type Config struct {
	Env             string        `yaml:"env" env:"APP_ENV" env-default:"local"`
	Port            string        `yaml:"port" env:"APP_PORT" env-default:"8000"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"APP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`

	MySQL     MySQL           `yaml:"mysql"`
	JWT       JWT             `yaml:"jwt"`
	Redis     Redis           `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	RabbitMQ  RabbitMQ        `yaml:"rabbitmq"`
	Yandex    Yandex          `yaml:"yandex"`
}

// MySQL describes the credential store connection.
type MySQL struct {
	User            string        `yaml:"user" env:"DB_USER" env-required:"true"`
	Pass            string        `yaml:"pass" env:"DB_PASS"`
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            string        `yaml:"port" env:"DB_PORT" env-default:"3306"`
	Name            string        `yaml:"name" env:"DB_NAME" env-required:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
}

// JWT holds token signing settings. Access tokens are short lived; refresh
// tokens only authorize minting new access tokens.
type JWT struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	Issuer     string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"auth-service"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"ACCESS_TOKEN_TTL" env-default:"30m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"REFRESH_TOKEN_TTL" env-default:"336h"`
}

// RabbitMQ configures the broker used for cross-service user events.
// An empty URL disables publishing.
type RabbitMQ struct {
	URL string `yaml:"url" env:"RABBITMQ_URL"`
}

// Yandex configures the Yandex OAuth provider. An empty ClientID disables it.
type Yandex struct {
	ClientID     string        `yaml:"client_id" env:"YANDEX_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"YANDEX_CLIENT_SECRET"`
	RedirectURL  string        `yaml:"redirect_url" env:"YANDEX_REDIRECT_URL"`
	CodeTTL      time.Duration `yaml:"code_ttl" env:"OAUTH_CODE_TTL" env-default:"1m"`
}

// Enabled reports whether enough settings exist to talk to Yandex.
func (y Yandex) Enabled() bool { return y.ClientID != "" && y.ClientSecret != "" }

// Load reads a .env file when present, then either the YAML file at path
// (with environment overrides) or the environment alone. Missing required
// variables are reported in the returned error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= cfg.JWT.AccessTTL {
		return Config{}, fmt.Errorf("invalid token lifetimes: access=%s refresh=%s", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	return cfg, nil
}
