// Package config loads server configuration from defaults, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port   int    `mapstructure:"port"`
	DBPath string `mapstructure:"db_path"`
	// StaticDir, when set, is served at / for the web client.
	StaticDir string `mapstructure:"static_dir"`

	// SessionSecret signs session cookies; TokenKey derives the key that
	// seals provider tokens at rest.
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	TokenKey      string        `mapstructure:"token_key"`
	// SecureCookies marks session cookies Secure; enable behind TLS.
	SecureCookies bool `mapstructure:"secure_cookies"`

	Google Google `mapstructure:"google"`
	Redis  Redis  `mapstructure:"redis"`
	Sync   Sync   `mapstructure:"sync"`

	LogLevel string `mapstructure:"log_level"`
}

type Google struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	// RedirectURL is "postmessage" for the JavaScript sign-in button flow.
	RedirectURL string        `mapstructure:"redirect_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Redis is optional. With an empty Addr sessions are kept in memory.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Sync struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// envBindings maps config keys to the flat environment variable names used
// in deployment manifests.
var envBindings = map[string]string{
	"port":                 "PORT",
	"db_path":              "DB_PATH",
	"static_dir":           "STATIC_DIR",
	"secure_cookies":       "SECURE_COOKIES",
	"session_secret":       "SESSION_SECRET",
	"session_ttl":          "SESSION_TTL",
	"token_key":            "TOKEN_KEY",
	"google.client_id":     "GOOGLE_CLIENT_ID",
	"google.client_secret": "GOOGLE_CLIENT_SECRET",
	"google.redirect_url":  "GOOGLE_REDIRECT_URL",
	"google.timeout":       "PROVIDER_TIMEOUT",
	"redis.addr":           "REDIS_ADDR",
	"redis.password":       "REDIS_PASSWORD",
	"redis.db":             "REDIS_DB",
	"sync.workers":         "SYNC_WORKERS",
	"sync.queue_size":      "SYNC_QUEUE_SIZE",
	"sync.timeout":         "SYNC_TIMEOUT",
	"log_level":            "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "data/photohunt.db")
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("google.redirect_url", "postmessage")
	v.SetDefault("google.timeout", 10*time.Second)
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.queue_size", 64)
	v.SetDefault("sync.timeout", 2*time.Minute)
	v.SetDefault("log_level", "info")
}

// Load reads config/<name>.yaml when present and applies environment
// overrides. A missing file is not an error.
func Load(name string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %s: %w", name, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", env, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	return &c, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}
	if len(c.TokenKey) < 16 {
		errs = append(errs, errors.New("TOKEN_KEY must be at least 16 characters"))
	}
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required"))
	}
	if c.Sync.Workers < 1 {
		errs = append(errs, errors.New("sync.workers must be at least 1"))
	}
	return errors.Join(errs...)
}
