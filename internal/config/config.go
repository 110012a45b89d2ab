// Package config provides functionality for managing configuration options
// for the authentication server using command-line flags, a JSON config
// file, a .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Duration is a time.Duration that reads "15m"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}
	*d = Duration(n)
	return nil
}

// String and Set make Duration usable as a flag value.
func (d *Duration) String() string { return time.Duration(*d).String() }

func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the JSON config file.
	Config string `json:"-"`

	// EnvFile is the path to an optional .env file.
	EnvFile string `json:"-"`

	// JWTSecret signs access tokens.
	JWTSecret string `json:"jwt_secret"`

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL Duration `json:"token_ttl"`

	// SessionRetention is how long session rows are kept.
	SessionRetention Duration `json:"session_retention"`

	// LogLevel and LogEnv configure the logger.
	LogLevel string `json:"log_level"`
	LogEnv   string `json:"log_env"`

	// RedisAddr enables the Redis rate limiter when set.
	RedisAddr string `json:"redis_addr"`

	// LoginRateLimit is the number of login attempts allowed per client
	// and window. Zero disables limiting.
	LoginRateLimit  int      `json:"login_rate_limit"`
	LoginRateWindow Duration `json:"login_rate_window"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`
}

func defaults() *Options {
	return &Options{
		Port:             "localhost:8080",
		Config:           "config.json",
		EnvFile:          ".env",
		TokenTTL:         Duration(24 * time.Hour),
		SessionRetention: Duration(30 * 24 * time.Hour),
		LogLevel:         "info",
		LogEnv:           "dev",
		LoginRateLimit:   10,
		LoginRateWindow:  Duration(time.Minute),
	}
}

// Parse parses os.Args and the environment. It exits on invalid input.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return opts
}

// ParseArgs builds Options with precedence: defaults < config file <
// flags < .env < environment.
func ParseArgs(args []string) (*Options, error) {
	options := defaults()

	fset := flag.NewFlagSet("server", flag.ContinueOnError)
	fset.StringVar(&options.Port, "a", options.Port, "run on ip:port server")
	fset.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fset.StringVar(&options.Config, "config", options.Config, "path to config file")
	fset.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	fset.StringVar(&options.EnvFile, "env", options.EnvFile, "path to .env file")
	fset.StringVar(&options.JWTSecret, "s", "", "secret used to sign access tokens")
	fset.StringVar(&options.LogLevel, "l", options.LogLevel, "log level")
	fset.StringVar(&options.RedisAddr, "redis", "", "redis address for rate limiting")
	fset.IntVar(&options.LoginRateLimit, "rate-limit", options.LoginRateLimit, "login attempts per client and window, 0 disables")
	fset.Var(&options.LoginRateWindow, "rate-window", "login rate limit window")
	fset.Var(&options.TokenTTL, "token-ttl", "access token lifetime")
	fset.StringVar(&options.TLSCert, "tls-cert", "", "path to server TLS certificate")
	fset.StringVar(&options.TLSKey, "tls-key", "", "path to server TLS key")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
			// explicit flags win over the file
			_ = fset.Parse(args)
		}
	}

	if options.EnvFile != "" {
		// values already present in the environment are kept
		if err := godotenv.Load(options.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error while loading env file: %w", err)
		}
	}

	if err := applyEnv(options); err != nil {
		return nil, err
	}
	if err := options.validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func (o *Options) validate() error {
	switch {
	case o.JWTSecret == "":
		return errors.New("jwt secret is required (-s or JWT_SECRET)")
	case o.TokenTTL <= 0:
		return fmt.Errorf("token ttl must be positive, got %s", o.TokenTTL.String())
	case o.LoginRateLimit < 0:
		return fmt.Errorf("login rate limit must not be negative, got %d", o.LoginRateLimit)
	case o.LoginRateLimit > 0 && o.LoginRateWindow <= 0:
		return fmt.Errorf("login rate window must be positive, got %s", o.LoginRateWindow.String())
	}
	return nil
}

func applyEnv(o *Options) error {
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		o.Port = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		o.DatabaseDSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		o.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		o.LogLevel = v
	}
	if v := os.Getenv("LOG_ENV"); v != "" {
		o.LogEnv = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		o.RedisAddr = v
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOGIN_RATE_LIMIT: %w", err)
		}
		o.LoginRateLimit = n
	}
	if v := os.Getenv("LOGIN_RATE_WINDOW"); v != "" {
		if err := o.LoginRateWindow.Set(v); err != nil {
			return fmt.Errorf("LOGIN_RATE_WINDOW: %w", err)
		}
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if err := o.TokenTTL.Set(v); err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
	}
	return nil
}
