// Package config loads the login client configuration from a YAML file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/atinyakov/gophlogin/internal/client/storage"
	"gopkg.in/yaml.v3"
)

// Config is the client configuration.
type Config struct {
	// ServerURL is the base URL of the authentication server.
	ServerURL string `yaml:"server_url"`
	// CAFile is an optional CA certificate trusted for TLS.
	CAFile string `yaml:"ca_file"`
	// Store selects the local token store.
	Store storage.Config `yaml:"store"`
	Log   struct {
		Level string `yaml:"level"`
		Env   string `yaml:"env"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.ServerURL = "https://localhost:8080"
	c.Store = storage.Config{Driver: storage.DriverFile, Path: "storage.json"}
	c.Log.Level = "warn"
	c.Log.Env = "dev"
	return c
}

// Load reads path over the defaults. A missing file is not an error.
// GOPHLOGIN_URL, GOPHLOGIN_STORE and GOPHLOGIN_STORE_PASSPHRASE override
// the file.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return c, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if v := os.Getenv("GOPHLOGIN_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("GOPHLOGIN_STORE"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("GOPHLOGIN_STORE_PASSPHRASE"); v != "" {
		c.Store.Passphrase = v
	}
	return c, nil
}
