package storage

import (
	"crypto/cipher"
	"fmt"
)

// Supported backend drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config selects and configures a KV backend.
type Config struct {
	// Driver is "file" (default) or "sqlite".
	Driver string `yaml:"driver"`
	// Path is the file or database location.
	Path string `yaml:"path"`
	// Passphrase, when set, seals file-store values at rest.
	Passphrase string `yaml:"passphrase"`
}

// Open returns the backend described by cfg.
func Open(cfg Config) (KV, error) {
	switch cfg.Driver {
	case DriverFile, "":
		path := cfg.Path
		if path == "" {
			path = "storage.json"
		}
		var aead cipher.AEAD
		if cfg.Passphrase != "" {
			a, err := NewAEADFromPassphrase([]byte(cfg.Passphrase))
			if err != nil {
				return nil, err
			}
			aead = a
		}
		fs, err := NewFileStore(path, aead)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = "storage.db"
		}
		ss, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return ss, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
