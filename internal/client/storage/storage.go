// Package storage persists client-side values, most importantly the
// access token, in a local key-value store.
package storage

import (
	"context"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by KV.Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// KV is a string key-value store. Writes are last-write-wins.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// FileStore keeps all values in a single JSON file. When an AEAD is
// configured the values are sealed at rest.
type FileStore struct {
	path   string
	aead   cipher.AEAD
	mu     sync.Mutex
	values map[string]string
}

type fileContents struct {
	Values map[string]string `json:"values"`
}

// NewFileStore opens the store at path, loading existing values.
// A missing file is an empty store. aead may be nil.
func NewFileStore(path string, aead cipher.AEAD) (*FileStore, error) {
	s := &FileStore{path: path, aead: aead}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.values = make(map[string]string)
			return nil
		}
		return fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	var fc fileContents
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return fmt.Errorf("decode store: %w", err)
	}
	s.values = fc.Values
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return nil
}

// save writes through a temp file so a crash never leaves a torn store.
func (s *FileStore) save() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	b, err := json.Marshal(fileContents{Values: s.values})
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

// Get returns the value for key or ErrNotFound.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	if s.aead == nil {
		return v, nil
	}
	return open(s.aead, v)
}

// Set stores value under key and flushes the file.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aead != nil {
		sealed, err := seal(s.aead, value)
		if err != nil {
			return err
		}
		value = sealed
	}

	prev, had := s.values[key]
	s.values[key] = value
	if err := s.save(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Delete removes key and flushes the file. A missing key is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := s.save(); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

// Close is a no-op; every Set is already flushed.
func (s *FileStore) Close() error { return nil }
