// Package keystore looks up backend API keys by provider id.
//
// Keys come from the environment (ANSWER_ERASER_<PROVIDER>_API_KEY) or from
// a YAML file mapping provider ids to keys. The file must not be readable by
// group or others. Key material is never logged and never part of an error
// message.
package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrKeyNotFound is returned when no key is stored for a provider.
var ErrKeyNotFound = errors.New("api key not found")

// Store returns the API key for a provider id such as "claude" or "poe".
type Store interface {
	Key(provider string) (string, error)
}

// EnvVar is the environment variable holding provider's key.
func EnvVar(provider string) string {
	return "ANSWER_ERASER_" + strings.ToUpper(provider) + "_API_KEY"
}

// EnvStore reads keys from environment variables named by EnvVar.
type EnvStore struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// NewEnvStore returns an EnvStore over the process environment.
func NewEnvStore() *EnvStore {
	return &EnvStore{Lookup: os.LookupEnv}
}

// Key implements Store.
func (s *EnvStore) Key(provider string) (string, error) {
	lookup := s.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(EnvVar(provider))
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrKeyNotFound, EnvVar(provider))
	}
	return strings.TrimSpace(v), nil
}

// FileStore keeps keys in a YAML file of provider: key pairs.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore backed by path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is keys.yaml in the user's answer-eraser config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "answer-eraser", "keys.yaml"), nil
}

// Path returns the file location.
func (s *FileStore) Path() string { return s.path }

// Key implements Store.
func (s *FileStore) Key(provider string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.read()
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(keys[provider])
	if key == "" {
		return "", fmt.Errorf("%w: no %s entry in %s", ErrKeyNotFound, provider, s.path)
	}
	return key, nil
}

// Has reports whether a non-empty key is stored for provider.
func (s *FileStore) Has(provider string) bool {
	_, err := s.Key(provider)
	return err == nil
}

// Save stores key for provider, creating the file with mode 0600 if needed.
func (s *FileStore) Save(provider, key string) error {
	if strings.TrimSpace(provider) == "" {
		return errors.New("provider is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("refusing to save an empty key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.read()
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return err
	}
	if keys == nil {
		keys = make(map[string]string)
	}
	keys[provider] = key
	return s.write(keys)
}

// Delete removes provider's key. Deleting a missing key is not an error.
func (s *FileStore) Delete(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.read()
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := keys[provider]; !ok {
		return nil
	}
	delete(keys, provider)
	return s.write(keys)
}

// read loads the key map. A missing file yields ErrKeyNotFound.
func (s *FileStore) read() (map[string]string, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrKeyNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat key file: %w", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("key file %s is accessible by other users (mode %04o); run chmod 600", s.path, info.Mode().Perm())
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	keys := make(map[string]string)
	if err := yaml.Unmarshal(data, &keys); err != nil {
		// The decoder error may quote file content.
		return nil, fmt.Errorf("key file %s is not a provider: key YAML map", s.path)
	}
	return keys, nil
}

func (s *FileStore) write(keys map[string]string) error {
	data, err := yaml.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to encode keys: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".keys-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp key file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict key file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace key file: %w", err)
	}
	return nil
}

// Chain tries each store in order and returns the first key found.
type Chain []Store

// Key implements Store. Errors other than ErrKeyNotFound stop the search.
func (c Chain) Key(provider string) (string, error) {
	for _, s := range c {
		key, err := s.Key(provider)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrKeyNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w for provider %s", ErrKeyNotFound, provider)
}
