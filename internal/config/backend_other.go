//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "ensiklopedia-data"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "ensiklopedia")
}

func apiKeyHint() string {
	return " or " + secretsFilePath() + ` ({"ensiklopedia":{"gemini_api_key":"..."}})`
}

// jsonSettings keeps settings in $XDG_CONFIG_HOME/ensiklopedia/config.json
// as one flat object keyed by the dotted setting name:
//
//	{"server.port": 4100, "history.reconcile_interval": "5m0s"}
type jsonSettings struct {
	path   string
	values map[string]any
}

func newPlatformStore() settingsStore {
	s := &jsonSettings{path: configFilePath(), values: make(map[string]any)}
	s.read()
	return s
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "ensiklopedia", "config.json")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "ensiklopedia", "config.json")
}

// read loads the file; a missing or broken file leaves every setting at
// its default.
func (s *jsonSettings) read() {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return
	}
	if err == nil {
		err = json.Unmarshal(data, &s.values)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] ignoring config file %s: %v\n", s.path, err)
	}
}

func (s *jsonSettings) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *jsonSettings) Lookup(key string) (string, bool, error) {
	v, ok := s.values[key]
	if !ok || v == nil {
		return "", false, nil
	}
	raw, err := storedText(v)
	if err != nil {
		return "", true, fmt.Errorf("%s in %s: %w", key, s.path, err)
	}
	return raw, true, nil
}

func (s *jsonSettings) Store(key string, val any) error {
	// Durations are kept human-readable rather than as nanosecond counts.
	if d, ok := val.(time.Duration); ok {
		val = d.String()
	}
	s.values[key] = val
	return s.write()
}

func (s *jsonSettings) Remove(key string) error {
	delete(s.values, key)
	return s.write()
}
