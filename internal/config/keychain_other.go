//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "ensiklopedia", "secrets.json")
}

func keychainGet(service, account string) ([]byte, error) {
	data, err := os.ReadFile(secretsFilePath())
	if os.IsNotExist(err) {
		return nil, errSecretNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keychain not available: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("account %q in service %q: %w", account, service, errSecretNotFound)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	return updateSecrets(func(secrets map[string]map[string]string) {
		if secrets[service] == nil {
			secrets[service] = make(map[string]string)
		}
		secrets[service][account] = value
	})
}

func keychainDelete(service, account string) error {
	return updateSecrets(func(secrets map[string]map[string]string) {
		delete(secrets[service], account)
	})
}

// updateSecrets rewrites the whole secrets file; concurrent writers are
// last-write-wins.
func updateSecrets(mutate func(map[string]map[string]string)) error {
	p := secretsFilePath()

	var secrets map[string]map[string]string

	data, err := os.ReadFile(p)
	if err == nil {
		_ = json.Unmarshal(data, &secrets)
	}
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	mutate(secrets)

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, out, 0o600)
}
