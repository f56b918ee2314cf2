//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultsDomain = "com.ensiklopedia.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ensiklopedia-data"
	}
	return filepath.Join(home, "Library", "Application Support", "ensiklopedia")
}

func apiKeyHint() string {
	return " or macOS Keychain (service: ensiklopedia, account: gemini_api_key)"
}

// userDefaults keeps settings in the com.ensiklopedia.app defaults domain,
// each value written with its native plist type.
type userDefaults struct {
	domain string
}

func newPlatformStore() settingsStore {
	return userDefaults{domain: defaultsDomain}
}

func (u userDefaults) Lookup(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", u.domain, key).CombinedOutput()
	raw := strings.TrimSpace(string(out))
	if err != nil {
		// `defaults read` exits 1 for a key that was never written.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s: %w (%s)", key, err, raw)
	}
	return raw, true, nil
}

func (u userDefaults) Store(key string, val any) error {
	var typeFlag, text string
	switch v := val.(type) {
	case int:
		typeFlag, text = "-int", strconv.Itoa(v)
	case bool:
		typeFlag, text = "-bool", strconv.FormatBool(v)
	case float64:
		typeFlag, text = "-float", strconv.FormatFloat(v, 'f', -1, 64)
	case time.Duration:
		typeFlag, text = "-string", v.String()
	case string:
		typeFlag, text = "-string", v
	default:
		return fmt.Errorf("unsupported setting type %T for %s", val, key)
	}
	if out, err := exec.Command("defaults", "write", u.domain, key, typeFlag, text).CombinedOutput(); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (u userDefaults) Remove(key string) error {
	out, err := exec.Command("defaults", "delete", u.domain, key).CombinedOutput()
	if err != nil {
		// Deleting a key that was never written is not an error for unset.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil
		}
		return fmt.Errorf("defaults delete %s: %w (%s)", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}
