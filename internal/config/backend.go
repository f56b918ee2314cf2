package config

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// settingsStore is where non-secret settings persist between runs: the
// `defaults` domain on macOS, a JSON file elsewhere. Values are written
// with their Go type (string, int, bool, float64, time.Duration) and read
// back as text.
type settingsStore interface {
	Lookup(key string) (raw string, ok bool, err error)
	Store(key string, val any) error
	Remove(key string) error
}

// ConfigBackend reads and writes settings with the types declared in the
// key table, so a bad stored value is reported against its key instead of
// silently turning into a default.
type ConfigBackend struct {
	store settingsStore
}

func newConfigBackend(s settingsStore) ConfigBackend {
	return ConfigBackend{store: s}
}

// Get returns the parsed value of key. ok is false when nothing is stored.
func (b ConfigBackend) Get(key string, typ keyType) (val any, ok bool, err error) {
	raw, ok, err := b.store.Lookup(key)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := parseValue(typ, raw)
	if err != nil {
		return nil, true, fmt.Errorf("%s=%q: %w", key, raw, err)
	}
	return v, true, nil
}

// Set validates raw against typ and stores the parsed value.
func (b ConfigBackend) Set(key string, typ keyType, raw string) error {
	v, err := parseValue(typ, raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return b.store.Store(key, v)
}

func (b ConfigBackend) Delete(key string) error {
	return b.store.Remove(key)
}

// parseValue is shared by stored settings, environment overrides and
// `config set`, so all three accept the same spellings.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return nil, fmt.Errorf("must be a finite number >= 0")
		}
		return f, nil
	case kDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("must be positive")
		}
		return d, nil
	default:
		return raw, nil
	}
}

// storedText renders a stored value the way Lookup hands it back.
func storedText(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case time.Duration:
		return val.String(), nil
	default:
		return "", fmt.Errorf("unsupported setting type %T", v)
	}
}
