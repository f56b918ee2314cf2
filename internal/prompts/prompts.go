// Package prompts manages the per-language system instructions sent with
// every completion. Built-in defaults can be overridden locally.
package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/ensiklopedia/internal/i18n"
	"github.com/kalambet/ensiklopedia/internal/storage"
)

var (
	//go:embed defaults/id.md
	defaultID string
	//go:embed defaults/ar.md
	defaultAR string
	//go:embed defaults/en.md
	defaultEN string
)

const keyPrefix = "prompt."

// Set holds one system prompt per language.
type Set struct {
	ID string `json:"id"`
	AR string `json:"ar"`
	EN string `json:"en"`
}

// Get returns the prompt for lang.
func (s Set) Get(lang i18n.Lang) string {
	switch lang {
	case i18n.AR:
		return s.AR
	case i18n.EN:
		return s.EN
	default:
		return s.ID
	}
}

func (s *Set) set(lang i18n.Lang, v string) {
	switch lang {
	case i18n.AR:
		s.AR = v
	case i18n.EN:
		s.EN = v
	default:
		s.ID = v
	}
}

// Defaults returns the built-in prompts.
func Defaults() Set {
	return Set{ID: defaultID, AR: defaultAR, EN: defaultEN}
}

// Store persists overrides. Implemented by storage.Store.
type Store interface {
	GetPreference(key string) (string, error)
	SetPreference(key, value string) error
	DeletePreference(key string) error
}

// Manager resolves the effective prompts.
type Manager struct {
	store Store
}

// NewManager creates a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// SystemPrompts returns the effective prompt for every language: the local
// override when one is set, the default otherwise.
func (m *Manager) SystemPrompts() (Set, error) {
	out := Defaults()
	for _, lang := range i18n.All {
		v, err := m.store.GetPreference(keyPrefix + string(lang))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return Set{}, fmt.Errorf("reading %s prompt: %w", lang, err)
		}
		if strings.TrimSpace(v) != "" {
			out.set(lang, v)
		}
	}
	return out, nil
}

// Save stores all three prompts. A blank prompt removes that language's
// override so the default applies again.
func (m *Manager) Save(s Set) error {
	for _, lang := range i18n.All {
		v := s.Get(lang)
		key := keyPrefix + string(lang)
		var err error
		if strings.TrimSpace(v) == "" {
			err = m.store.DeletePreference(key)
		} else {
			err = m.store.SetPreference(key, v)
		}
		if err != nil {
			return fmt.Errorf("saving %s prompt: %w", lang, err)
		}
	}
	return nil
}

// Reset removes every override.
func (m *Manager) Reset() error {
	for _, lang := range i18n.All {
		if err := m.store.DeletePreference(keyPrefix + string(lang)); err != nil {
			return fmt.Errorf("resetting %s prompt: %w", lang, err)
		}
	}
	return nil
}
