package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	keychainService  = "ensiklopedia"
	accountGeminiKey = "gemini_api_key"
	accountAuthToken = "auth_token"
	accountAPIToken  = "api_token"
)

var errSecretNotFound = errors.New("secret not found")

// Keychain reads and writes secrets in the platform secret store.
type Keychain struct{}

// NewKeychain returns the platform keychain.
func NewKeychain() Keychain { return Keychain{} }

func (Keychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (Keychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

func (Keychain) Delete(service, account string) error {
	return keychainDelete(service, account)
}

// SecretStore is the read/write surface of a keychain.
type SecretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
	Delete(service, account string) error
}

// GetAPIToken returns the bearer token guarding the local API, generating
// and storing one on first use.
func GetAPIToken(kc SecretStore) (string, error) {
	tok, err := kc.Get(keychainService, accountAPIToken)
	if err == nil && tok != "" {
		return tok, nil
	}
	if err != nil && !errors.Is(err, errSecretNotFound) {
		return "", fmt.Errorf("reading API token: %w", err)
	}
	tok = uuid.NewString()
	if err := kc.Set(keychainService, accountAPIToken, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}

// SessionStore persists the backend session token in the keychain.
// The token is cached in memory after the first read.
type SessionStore struct {
	kc SecretStore

	mu     sync.Mutex
	loaded bool
	token  string
}

// NewSessionStore returns a SessionStore backed by kc.
func NewSessionStore(kc SecretStore) *SessionStore {
	return &SessionStore{kc: kc}
}

// Token returns the current session token, or "" when logged out.
func (s *SessionStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.token, nil
	}
	tok, err := s.kc.Get(keychainService, accountAuthToken)
	if err != nil && !errors.Is(err, errSecretNotFound) {
		return "", fmt.Errorf("reading session token: %w", err)
	}
	s.token, s.loaded = tok, true
	return s.token, nil
}

func (s *SessionStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kc.Set(keychainService, accountAuthToken, token); err != nil {
		return fmt.Errorf("storing session token: %w", err)
	}
	s.token, s.loaded = token, true
	return nil
}

func (s *SessionStore) DeleteToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.loaded = "", true
	if err := s.kc.Delete(keychainService, accountAuthToken); err != nil {
		return fmt.Errorf("removing session token: %w", err)
	}
	return nil
}
