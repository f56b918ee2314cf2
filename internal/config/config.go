package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Gemini    GeminiConfig
	Image     ImageConfig
	Storage   StorageConfig
	Log       LogConfig
	History   HistoryConfig
	Directory DirectoryConfig
	Search    SearchConfig
}

type ServerConfig struct {
	Port int
	// MCPStdio serves the MCP tools on stdin/stdout alongside the HTTP API.
	MCPStdio bool
}

// BackendConfig points at the remote REST backend that owns accounts,
// history metadata and directory content.
type BackendConfig struct {
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type ImageConfig struct {
	BaseURL string
	Width   int
	Height  int
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type HistoryConfig struct {
	// ReconcileInterval is how often orphaned cached answers are pruned.
	ReconcileInterval time.Duration
}

type DirectoryConfig struct {
	CacheTTL time.Duration
}

type SearchConfig struct {
	// RateLimit optionally throttles search starts per second on top of the
	// one-at-a-time guard. Zero disables it.
	RateLimit float64
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     4100,
			MCPStdio: true,
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000/api",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Image: ImageConfig{
			BaseURL: "https://image.pollinations.ai",
			Width:   1024,
			Height:  576,
			Model:   "turbo",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		History: HistoryConfig{
			ReconcileInterval: 5 * time.Minute,
		},
		Directory: DirectoryConfig{
			CacheTTL: time.Minute,
		},
		Search: SearchConfig{
			RateLimit: 0,
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.ensiklopedia.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/ensiklopedia/config.json and secrets live in a 0600
// secrets.json under $XDG_DATA_HOME/ensiklopedia.
//
// Environment variables (ENSIKLOPEDIA_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newConfigBackend(newPlatformStore()), NewKeychain())
}

// keychain abstracts secret storage for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Gemini.APIKey == "" {
		if key, err := kc.Get(keychainService, accountGeminiKey); err == nil && key != "" {
			cfg.Gemini.APIKey = key
		}
	}

	return cfg, nil
}

// RequireGeminiKey reports the missing API key the server cannot start without.
func (c Config) RequireGeminiKey() error {
	if c.Gemini.APIKey != "" {
		return nil
	}
	return fmt.Errorf("missing required config: Gemini API key. "+
		"Set it via environment variable ENSIKLOPEDIA_GEMINI_API_KEY%s", apiKeyHint())
}
