package config

import (
	"fmt"
	"os"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "ENSIKLOPEDIA_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_stdio", typ: kBool, env: "ENSIKLOPEDIA_SERVER_MCP_STDIO",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPStdio = v.(bool) },
		extract: func(cfg Config) any { return cfg.Server.MCPStdio },
	},
	{
		key: "backend.base_url", typ: kString, env: "ENSIKLOPEDIA_BACKEND_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Backend.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Backend.BaseURL },
	},
	{
		key: "gemini.api_key", typ: kString, env: "ENSIKLOPEDIA_GEMINI_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "ENSIKLOPEDIA_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "image.base_url", typ: kString, env: "ENSIKLOPEDIA_IMAGE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Image.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Image.BaseURL },
	},
	{
		key: "image.width", typ: kInt, env: "ENSIKLOPEDIA_IMAGE_WIDTH",
		apply:   func(cfg *Config, v any) { cfg.Image.Width = v.(int) },
		extract: func(cfg Config) any { return cfg.Image.Width },
	},
	{
		key: "image.height", typ: kInt, env: "ENSIKLOPEDIA_IMAGE_HEIGHT",
		apply:   func(cfg *Config, v any) { cfg.Image.Height = v.(int) },
		extract: func(cfg Config) any { return cfg.Image.Height },
	},
	{
		key: "image.model", typ: kString, env: "ENSIKLOPEDIA_IMAGE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Image.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Image.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ENSIKLOPEDIA_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "ENSIKLOPEDIA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "history.reconcile_interval", typ: kDuration, env: "ENSIKLOPEDIA_HISTORY_RECONCILE_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.History.ReconcileInterval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.History.ReconcileInterval },
	},
	{
		key: "directory.cache_ttl", typ: kDuration, env: "ENSIKLOPEDIA_DIRECTORY_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Directory.CacheTTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Directory.CacheTTL },
	},
	{
		key: "search.rate_limit", typ: kFloat, env: "ENSIKLOPEDIA_SEARCH_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Search.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.Search.RateLimit },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		v, ok, err := b.Get(s.key, s.typ)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if ok {
			s.apply(cfg, v)
		}
	}
	return nil
}

// applyEnvOverrides applies ENSIKLOPEDIA_* variables. A value that does not
// parse is reported and skipped.
func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] ignoring %s=%q: %v\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
