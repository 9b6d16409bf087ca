// Package config loads engine configuration: the registry of assistant
// endpoints, the history endpoint, and ambient settings. Files are
// JSONC with {env:VAR} interpolation; environment variables take
// precedence over files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tidwall/jsonc"
)

// EndpointConfig describes one logical assistant backend.
type EndpointConfig struct {
	URL string `json:"url"`
}

// Config is the resolved engine configuration.
type Config struct {
	// DefaultEndpoint names the assistant used when none is selected.
	DefaultEndpoint string `json:"defaultEndpoint,omitempty"`
	// Endpoints maps logical assistant names (e.g. "crypto",
	// "markets") to their streaming backends. The engine never
	// branches on the name; it only looks the URL up here.
	Endpoints map[string]EndpointConfig `json:"endpoints,omitempty"`
	// HistoryURL is the base URL of the persisted-transcript endpoint.
	HistoryURL string `json:"historyUrl,omitempty"`

	UserID     string `json:"userId,omitempty"`
	LogLevel   string `json:"logLevel,omitempty"`
	PrettyLogs bool   `json:"prettyLogs,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultEndpoint: "crypto",
		Endpoints: map[string]EndpointConfig{
			"crypto":  {URL: "https://api.marketmind.ai/v1/chat/crypto/stream"},
			"markets": {URL: "https://api.marketmind.ai/v1/chat/markets/stream"},
		},
		HistoryURL: "https://api.marketmind.ai/v1/chat/history",
		LogLevel:   "INFO",
	}
}

// Load resolves configuration in priority order: built-in defaults,
// global config (~/.config/marketmind/), project config in directory,
// MARKETMIND_CONFIG file, MARKETMIND_CONFIG_CONTENT inline JSON, then
// environment variables.
func Load(directory string) (*Config, error) {
	cfg := Default()

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil || loaded[abs] {
			return
		}
		if loadFile(path, cfg) == nil {
			loaded[abs] = true
		}
	}

	global := Paths().Config
	loadOnce(filepath.Join(global, "marketmind.json"))
	loadOnce(filepath.Join(global, "marketmind.jsonc"))

	if directory != "" {
		loadOnce(filepath.Join(directory, "marketmind.json"))
		loadOnce(filepath.Join(directory, "marketmind.jsonc"))
	}

	if path := os.Getenv("MARKETMIND_CONFIG"); path != "" {
		loadOnce(path)
	}

	if content := os.Getenv("MARKETMIND_CONFIG_CONTENT"); content != "" {
		var inline Config
		if err := json.Unmarshal([]byte(content), &inline); err == nil {
			merge(cfg, &inline)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Endpoint resolves a logical assistant name, falling back to the
// default when name is empty.
func (c *Config) Endpoint(name string) (EndpointConfig, error) {
	if name == "" {
		name = c.DefaultEndpoint
	}
	ep, ok := c.Endpoints[name]
	if !ok || ep.URL == "" {
		return EndpointConfig{}, fmt.Errorf("unknown endpoint %q", name)
	}
	return ep, nil
}

// loadFile reads one JSONC config file and merges it in.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data)

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}

	merge(cfg, &fileCfg)
	return nil
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate substitutes {env:VAR} placeholders.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// merge overlays source onto target; source wins where set.
func merge(target, source *Config) {
	if source.DefaultEndpoint != "" {
		target.DefaultEndpoint = source.DefaultEndpoint
	}
	if source.HistoryURL != "" {
		target.HistoryURL = source.HistoryURL
	}
	if source.UserID != "" {
		target.UserID = source.UserID
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.PrettyLogs {
		target.PrettyLogs = true
	}
	if source.Endpoints != nil {
		if target.Endpoints == nil {
			target.Endpoints = make(map[string]EndpointConfig)
		}
		for name, ep := range source.Endpoints {
			target.Endpoints[name] = ep
		}
	}
}

// applyEnvOverrides applies environment variables, the highest
// priority source.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARKETMIND_ENDPOINT"); v != "" {
		cfg.DefaultEndpoint = v
	}
	if v := os.Getenv("MARKETMIND_HISTORY_URL"); v != "" {
		cfg.HistoryURL = v
	}
	if v := os.Getenv("MARKETMIND_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("MARKETMIND_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Save writes the configuration to a file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
