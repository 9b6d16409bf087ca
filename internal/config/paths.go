package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppPaths contains the standard directories used by the engine.
type AppPaths struct {
	Data   string // ~/.local/share/marketmind
	Config string // ~/.config/marketmind
	Cache  string // ~/.cache/marketmind
}

// Paths returns the XDG-style paths for marketmind data.
func Paths() *AppPaths {
	return &AppPaths{
		Data:   filepath.Join(getEnvOrDefault("XDG_DATA_HOME", defaultDataHome()), "marketmind"),
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), "marketmind"),
		Cache:  filepath.Join(getEnvOrDefault("XDG_CACHE_HOME", defaultCacheHome()), "marketmind"),
	}
}

// Ensure creates all required directories.
func (p *AppPaths) Ensure() error {
	for _, dir := range []string{p.Data, p.Config, p.Cache} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// StoragePath returns the directory of the local JSON store.
func (p *AppPaths) StoragePath() string {
	return filepath.Join(p.Data, "storage")
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func home() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}

func defaultDataHome() string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(home(), "Library", "Application Support")
	}
	return filepath.Join(home(), ".local", "share")
}

func defaultConfigHome() string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(home(), "Library", "Preferences")
	}
	return filepath.Join(home(), ".config")
}

func defaultCacheHome() string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(home(), "Library", "Caches")
	}
	return filepath.Join(home(), ".cache")
}
