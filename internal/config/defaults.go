package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8000

	DefaultFetchTimeout = 60 * time.Second

	DefaultCacheEnabled = false
	DefaultCacheTTL     = 15 * time.Minute

	DefaultWorkers = 1

	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// ConfigDir is ~/.docsnatch, or a relative .docsnatch when the home
// directory cannot be resolved
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docsnatch"
	}
	return filepath.Join(home, ".docsnatch")
}

// CacheDir is where the badger store lives by default
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// ConfigFilePath is where Load looks for the YAML file first
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns a configuration with every field at its default
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           DefaultServerHost,
			Port:           DefaultServerPort,
			AllowedOrigins: []string{"*"},
		},
		Fetch: FetchConfig{
			Timeout:   DefaultFetchTimeout,
			UserAgent: "",
			ProxyURL:  "",
		},
		Cache: CacheConfig{
			Enabled:   DefaultCacheEnabled,
			TTL:       DefaultCacheTTL,
			Directory: CacheDir(),
		},
		Build: BuildConfig{
			Workers:         DefaultWorkers,
			IncludeManifest: false,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
