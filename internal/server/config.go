package server

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds the server settings. The defaults are the container contract:
// plain HTTP on port 80, serving a prebuilt site from the conventional
// content root.
type Config struct {
	// Host is the listen address.
	Host string `toml:"host"`

	// Port is the listen port. "0" picks a free port, which tests use.
	Port string `toml:"port"`

	// ContentRoot is the directory the prebuilt site is served from.
	ContentRoot string `toml:"content_root"`

	// DatabasePath is the path to the bbolt catalog database.
	DatabasePath string `toml:"database_path"`

	// Watch enables reindexing when the content root changes on disk.
	Watch bool `toml:"watch"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

func DefaultConfig() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         "80",
		ContentRoot:  "/usr/share/nginx/html",
		DatabasePath: "/var/lib/vitrine/catalog.db",
		Watch:        true,
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// LoadConfig layers configuration: compiled defaults, then the TOML config
// file (explicit path, or ./config.toml when present), then VITRINE_*
// environment variables.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		if _, err := os.Stat("config.toml"); err == nil {
			path = "config.toml"
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if host := os.Getenv("VITRINE_HOST"); host != "" {
		config.Host = host
	}
	if port := os.Getenv("VITRINE_PORT"); port != "" {
		config.Port = port
	}
	if root := os.Getenv("VITRINE_CONTENT_ROOT"); root != "" {
		config.ContentRoot = root
	}
	if dbPath := os.Getenv("VITRINE_DB_PATH"); dbPath != "" {
		config.DatabasePath = dbPath
	}
	if watch := os.Getenv("VITRINE_WATCH"); watch != "" {
		v, err := strconv.ParseBool(watch)
		if err != nil {
			return nil, fmt.Errorf("invalid VITRINE_WATCH value %q: %w", watch, err)
		}
		config.Watch = v
	}
	if level := os.Getenv("VITRINE_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if format := os.Getenv("VITRINE_LOG_FORMAT"); format != "" {
		config.LogFormat = format
	}

	return config, nil
}
