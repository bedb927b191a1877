// Package config loads the host-side settings that drive a session:
// where to listen, which editor binary to launch, and how to log.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings for one session.
type Config struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	SharedSecret string `yaml:"shared_secret"`
	EditorExec   string `yaml:"editor_exec"`

	LogDir             string `yaml:"log_dir"`
	LogLevel           string `yaml:"log_level"`
	LogRotationEnabled bool   `yaml:"log_rotation_enabled"`
	LogKeepFiles       int    `yaml:"log_keep_files"`

	filePath string
	modTime  time.Time
}

var globalConfig atomic.Pointer[Config]

// Get returns the process-wide config, as last set by Load. Only
// cmd/editorctl reads this; core packages (engine, session, transport,
// wrapper, launcher) take their settings as constructor parameters.
func Get() *Config {
	return globalConfig.Load()
}

// defaults returns a Config usable with no file present at all.
func defaults() *Config {
	return &Config{
		Host:               "127.0.0.1",
		Port:               0,
		EditorExec:         "gvim",
		LogDir:             "logs",
		LogLevel:           "info",
		LogRotationEnabled: true,
		LogKeepFiles:       7,
	}
}

// Load reads a YAML config file at filePath and stores the result as
// the process-wide config. A missing file is not an error: Load falls
// back to defaults so the program can still start.
func Load(filePath string) (*Config, error) {
	cfg := defaults()

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}
	cfg.filePath = absPath

	info, err := os.Stat(absPath)
	if err != nil {
		globalConfig.Store(cfg)
		return cfg, nil
	}
	cfg.modTime = info.ModTime()

	data, err := os.ReadFile(absPath)
	if err != nil {
		slog.Warn("config file read failed, using defaults", "path", absPath, "error", err)
		globalConfig.Store(cfg)
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	globalConfig.Store(cfg)
	slog.Info("config loaded", "path", absPath)
	return cfg, nil
}
