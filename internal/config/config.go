// Package config provides configuration loading and structs for the deckfill server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Inbox      InboxConfig      `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// StorageConfig holds paths for the history database and the workspace.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	WorkspaceDir string `yaml:"workspace_dir"`
}

// PreprocessConfig selects how templates are preprocessed. Mode "native" runs in process;
// mode "python" runs Script with Python (python3 or python from PATH when empty).
type PreprocessConfig struct {
	Mode           string `yaml:"mode"`
	Python         string `yaml:"python"`
	Script         string `yaml:"script"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the script timeout.
func (p *PreprocessConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// InboxConfig holds hot-folder settings. Templates dropped into Directories are uploaded
// and preprocessed.
type InboxConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to false when unset.
func (i *InboxConfig) RecursiveOrDefault() bool {
	if i.Recursive != nil {
		return *i.Recursive
	}
	return false
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.WorkspaceDir = expandPath(cfg.Storage.WorkspaceDir, configDir)
	if cfg.Preprocess.Script != "" {
		cfg.Preprocess.Script = expandPath(cfg.Preprocess.Script, configDir)
	}
	for i := range cfg.Inbox.Directories {
		cfg.Inbox.Directories[i] = expandPath(cfg.Inbox.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate reports settings that cannot work.
func Validate(cfg *Config) error {
	switch cfg.Preprocess.Mode {
	case "native":
	case "python":
		if cfg.Preprocess.Script == "" {
			return fmt.Errorf("invalid config: preprocess.script is required when preprocess.mode is python")
		}
	default:
		return fmt.Errorf("invalid config: unknown preprocess.mode %q", cfg.Preprocess.Mode)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", cfg.Server.Port)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
