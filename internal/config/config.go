// Package config loads driftline.toml and resolves named environments into
// concrete connection settings, with per-environment dotenv overrides.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const defaultEnvironmentName = "development"

// EnvironmentConfig describes a single named environment from driftline.toml.
type EnvironmentConfig struct {
	DatabaseURL  string `toml:"database_url"`
	BaselinePath string `toml:"baseline_path"`
}

type Config struct {
	DefaultEnvironment string                       `toml:"default_environment"`
	BackupDir          string                       `toml:"backup_dir"`
	BaselinePath       string                       `toml:"baseline_path"`
	Environments       map[string]EnvironmentConfig `toml:"environments"`

	ConfigFilePath string `toml:"-"`
}

// ConfigDir returns the directory holding the discovered config file, or ""
// when no file was found.
func (c *Config) ConfigDir() string {
	if c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

// LoadConfig walks up from the working directory looking for driftline.toml,
// stopping at a project root marker or the filesystem root. A missing file
// is not an error; an empty config is returned and dotenv resolution can
// still supply connection details.
func LoadConfig() (*Config, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return loadConfigFrom(startDir)
}

func loadConfigFrom(startDir string) (*Config, error) {
	dir := startDir
	for {
		configPath := filepath.Join(dir, "driftline.toml")
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, err
			}

			var config Config
			if err := toml.Unmarshal(data, &config); err != nil {
				return nil, err
			}

			config.ConfigFilePath = configPath
			return &config, nil
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return &Config{}, nil
}

// isProjectRoot checks for common project boundary markers so discovery
// never wanders above the repository.
func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return true
	}
	return false
}
