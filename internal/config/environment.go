package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ResolvedEnvironment is a fully-resolved environment with concrete values.
type ResolvedEnvironment struct {
	Name         string
	DatabaseURL  string
	BaselinePath string
	BackupDir    string
	DotenvPath   string
	FromConfig   bool
	FromDotenv   bool
}

// ResolveEnvironment resolves a named environment into a concrete connection
// string and paths. Values from .env.<name> next to the config file override
// driftline.toml; the name defaults to the config's default_environment.
func ResolveEnvironment(config *Config, name string) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	resolved := &ResolvedEnvironment{Name: envName}

	var envExists bool
	if config != nil {
		resolved.BackupDir = config.BackupDir
		resolved.BaselinePath = config.BaselinePath
		if envConfig, ok := config.Environments[envName]; ok {
			envExists = true
			resolved.FromConfig = true
			resolved.DatabaseURL = envConfig.DatabaseURL
			if envConfig.BaselinePath != "" {
				resolved.BaselinePath = envConfig.BaselinePath
			}
		}
	}

	baseDir := ""
	if config != nil {
		baseDir = config.ConfigDir()
	}
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	resolved.DotenvPath = filepath.Join(baseDir, ".env."+envName)

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true

		if value := values["DATABASE_URL"]; value != "" {
			resolved.DatabaseURL = value
		}
		if resolved.DatabaseURL == "" {
			if value := values["MYSQL_URL"]; value != "" {
				resolved.DatabaseURL = value
			}
		}
		if resolved.DatabaseURL == "" {
			if value := values["POSTGRES_URL"]; value != "" {
				resolved.DatabaseURL = value
			}
		}
		if value := values["BASELINE_PATH"]; value != "" {
			resolved.BaselinePath = value
		}
		if value := values["BACKUP_DIR"]; value != "" {
			resolved.BackupDir = value
		}
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to access %s: %w", resolved.DotenvPath, err)
	}

	if resolved.BaselinePath == "" {
		resolved.BaselinePath = "baseline.json"
	}
	if resolved.BackupDir == "" {
		resolved.BackupDir = "backups"
	}

	// Relative paths are anchored at the config file so commands behave the
	// same from any subdirectory.
	if baseDir != "" && config != nil && config.ConfigFilePath != "" {
		if !filepath.IsAbs(resolved.BaselinePath) {
			resolved.BaselinePath = filepath.Join(baseDir, resolved.BaselinePath)
		}
		if !filepath.IsAbs(resolved.BackupDir) {
			resolved.BackupDir = filepath.Join(baseDir, resolved.BackupDir)
		}
	}

	if resolved.DatabaseURL == "" {
		if config != nil && len(config.Environments) > 0 && !envExists && !resolved.FromDotenv {
			return nil, fmt.Errorf("environment %q not defined in driftline.toml and %s not found", envName, resolved.DotenvPath)
		}
		return nil, fmt.Errorf("no database URL configured for environment %q; set it in driftline.toml or %s", envName, resolved.DotenvPath)
	}

	return resolved, nil
}
