package wizard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BuildConfigTOML renders the driftline.toml content for one environment.
// The connection URL itself goes to the dotenv file, not the config, so the
// config can be committed.
func BuildConfigTOML(env EnvironmentInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "default_environment = %q\n", env.Name)
	b.WriteString("backup_dir = \"backups\"\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "[environments.%s]\n", env.Name)
	if env.BaselinePath != "" {
		fmt.Fprintf(&b, "baseline_path = %q\n", env.BaselinePath)
	}
	return b.String()
}

// BuildDotenv renders the .env.<name> content carrying the connection URL.
func BuildDotenv(env EnvironmentInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# connection for the %q environment; keep out of version control\n", env.Name)
	fmt.Fprintf(&b, "DATABASE_URL=%s\n", env.DatabaseURL)
	return b.String()
}

// WriteFiles persists the config and dotenv files into dir and adds the
// dotenv pattern to .gitignore when one exists. Existing files are not
// overwritten.
func WriteFiles(dir string, env EnvironmentInput) (*InitResult, error) {
	result := &InitResult{
		ConfigPath:  filepath.Join(dir, "driftline.toml"),
		EnvFilePath: filepath.Join(dir, ".env."+env.Name),
	}

	if _, err := os.Stat(result.ConfigPath); err == nil {
		return nil, fmt.Errorf("%s already exists; edit it directly or remove it first", result.ConfigPath)
	}
	if err := os.WriteFile(result.ConfigPath, []byte(BuildConfigTOML(env)), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", result.ConfigPath, err)
	}
	if err := os.WriteFile(result.EnvFilePath, []byte(BuildDotenv(env)), 0o600); err != nil {
		return nil, fmt.Errorf("writing %s: %w", result.EnvFilePath, err)
	}

	updated, err := appendGitignore(filepath.Join(dir, ".gitignore"), ".env.*")
	if err != nil {
		return nil, err
	}
	result.GitignoreUpdated = updated

	return result, nil
}

// appendGitignore adds pattern to an existing .gitignore unless already
// present. A repository without one is left alone.
func appendGitignore(path, pattern string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == pattern {
			return false, nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	prefix := ""
	if len(data) > 0 && data[len(data)-1] != '\n' {
		prefix = "\n"
	}
	if _, err := f.WriteString(prefix + pattern + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// ValidateInput checks the wizard's collected fields before anything is
// written. Returns a map of field name to problem description.
func ValidateInput(env EnvironmentInput) map[string]string {
	errors := make(map[string]string)

	name := strings.TrimSpace(env.Name)
	if name == "" {
		errors["name"] = "environment name is required"
	} else if strings.ContainsAny(name, " \t/\\") {
		errors["name"] = "environment name must not contain spaces or slashes"
	}

	url := strings.TrimSpace(env.DatabaseURL)
	switch {
	case url == "":
		errors["url"] = "database URL is required"
	case env.DatabaseType == "postgres" && !strings.HasPrefix(url, "postgres://") && !strings.HasPrefix(url, "postgresql://"):
		errors["url"] = "PostgreSQL URLs start with postgres://"
	case env.DatabaseType == "mysql" && !strings.Contains(url, "@tcp(") && !strings.Contains(url, "@unix(") && !strings.HasPrefix(url, "mysql://"):
		errors["url"] = "MySQL URLs look like user:pass@tcp(host:3306)/dbname"
	}

	return errors
}
