package cmd

import (
	"database/sql"
	"fmt"

	"github.com/driftline/driftline/database"
	"github.com/driftline/driftline/database/mysql"
	"github.com/driftline/driftline/database/postgres"
	"github.com/driftline/driftline/internal/config"
)

// openTarget resolves the named environment, detects the dialect from its
// connection string and opens a pooled connection alongside the matching
// driver.
func openTarget(environment string) (*sql.DB, database.Driver, *config.ResolvedEnvironment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	env, err := config.ResolveEnvironment(cfg, environment)
	if err != nil {
		return nil, nil, nil, err
	}

	db, driver, err := openURL(env.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return db, driver, env, nil
}

func openURL(connStr string) (*sql.DB, database.Driver, error) {
	dialect, err := database.DetectDriver(connStr)
	if err != nil {
		return nil, nil, err
	}

	var driver database.Driver
	switch dialect {
	case "mysql":
		driver = mysql.NewDriver()
	case "postgres":
		driver = postgres.NewDriver()
	default:
		return nil, nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(database.SQLDriverName(dialect), database.NormalizeDSN(dialect, connStr))
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s connection: %w", dialect, err)
	}
	return db, driver, nil
}

func printConfigHint() {
	fmt.Println(`driftline.toml not found. Run "driftline init" or create one that looks like:

default_environment = "development"

[environments.development]
baseline_path = "baseline.json"

with the connection URL in .env.development:

DATABASE_URL=user:pass@tcp(localhost:3306)/app`)
}
