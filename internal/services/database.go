package services

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// TestDatabaseConfig describes the postgres test database named by the
// DT_SQL_* variables.
type TestDatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
}

// TestDatabaseConfigFromLookup reads the DT_SQL_* variables through lookup,
// typically os.LookupEnv or a parsed env file.
func TestDatabaseConfigFromLookup(lookup func(name string) (string, bool)) TestDatabaseConfig {
	get := func(name string) string {
		value, _ := lookup(name)
		return strings.TrimSpace(value)
	}
	return TestDatabaseConfig{
		User:     get("DT_SQL_TESTUSER"),
		Password: get("DT_SQL_TESTPASS"),
		Host:     get("DT_SQL_TESTHOST"),
		Port:     get("DT_SQL_TESTPORT"),
		DBName:   get("DT_SQL_TESTDBNAME"),
	}
}

// Missing returns the names of required variables the config lacks.
func (c TestDatabaseConfig) Missing() []string {
	var missing []string
	if c.User == "" {
		missing = append(missing, "DT_SQL_TESTUSER")
	}
	if c.Password == "" {
		missing = append(missing, "DT_SQL_TESTPASS")
	}
	if c.Host == "" {
		missing = append(missing, "DT_SQL_TESTHOST")
	}
	if c.Port == "" {
		missing = append(missing, "DT_SQL_TESTPORT")
	}
	if c.DBName == "" {
		missing = append(missing, "DT_SQL_TESTDBNAME")
	}
	return missing
}

// DSN renders a postgres connection string. The local test database runs
// without TLS, so sslmode is disabled.
func (c TestDatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// PingTestDatabase verifies the test database is reachable and accepts the
// configured credentials before dependent tooling runs.
func PingTestDatabase(ctx context.Context, cfg TestDatabaseConfig) error {
	if missing := cfg.Missing(); len(missing) > 0 {
		return fmt.Errorf("test database configuration is incomplete (missing %s)", strings.Join(missing, ", "))
	}

	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open test database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping test database %s/%s as %s: %w", cfg.Host, cfg.DBName, cfg.User, err)
	}
	return nil
}
