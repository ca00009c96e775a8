// Package config resolves the seeder configuration from flags, the environment,
// an optional .env file and built-in defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Environment variable names
const (
	EnvDriver      = "DB_DRIVER"
	EnvHost        = "DB_HOST"
	EnvPort        = "DB_PORT"
	EnvName        = "DB_NAME"
	EnvUser        = "DB_USER"
	EnvPassword    = "DB_PASSWORD"
	EnvSchema      = "DB_SCHEMA"
	EnvSSLMode     = "DB_SSLMODE"
	EnvSourceDir   = "SOURCE_DIR"
	EnvTablePrefix = "TABLE_PREFIX"
	EnvDropTables  = "DROP_TABLES"
	EnvBatchSize   = "BATCH_SIZE"
	EnvLogLevel    = "LOG_LEVEL"
)

// DatabaseConfig holds the connection parameters for the single database session
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	Schema   string
	SSLMode  string
}

// Config holds everything a seeding run needs
type Config struct {
	Database    DatabaseConfig
	SourceDir   string
	TablePrefix string
	DropTables  bool
	Verify      bool
	BatchSize   int
	LogLevel    string
	EnvFile     string
}

// Default returns the configuration used when nothing else is supplied.
// The password is left empty.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:  DriverPostgres,
			Host:    "localhost",
			Port:    "5432",
			Name:    "postgres",
			User:    "postgres",
			Schema:  "public",
			SSLMode: "disable",
		},
		SourceDir:   "src",
		TablePrefix: "TAB_",
		DropTables:  true,
		BatchSize:   100,
		LogLevel:    "info",
		EnvFile:     ".env",
	}
}

// DefaultPort returns the conventional port for a driver
func DefaultPort(driver string) string {
	switch driver {
	case DriverMySQL:
		return "3306"
	case DriverSQLite:
		return ""
	default:
		return "5432"
	}
}

// DefaultSchema returns the schema tables are created in when none is configured
func DefaultSchema(driver, database string) string {
	switch driver {
	case DriverMySQL:
		return database
	case DriverSQLite:
		return "main"
	default:
		return "public"
	}
}

// ApplyEnvironment overrides fields with any environment variables that are set.
// Values from a loaded .env file are visible here as well.
func (c *Config) ApplyEnvironment() error {
	driverFromEnv := false
	if v, ok := lookup(EnvDriver); ok {
		c.Database.Driver = strings.ToLower(v)
		driverFromEnv = true
	}
	if v, ok := lookup(EnvHost); ok {
		c.Database.Host = v
	}
	if v, ok := lookup(EnvPort); ok {
		c.Database.Port = v
	} else if driverFromEnv {
		c.Database.Port = DefaultPort(c.Database.Driver)
	}
	if v, ok := lookup(EnvName); ok {
		c.Database.Name = v
	}
	if v, ok := lookup(EnvUser); ok {
		c.Database.User = v
	}
	if v, ok := os.LookupEnv(EnvPassword); ok {
		c.Database.Password = v
	}
	if v, ok := lookup(EnvSchema); ok {
		c.Database.Schema = v
	} else if driverFromEnv {
		c.Database.Schema = DefaultSchema(c.Database.Driver, c.Database.Name)
	}
	if v, ok := lookup(EnvSSLMode); ok {
		c.Database.SSLMode = v
	}
	if v, ok := lookup(EnvSourceDir); ok {
		c.SourceDir = v
	}
	if v, ok := os.LookupEnv(EnvTablePrefix); ok {
		c.TablePrefix = v
	}
	if v, ok := lookup(EnvDropTables); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvDropTables, v, err)
		}
		c.DropTables = b
	}
	if v, ok := lookup(EnvBatchSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvBatchSize, v, err)
		}
		c.BatchSize = n
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}
	return nil
}

// Validate checks that the configuration can be used to connect and import
func (c *Config) Validate() error {
	db := c.Database

	switch db.Driver {
	case DriverPostgres, DriverMySQL:
		if db.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if db.User == "" {
			return fmt.Errorf("database user is required")
		}
		port, err := strconv.Atoi(db.Port)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %q", db.Port)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q (expected %s, %s or %s)",
			db.Driver, DriverPostgres, DriverMySQL, DriverSQLite)
	}

	if db.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}

	return nil
}

// lookup returns a non-empty environment variable
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
