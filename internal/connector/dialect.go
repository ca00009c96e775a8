package connector

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/vitebski/tabular-seeder/internal/config"
	"github.com/vitebski/tabular-seeder/pkg/models"
	_ "modernc.org/sqlite"
)

// Dialect renders SQL and introspection queries for one database engine
type Dialect interface {
	// Name returns the driver name used in configuration
	Name() string
	// DriverName returns the database/sql driver to open
	DriverName() string
	// DSN builds the connection string for the driver
	DSN(cfg config.DatabaseConfig) string
	// QuoteIdentifier quotes a table or column name
	QuoteIdentifier(name string) string
	// QualifiedName returns the quoted schema-qualified table name
	QualifiedName(schema, table string) string
	// Placeholder returns the bind marker for the n-th parameter
	Placeholder(n int) string
	// ColumnType maps an inferred column type to a SQL type
	ColumnType(t models.ColumnType) string
	// IdentityColumn returns the surrogate primary key definition
	IdentityColumn() string
	// DropTableSQL returns the statement dropping a table if it exists
	DropTableSQL(qualifiedName string) string
	// ListTablesQuery lists the base tables of a schema
	ListTablesQuery(schema string) (string, []interface{})
	// ForeignKeysQuery lists referencing/referenced table pairs of a schema
	ForeignKeysQuery(schema string) (string, []interface{})
	// DisableForeignKeysSQL turns off referential integrity for the session
	DisableForeignKeysSQL() string
	// EnableForeignKeysSQL restores referential integrity for the session
	EnableForeignKeysSQL() string
	// MaxParameters is the most bind parameters one statement may carry
	MaxParameters() int
}

// DialectFor returns the dialect registered for a driver name
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case config.DriverPostgres, "postgresql", "pgx":
		return PostgresDialect{}, nil
	case config.DriverMySQL:
		return MySQLDialect{}, nil
	case config.DriverSQLite, "sqlite3":
		return SQLiteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// quoteWith wraps an identifier in quote characters, doubling any embedded quote
func quoteWith(q, name string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// PostgresDialect targets PostgreSQL through pgx
type PostgresDialect struct{}

var postgresTypes = map[models.ColumnType]string{
	models.TypeInteger:   "BIGINT",
	models.TypeFloat:     "DECIMAL(15, 4)",
	models.TypeText:      "TEXT",
	models.TypeBoolean:   "BOOLEAN",
	models.TypeTimestamp: "TIMESTAMP",
}

// Name returns the driver name used in configuration
func (PostgresDialect) Name() string { return config.DriverPostgres }

// DriverName returns the database/sql driver to open
func (PostgresDialect) DriverName() string { return "pgx" }

// DSN builds a postgres:// URL
func (PostgresDialect) DSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// QuoteIdentifier quotes a table or column name
func (PostgresDialect) QuoteIdentifier(name string) string { return quoteWith(`"`, name) }

// QualifiedName returns the quoted schema-qualified table name
func (d PostgresDialect) QualifiedName(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// Placeholder returns the bind marker for the n-th parameter
func (PostgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// ColumnType maps an inferred column type to a SQL type
func (PostgresDialect) ColumnType(t models.ColumnType) string {
	if sqlType, ok := postgresTypes[t]; ok {
		return sqlType
	}
	return "TEXT"
}

// IdentityColumn returns the surrogate primary key definition
func (PostgresDialect) IdentityColumn() string { return "id SERIAL PRIMARY KEY" }

// DropTableSQL returns the statement dropping a table if it exists
func (PostgresDialect) DropTableSQL(qualifiedName string) string {
	return "DROP TABLE IF EXISTS " + qualifiedName + " CASCADE"
}

// ListTablesQuery lists the base tables of a schema
func (PostgresDialect) ListTablesQuery(schema string) (string, []interface{}) {
	return `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, []interface{}{schema}
}

// ForeignKeysQuery lists referencing/referenced table pairs of a schema
func (PostgresDialect) ForeignKeysQuery(schema string) (string, []interface{}) {
	return `
		SELECT DISTINCT
			tc.table_name AS table_name,
			ccu.table_name AS referenced_table_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.constraint_column_usage ccu
		ON tc.constraint_name = ccu.constraint_name
		AND tc.constraint_schema = ccu.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = $1
		ORDER BY 1, 2
	`, []interface{}{schema}
}

// DisableForeignKeysSQL turns off referential integrity for the session
func (PostgresDialect) DisableForeignKeysSQL() string {
	return "SET session_replication_role = 'replica'"
}

// EnableForeignKeysSQL restores referential integrity for the session
func (PostgresDialect) EnableForeignKeysSQL() string {
	return "SET session_replication_role = 'origin'"
}

// MaxParameters is the most bind parameters one statement may carry
func (PostgresDialect) MaxParameters() int { return 65535 }

// MySQLDialect targets MySQL and MariaDB through go-sql-driver
type MySQLDialect struct{}

var mysqlTypes = map[models.ColumnType]string{
	models.TypeInteger:   "BIGINT",
	models.TypeFloat:     "DECIMAL(15, 4)",
	models.TypeText:      "LONGTEXT",
	models.TypeBoolean:   "BOOLEAN",
	models.TypeTimestamp: "DATETIME",
}

// Name returns the driver name used in configuration
func (MySQLDialect) Name() string { return config.DriverMySQL }

// DriverName returns the database/sql driver to open
func (MySQLDialect) DriverName() string { return "mysql" }

// DSN builds the connection string for the driver
func (MySQLDialect) DSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	return mc.FormatDSN()
}

// QuoteIdentifier quotes a table or column name
func (MySQLDialect) QuoteIdentifier(name string) string { return quoteWith("`", name) }

// QualifiedName returns the quoted schema-qualified table name
func (d MySQLDialect) QualifiedName(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// Placeholder returns the bind marker for the n-th parameter
func (MySQLDialect) Placeholder(int) string { return "?" }

// ColumnType maps an inferred column type to a SQL type
func (MySQLDialect) ColumnType(t models.ColumnType) string {
	if sqlType, ok := mysqlTypes[t]; ok {
		return sqlType
	}
	return "LONGTEXT"
}

// IdentityColumn returns the surrogate primary key definition
func (MySQLDialect) IdentityColumn() string { return "id BIGINT AUTO_INCREMENT PRIMARY KEY" }

// DropTableSQL returns the statement dropping a table if it exists
func (MySQLDialect) DropTableSQL(qualifiedName string) string {
	return "DROP TABLE IF EXISTS " + qualifiedName + " CASCADE"
}

// ListTablesQuery lists the base tables of a schema
func (MySQLDialect) ListTablesQuery(schema string) (string, []interface{}) {
	return `
		SELECT table_name AS table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, []interface{}{schema}
}

// ForeignKeysQuery lists referencing/referenced table pairs of a schema
func (MySQLDialect) ForeignKeysQuery(schema string) (string, []interface{}) {
	return `
		SELECT DISTINCT
			table_name AS table_name,
			referenced_table_name AS referenced_table_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		AND referenced_table_name IS NOT NULL
		ORDER BY 1, 2
	`, []interface{}{schema}
}

// DisableForeignKeysSQL turns off referential integrity for the session
func (MySQLDialect) DisableForeignKeysSQL() string { return "SET FOREIGN_KEY_CHECKS = 0" }

// EnableForeignKeysSQL restores referential integrity for the session
func (MySQLDialect) EnableForeignKeysSQL() string { return "SET FOREIGN_KEY_CHECKS = 1" }

// MaxParameters is the most bind parameters one statement may carry
func (MySQLDialect) MaxParameters() int { return 65535 }

// SQLiteDialect targets a local SQLite file through modernc.org/sqlite
type SQLiteDialect struct{}

// Name returns the driver name used in configuration
func (SQLiteDialect) Name() string { return config.DriverSQLite }

// DriverName returns the database/sql driver to open
func (SQLiteDialect) DriverName() string { return "sqlite" }

// DSN is the database file path
func (SQLiteDialect) DSN(cfg config.DatabaseConfig) string { return cfg.Name }

// QuoteIdentifier quotes a table or column name
func (SQLiteDialect) QuoteIdentifier(name string) string { return quoteWith(`"`, name) }

// QualifiedName ignores the schema; every table lives in the main database
func (d SQLiteDialect) QualifiedName(_, table string) string { return d.QuoteIdentifier(table) }

// Placeholder returns the bind marker for the n-th parameter
func (SQLiteDialect) Placeholder(int) string { return "?" }

// ColumnType maps an inferred column type to a SQL type
func (SQLiteDialect) ColumnType(t models.ColumnType) string {
	if sqlType, ok := postgresTypes[t]; ok {
		return sqlType
	}
	return "TEXT"
}

// IdentityColumn returns the surrogate primary key definition
func (SQLiteDialect) IdentityColumn() string { return "id INTEGER PRIMARY KEY AUTOINCREMENT" }

// DropTableSQL returns the statement dropping a table if it exists
func (SQLiteDialect) DropTableSQL(qualifiedName string) string {
	return "DROP TABLE IF EXISTS " + qualifiedName
}

// ListTablesQuery lists the base tables of a schema
func (SQLiteDialect) ListTablesQuery(string) (string, []interface{}) {
	return `
		SELECT name AS table_name
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`, nil
}

// ForeignKeysQuery lists referencing/referenced table pairs of a schema
func (SQLiteDialect) ForeignKeysQuery(string) (string, []interface{}) {
	return `
		SELECT DISTINCT
			m.name AS table_name,
			p."table" AS referenced_table_name
		FROM sqlite_master m
		JOIN pragma_foreign_key_list(m.name) p
		WHERE m.type = 'table'
		ORDER BY 1, 2
	`, nil
}

// DisableForeignKeysSQL turns off referential integrity for the session
func (SQLiteDialect) DisableForeignKeysSQL() string { return "PRAGMA defer_foreign_keys = ON" }

// EnableForeignKeysSQL restores referential integrity for the session
func (SQLiteDialect) EnableForeignKeysSQL() string { return "PRAGMA defer_foreign_keys = OFF" }

// MaxParameters is the most bind parameters one statement may carry
func (SQLiteDialect) MaxParameters() int { return 32766 }
