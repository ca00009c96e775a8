package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/tabular-seeder/internal/config"
)

// DatabaseConnector owns the single database session used for a whole run
type DatabaseConnector struct {
	Config  config.DatabaseConfig
	Dialect Dialect
	DB      *sql.DB
	Conn    *sql.Conn
	Logger  *logrus.Logger
}

// NewDatabaseConnector creates a new database connector
func NewDatabaseConnector(cfg config.DatabaseConfig, logger *logrus.Logger) (*DatabaseConnector, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if cfg.Port == "" {
		cfg.Port = config.DefaultPort(dialect.Name())
	}
	if cfg.Schema == "" {
		cfg.Schema = config.DefaultSchema(dialect.Name(), cfg.Name)
	}

	return &DatabaseConnector{
		Config:  cfg,
		Dialect: dialect,
		Logger:  logger,
	}, nil
}

// Schema returns the schema tables are created in and dropped from
func (dc *DatabaseConnector) Schema() string {
	return dc.Config.Schema
}

// Address returns host:port, or the file path for SQLite
func (dc *DatabaseConnector) Address() string {
	if dc.Config.Host == "" || dc.Dialect.Name() == config.DriverSQLite {
		return dc.Config.Name
	}
	return fmt.Sprintf("%s:%s", dc.Config.Host, dc.Config.Port)
}

// Connect opens the database and pins one session on it
func (dc *DatabaseConnector) Connect(ctx context.Context) error {
	if dc.Config.Name == "" {
		return fmt.Errorf("database name must be provided either as an argument or as %s environment variable", config.EnvName)
	}

	db, err := sql.Open(dc.Dialect.DriverName(), dc.Dialect.DSN(dc.Config))
	if err != nil {
		dc.Logger.Errorf("Error connecting to %s database: %v", dc.Dialect.Name(), err)
		return err
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		err = wrapConnectionError(err, dc.Address(), dc.Config.Name)
		dc.Logger.Errorf("Error pinging %s database: %v", dc.Dialect.Name(), err)
		return err
	}

	if err := dc.Attach(ctx, db); err != nil {
		db.Close()
		return err
	}

	dc.Logger.Infof("Connected to %s at %s (database %s)", dc.Dialect.Name(), dc.Address(), dc.Config.Name)
	return nil
}

// Attach pins a session on an already opened database handle
func (dc *DatabaseConnector) Attach(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		dc.Logger.Errorf("Error acquiring database session: %v", err)
		return err
	}

	dc.DB = db
	dc.Conn = conn
	return nil
}

// Disconnect closes the session and the database handle
func (dc *DatabaseConnector) Disconnect() {
	if dc.Conn != nil {
		if err := dc.Conn.Close(); err != nil {
			dc.Logger.Warningf("Error releasing database session: %v", err)
		}
		dc.Conn = nil
	}

	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Infof("Disconnected from %s", dc.Dialect.Name())
		}
		dc.DB = nil
	}
}

// ExecuteQuery executes a SQL query and returns the results
func (dc *DatabaseConnector) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	if err := dc.ensureSession(ctx); err != nil {
		return nil, err
	}

	dc.Logger.Debugf("Query: %s", strings.TrimSpace(query))
	rows, err := dc.Conn.QueryContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			// Drivers differ in column label case
			key := strings.ToLower(col)
			if b, ok := values[i].([]byte); ok {
				row[key] = string(b)
			} else {
				row[key] = values[i]
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

// ExecuteStatement executes a SQL statement and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(ctx context.Context, query string, params ...interface{}) (int64, error) {
	if err := dc.ensureSession(ctx); err != nil {
		return 0, err
	}

	dc.Logger.Debugf("Statement: %s", strings.TrimSpace(query))
	result, err := dc.Conn.ExecContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing statement: %v", err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		dc.Logger.Errorf("Error getting affected rows: %v", err)
		return 0, err
	}

	return affected, nil
}

// BeginTx starts a transaction on the session
func (dc *DatabaseConnector) BeginTx(ctx context.Context) (*sql.Tx, error) {
	if err := dc.ensureSession(ctx); err != nil {
		return nil, err
	}

	tx, err := dc.Conn.BeginTx(ctx, nil)
	if err != nil {
		dc.Logger.Errorf("Error starting transaction: %v", err)
		return nil, err
	}
	return tx, nil
}

func (dc *DatabaseConnector) ensureSession(ctx context.Context) error {
	if dc.Conn != nil {
		return nil
	}
	return dc.Connect(ctx)
}

// wrapConnectionError adds likely causes to common driver connection failures
func wrapConnectionError(err error, addr, database string) error {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf("connection refused to %s (is the database server running?): %w", addr, err)
	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf("cannot resolve host of %s: %w", addr, err)
	case strings.Contains(errStr, "password authentication failed") || strings.Contains(errStr, "access denied"):
		return fmt.Errorf("authentication failed for database %q (check %s and %s): %w",
			database, config.EnvUser, config.EnvPassword, err)
	case strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "unknown database"):
		return fmt.Errorf("database %q does not exist: %w", database, err)
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "timeout"):
		return fmt.Errorf("connection timed out to %s: %w", addr, err)
	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}
