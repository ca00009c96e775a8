package connector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/tabular-seeder/internal/config"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

// newMockConnector returns a postgres connector whose session is backed by sqlmock
func newMockConnector(t *testing.T) (*DatabaseConnector, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dc, err := NewDatabaseConnector(config.Default().Database, createTestLogger())
	require.NoError(t, err)
	require.NoError(t, dc.Attach(context.Background(), db))

	return dc, mock
}

func TestNewDatabaseConnector(t *testing.T) {
	logger := createTestLogger()

	// Create a new database connector
	db, err := NewDatabaseConnector(config.DatabaseConfig{
		Driver:   config.DriverMySQL,
		Host:     "localhost",
		User:     "user",
		Password: "password",
		Name:     "database",
	}, logger)
	require.NoError(t, err)

	// Check that the connector was created correctly
	assert.Equal(t, "mysql", db.Dialect.Name())
	assert.Equal(t, "3306", db.Config.Port, "port defaults per driver")
	assert.Equal(t, "database", db.Schema(), "mysql schema defaults to the database")
	assert.Equal(t, "localhost:3306", db.Address())
	assert.Nil(t, db.Conn)
	assert.Equal(t, logger, db.Logger)
}

func TestNewDatabaseConnectorUnknownDriver(t *testing.T) {
	_, err := NewDatabaseConnector(config.DatabaseConfig{Driver: "oracle"}, createTestLogger())
	assert.Error(t, err)
}

func TestConnectRequiresDatabaseName(t *testing.T) {
	cfg := config.Default().Database
	cfg.Name = ""

	db, err := NewDatabaseConnector(cfg, createTestLogger())
	require.NoError(t, err)

	err = db.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvName)
}

func TestConnectSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.db")

	db, err := NewDatabaseConnector(config.DatabaseConfig{Driver: config.DriverSQLite, Name: path}, createTestLogger())
	require.NoError(t, err)
	require.NoError(t, db.Connect(context.Background()))

	_, err = db.ExecuteStatement(context.Background(), "CREATE TABLE t (v TEXT)")
	require.NoError(t, err)

	affected, err := db.ExecuteStatement(context.Background(), "INSERT INTO t (v) VALUES (?), (?)", "a", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	rows, err := db.ExecuteQuery(context.Background(), "SELECT COUNT(*) AS Total FROM t")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0]["total"])

	db.Disconnect()
	assert.Nil(t, db.Conn)
	assert.Nil(t, db.DB)

	// Disconnecting twice is harmless
	db.Disconnect()
}

func TestExecuteQuery(t *testing.T) {
	dc, mock := newMockConnector(t)

	mock.ExpectQuery("SELECT table_name").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "size"}).
			AddRow([]byte("orders"), int64(10)).
			AddRow("customers", nil))

	rows, err := dc.ExecuteQuery(context.Background(), "SELECT table_name, size FROM tables WHERE schema = $1", "public")
	require.NoError(t, err)

	assert.Equal(t, []map[string]interface{}{
		{"table_name": "orders", "size": int64(10)},
		{"table_name": "customers", "size": nil},
	}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteQueryError(t *testing.T) {
	dc, mock := newMockConnector(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

	_, err := dc.ExecuteQuery(context.Background(), "SELECT 1")
	assert.EqualError(t, err, "relation does not exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteStatement(t *testing.T) {
	dc, mock := newMockConnector(t)

	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectClose()

	affected, err := dc.ExecuteStatement(context.Background(), "UPDATE accounts SET active = true")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	dc.Disconnect()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginTx(t *testing.T) {
	dc, mock := newMockConnector(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := dc.BeginTx(context.Background())
	require.NoError(t, err)
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), "is the database server running"},
		{"unknown host", errors.New("dial tcp: lookup db.invalid: no such host"), "cannot resolve host"},
		{"bad password", errors.New(`FATAL: password authentication failed for user "postgres"`), "authentication failed"},
		{"mysql access denied", errors.New("Error 1045: Access denied for user 'root'"), "authentication failed"},
		{"missing database", errors.New(`FATAL: database "shop" does not exist`), `database "shop" does not exist`},
		{"mysql unknown database", errors.New("Error 1049: Unknown database 'shop'"), `database "shop" does not exist`},
		{"deadline", context.DeadlineExceeded, "timed out"},
		{"other", errors.New("boom"), "failed to connect to database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := wrapConnectionError(tt.err, "localhost:5432", "shop")
			assert.Contains(t, wrapped.Error(), tt.contains)
			assert.ErrorIs(t, wrapped, tt.err)
		})
	}
}
