package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/tabular-seeder/internal/config"
	"github.com/vitebski/tabular-seeder/internal/connector"
	"github.com/vitebski/tabular-seeder/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

// createMockConnector returns a postgres connector backed by sqlmock
func createMockConnector(t *testing.T) (*connector.DatabaseConnector, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	dc, err := connector.NewDatabaseConnector(config.Default().Database, createTestLogger())
	if err != nil {
		t.Fatalf("Failed to create connector: %v", err)
	}
	if err := dc.Attach(context.Background(), db); err != nil {
		t.Fatalf("Failed to attach session: %v", err)
	}
	return dc, mock
}

// indexOf returns the position of table in order, or -1
func indexOf(order []string, table string) int {
	for i, t := range order {
		if t == table {
			return i
		}
	}
	return -1
}

func TestNewSchemaAnalyzer(t *testing.T) {
	logger := createTestLogger()
	db, _ := createMockConnector(t)

	// Create a new schema analyzer
	analyzer := NewSchemaAnalyzer(db, logger)

	// Check that the analyzer was created correctly
	if analyzer == nil {
		t.Fatal("Expected analyzer to be created, got nil")
	}
	if analyzer.DB != db {
		t.Error("Expected analyzer.DB to be the mock connector")
	}
	if analyzer.Logger != logger {
		t.Error("Expected analyzer.Logger to be the test logger")
	}
	if analyzer.ForeignKeys == nil {
		t.Error("Expected analyzer.ForeignKeys to be initialized")
	}
	if analyzer.TableIndexMap == nil {
		t.Error("Expected analyzer.TableIndexMap to be initialized")
	}
	if analyzer.IndexTableMap == nil {
		t.Error("Expected analyzer.IndexTableMap to be initialized")
	}
}

func TestAnalyzeSchema(t *testing.T) {
	db, mock := createMockConnector(t)
	analyzer := NewSchemaAnalyzer(db, createTestLogger())

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("comments").
			AddRow("posts").
			AddRow("users"))
	mock.ExpectQuery("FOREIGN KEY").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "referenced_table_name"}).
			AddRow("comments", "posts").
			AddRow("posts", "users").
			AddRow("users", "users").
			AddRow("comments", "archived_posts"))

	if err := analyzer.AnalyzeSchema(context.Background()); err != nil {
		t.Fatalf("AnalyzeSchema failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}

	if len(analyzer.Tables) != 3 {
		t.Errorf("Expected 3 tables, got %d", len(analyzer.Tables))
	}
	if len(analyzer.ForeignKeys["comments"]) != 2 {
		t.Errorf("Expected 2 foreign keys on comments, got %d", len(analyzer.ForeignKeys["comments"]))
	}

	// Referencing tables are dropped before the tables they reference
	order := analyzer.GetDropOrder()
	if len(order) != 3 {
		t.Fatalf("Expected 3 tables in the drop order, got %v", order)
	}
	if indexOf(order, "comments") > indexOf(order, "posts") {
		t.Errorf("Expected comments before posts, got %v", order)
	}
	if indexOf(order, "posts") > indexOf(order, "users") {
		t.Errorf("Expected posts before users, got %v", order)
	}

	// A self reference is not a cycle
	if len(analyzer.GetCircularTables()) != 0 {
		t.Errorf("Expected no circular tables, got %v", analyzer.GetCircularTables())
	}
}

func TestAnalyzeSchemaEmpty(t *testing.T) {
	db, mock := createMockConnector(t)
	analyzer := NewSchemaAnalyzer(db, createTestLogger())

	// No foreign key query is issued when there are no tables
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	if err := analyzer.AnalyzeSchema(context.Background()); err != nil {
		t.Fatalf("AnalyzeSchema failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
	if order := analyzer.GetDropOrder(); len(order) != 0 {
		t.Errorf("Expected an empty drop order, got %v", order)
	}
}

func TestAnalyzeSchemaError(t *testing.T) {
	db, mock := createMockConnector(t)
	analyzer := NewSchemaAnalyzer(db, createTestLogger())

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnError(errors.New("permission denied for schema public"))

	if err := analyzer.AnalyzeSchema(context.Background()); err == nil {
		t.Error("Expected AnalyzeSchema to fail")
	}
}

func TestGetCircularTables(t *testing.T) {
	db, mock := createMockConnector(t)
	analyzer := NewSchemaAnalyzer(db, createTestLogger())

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("departments").
			AddRow("employees").
			AddRow("projects"))
	mock.ExpectQuery("FOREIGN KEY").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "referenced_table_name"}).
			AddRow("departments", "employees").
			AddRow("employees", "departments").
			AddRow("projects", "departments"))

	if err := analyzer.AnalyzeSchema(context.Background()); err != nil {
		t.Fatalf("AnalyzeSchema failed: %v", err)
	}

	// Call the method being tested
	circularTables := analyzer.GetCircularTables()

	// Check the result
	if !circularTables["employees"] {
		t.Error("Expected employees to be detected as a circular table")
	}
	if !circularTables["departments"] {
		t.Error("Expected departments to be detected as a circular table")
	}
	if circularTables["projects"] {
		t.Error("Expected projects not to be a circular table")
	}

	// Cycles fall back to name order, still covering every table
	order := analyzer.GetDropOrder()
	expected := []string{"departments", "employees", "projects"}
	if len(order) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, order)
			break
		}
	}
}

func TestAddForeignKeyBeforeAnalyze(t *testing.T) {
	db, _ := createMockConnector(t)
	analyzer := NewSchemaAnalyzer(db, createTestLogger())

	// Without a graph the relationship is only recorded
	analyzer.AddForeignKey(models.ForeignKey{Table: "orders", ReferencedTable: "customers"})

	if len(analyzer.ForeignKeys["orders"]) != 1 {
		t.Error("Expected the foreign key to be recorded")
	}
	if analyzer.GetDropOrder() != nil {
		t.Error("Expected no drop order before the schema is analyzed")
	}
}
