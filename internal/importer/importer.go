// Package importer loads tabular files into database tables, one table per file.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/tabular-seeder/internal/analyzer"
	"github.com/vitebski/tabular-seeder/internal/connector"
	"github.com/vitebski/tabular-seeder/internal/tabular"
	"github.com/vitebski/tabular-seeder/pkg/models"
)

// DefaultBatchSize is the number of rows sent per INSERT statement
const DefaultBatchSize = 100

// Importer drops, creates and fills tables from CSV and XLSX files
type Importer struct {
	DB          *connector.DatabaseConnector
	Analyzer    *analyzer.SchemaAnalyzer
	TablePrefix string
	BatchSize   int
	Logger      *logrus.Logger
}

// NewImporter creates a new importer
func NewImporter(
	db *connector.DatabaseConnector,
	schemaAnalyzer *analyzer.SchemaAnalyzer,
	tablePrefix string,
	batchSize int,
	logger *logrus.Logger,
) *Importer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Importer{
		DB:          db,
		Analyzer:    schemaAnalyzer,
		TablePrefix: tablePrefix,
		BatchSize:   batchSize,
		Logger:      logger,
	}
}

// QualifiedName returns the quoted, schema-qualified name of a destination table
func (im *Importer) QualifiedName(table string) string {
	return im.DB.Dialect.QualifiedName(im.DB.Schema(), table)
}

// CreateTable drops any table with the same name and creates it from the loaded file's columns
func (im *Importer) CreateTable(ctx context.Context, name string, table *models.Table) error {
	qualified := im.QualifiedName(name)

	createSQL, err := BuildCreateTableSQL(im.DB.Dialect, qualified, table)
	if err != nil {
		im.Logger.Errorf("Error creating table %s: %v", name, err)
		return err
	}

	tx, err := im.DB.BeginTx(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range []string{im.DB.Dialect.DropTableSQL(qualified), createSQL} {
		im.Logger.Debugf("Executing: %s", stmt)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			im.Logger.Errorf("Error creating table %s: %v", name, err)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		im.Logger.Errorf("Error committing table %s: %v", name, err)
		return err
	}

	im.Logger.Infof("Table '%s' created with %d column(s)", name, len(table.Columns))
	return nil
}

// InsertRows inserts every row of the loaded file and commits once.
// Nothing is committed if any statement fails.
func (im *Importer) InsertRows(ctx context.Context, name string, table *models.Table) (int64, error) {
	columns := table.ColumnNames()
	if len(table.Rows) == 0 {
		im.Logger.Infof("0 records inserted into '%s'", name)
		return 0, nil
	}

	qualified := im.QualifiedName(name)
	batchSize := im.rowsPerStatement(len(columns))
	fullBatchSQL := BuildInsertSQL(im.DB.Dialect, qualified, columns, batchSize)

	tx, err := im.DB.BeginTx(ctx)
	if err != nil {
		return 0, err
	}

	var inserted int64
	for start := 0; start < len(table.Rows); start += batchSize {
		end := start + batchSize
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		batch := table.Rows[start:end]

		insertSQL := fullBatchSQL
		if len(batch) != batchSize {
			insertSQL = BuildInsertSQL(im.DB.Dialect, qualified, columns, len(batch))
		}

		params := make([]interface{}, 0, len(batch)*len(columns))
		for _, row := range batch {
			params = append(params, row...)
		}

		if _, err := tx.ExecContext(ctx, insertSQL, params...); err != nil {
			tx.Rollback()
			im.Logger.Errorf("Error inserting data into '%s' (rows %d-%d): %v", name, start+1, end, err)
			return 0, err
		}
		inserted += int64(len(batch))
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		im.Logger.Errorf("Error committing data for '%s': %v", name, err)
		return 0, err
	}

	im.Logger.Infof("%d records inserted into '%s'", inserted, name)
	return inserted, nil
}

// ImportFile imports a CSV or XLSX file into its own table and reports success.
// Errors are logged, never returned. An empty tableName derives the name from the file stem.
func (im *Importer) ImportFile(ctx context.Context, path, tableName string) bool {
	return im.ImportSourceFile(ctx, path, tableName).Status == models.StatusImported
}

// ImportSourceFile imports one file and returns the detailed outcome
func (im *Importer) ImportSourceFile(ctx context.Context, path, tableName string) (result models.FileResult) {
	started := time.Now()
	result = models.FileResult{
		Path:   path,
		Format: tabular.DetectFormat(path),
		Status: models.StatusFailed,
	}
	defer func() {
		result.Duration = time.Since(started)
	}()

	if result.Format == models.FormatUnknown {
		im.Logger.Warningf("Unsupported file format: %q (%s)", filepath.Ext(path), filepath.Base(path))
		result.Status = models.StatusUnsupported
		return result
	}

	if tableName == "" {
		tableName = tabular.TableNameForFile(path, im.TablePrefix)
	}
	result.Table = tableName

	im.Logger.Infof("Reading file: %s", filepath.Base(path))
	table, err := tabular.LoadFile(path)
	if err != nil {
		im.Logger.Errorf("Error importing %s: %v", path, err)
		result.Err = err
		return result
	}
	result.SourceRows = len(table.Rows)
	im.Logger.Infof("Rows found: %d", len(table.Rows))

	if err := im.CreateTable(ctx, tableName, table); err != nil {
		im.Logger.Errorf("Error importing %s: %v", path, err)
		result.Err = err
		return result
	}

	inserted, err := im.InsertRows(ctx, tableName, table)
	if err != nil {
		im.Logger.Errorf("Error importing %s: %v", path, err)
		result.Err = err
		return result
	}

	result.InsertedRows = inserted
	result.Status = models.StatusImported
	return result
}

// DropAllTables drops every base table of the target schema in one transaction,
// with referential integrity disabled while the drops run.
func (im *Importer) DropAllTables(ctx context.Context) error {
	if err := im.Analyzer.AnalyzeSchema(ctx); err != nil {
		im.Logger.Errorf("Error dropping tables: %v", err)
		return err
	}

	tables := im.Analyzer.GetDropOrder()
	if len(tables) == 0 {
		im.Logger.Info("No tables found to drop")
		return nil
	}

	im.Logger.Infof("Dropping %d table(s) from schema %s...", len(tables), im.DB.Schema())
	dialect := im.DB.Dialect

	tx, err := im.DB.BeginTx(ctx)
	if err != nil {
		return err
	}

	fail := func(err error) error {
		tx.Rollback()
		// Session-level settings survive a rollback on some engines
		if _, restoreErr := im.DB.ExecuteStatement(ctx, dialect.EnableForeignKeysSQL()); restoreErr != nil {
			im.Logger.Warningf("Could not re-enable foreign key checks: %v", restoreErr)
		}
		im.Logger.Errorf("Error dropping tables: %v", err)
		return err
	}

	if _, err := tx.ExecContext(ctx, dialect.DisableForeignKeysSQL()); err != nil {
		return fail(err)
	}

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, dialect.DropTableSQL(im.QualifiedName(table))); err != nil {
			return fail(err)
		}
		im.Logger.Infof("Table '%s' dropped", table)
	}

	if _, err := tx.ExecContext(ctx, dialect.EnableForeignKeysSQL()); err != nil {
		return fail(err)
	}

	if err := tx.Commit(); err != nil {
		return fail(err)
	}

	im.Logger.Infof("All %d table(s) dropped", len(tables))
	return nil
}

// ImportAllFilesFromFolder imports every CSV and XLSX file directly inside folder.
// A failing file never stops the batch; a missing folder yields an empty summary.
func (im *Importer) ImportAllFilesFromFolder(ctx context.Context, folder string) *models.ImportSummary {
	summary := &models.ImportSummary{Folder: folder}

	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		im.Logger.Errorf("Folder not found: %s", folder)
		return summary
	}

	files, unsupported, err := DiscoverFiles(folder)
	if err != nil {
		im.Logger.Errorf("Error reading folder %s: %v", folder, err)
		return summary
	}

	for _, path := range unsupported {
		im.Logger.Warningf("Skipping unsupported file: %s", filepath.Base(path))
		summary.Add(models.FileResult{
			Path:   path,
			Format: models.FormatUnknown,
			Status: models.StatusUnsupported,
		})
	}

	if len(files) == 0 {
		im.Logger.Errorf("No CSV or XLSX files found in: %s", folder)
		return summary
	}

	csvCount := 0
	for _, f := range files {
		if f.Format == models.FormatCSV {
			csvCount++
		}
	}

	im.Logger.Info(strings.Repeat("=", 60))
	im.Logger.Infof("Starting import of %d file(s): %d CSV, %d XLSX", len(files), csvCount, len(files)-csvCount)
	im.Logger.Info(strings.Repeat("=", 60))

	for _, f := range files {
		im.Logger.Infof("Processing: %s", filepath.Base(f.Path))
		summary.Add(im.ImportSourceFile(ctx, f.Path, ""))
	}

	im.Logger.Infof("Import finished: %d/%d file(s) imported successfully", summary.Succeeded, summary.Total())
	return summary
}

// DiscoverFiles lists the regular files directly inside folder.
// Supported files come back CSV first, then XLSX, each in name order.
func DiscoverFiles(folder string) ([]models.SourceFile, []string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, nil, err
	}

	var csvFiles, xlsxFiles []models.SourceFile
	var unsupported []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		switch format := tabular.DetectFormat(path); format {
		case models.FormatCSV:
			csvFiles = append(csvFiles, models.SourceFile{Path: path, Format: format})
		case models.FormatXLSX:
			xlsxFiles = append(xlsxFiles, models.SourceFile{Path: path, Format: format})
		default:
			unsupported = append(unsupported, path)
		}
	}

	return append(csvFiles, xlsxFiles...), unsupported, nil
}

// rowsPerStatement keeps each INSERT under the dialect's parameter limit
func (im *Importer) rowsPerStatement(columnCount int) int {
	rows := im.BatchSize
	if columnCount > 0 {
		if limit := im.DB.Dialect.MaxParameters() / columnCount; rows > limit {
			rows = limit
		}
	}
	if rows < 1 {
		rows = 1
	}
	return rows
}
