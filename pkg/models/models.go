package models

import (
	"fmt"
	"time"
)

// FileFormat represents the detected format of a source file
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatCSV
	FormatXLSX
)

// String returns the lower-case name of the format
func (f FileFormat) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// SourceFile represents a discovered input file
type SourceFile struct {
	Path   string
	Format FileFormat
}

// ColumnType represents the scalar type detected for a column
type ColumnType int

const (
	TypeUnknown ColumnType = iota
	TypeInteger
	TypeFloat
	TypeText
	TypeBoolean
	TypeTimestamp
)

// String returns the lower-case name of the column type
func (ct ColumnType) String() string {
	switch ct {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeText:
		return "text"
	case TypeBoolean:
		return "boolean"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Column represents a column of a loaded tabular file
type Column struct {
	Name       string // sanitized SQL identifier
	SourceName string // header as it appeared in the file
	Type       ColumnType
}

// Table is a tabular file loaded fully into memory.
// Every cell is nil, int64, float64, string, bool or time.Time.
type Table struct {
	Columns []Column
	Rows    [][]interface{}
}

// ColumnNames returns the sanitized column names in source order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// ForeignKey represents a foreign key relationship between two tables
type ForeignKey struct {
	Table           string
	ReferencedTable string
}

// ImportStatus represents the outcome of importing a single file
type ImportStatus int

const (
	StatusImported ImportStatus = iota
	StatusFailed
	StatusUnsupported
)

// String returns the lower-case name of the status
func (s ImportStatus) String() string {
	switch s {
	case StatusImported:
		return "imported"
	case StatusFailed:
		return "failed"
	case StatusUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FileResult represents the result of importing one file
type FileResult struct {
	Path         string
	Table        string
	Format       FileFormat
	Status       ImportStatus
	SourceRows   int
	InsertedRows int64
	Duration     time.Duration
	Err          error
}

// ImportSummary represents the result of importing a folder
type ImportSummary struct {
	Folder      string
	Results     []FileResult
	Succeeded   int
	Failed      int
	Unsupported int
}

// Add records a file result and updates the counters
func (s *ImportSummary) Add(result FileResult) {
	s.Results = append(s.Results, result)
	switch result.Status {
	case StatusImported:
		s.Succeeded++
	case StatusFailed:
		s.Failed++
	case StatusUnsupported:
		s.Unsupported++
	}
}

// Total returns the number of supported files that were attempted
func (s *ImportSummary) Total() int {
	return s.Succeeded + s.Failed
}

// InsertedRows returns the number of rows inserted across all imported files
func (s *ImportSummary) InsertedRows() int64 {
	var total int64
	for _, r := range s.Results {
		total += r.InsertedRows
	}
	return total
}

// RowCountMismatch describes a table whose row count differs from its source file
type RowCountMismatch struct {
	Expected int64
	Actual   int64
}

// VerificationResult represents the result of the verification process
type VerificationResult struct {
	Success          bool
	MissingTables    []string
	MismatchedTables map[string]RowCountMismatch
}
