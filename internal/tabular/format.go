// Package tabular loads CSV and XLSX files into memory as typed tables.
package tabular

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vitebski/tabular-seeder/pkg/models"
)

// DefaultTablePrefix is prepended to the upper-cased file stem when no table name is given.
const DefaultTablePrefix = "TAB_"

var identifierReplacer = strings.NewReplacer(" ", "_", "-", "_", ".", "_")

// DetectFormat returns the format implied by the file extension (case-insensitive)
func DetectFormat(path string) models.FileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return models.FormatCSV
	case ".xlsx":
		return models.FormatXLSX
	default:
		return models.FormatUnknown
	}
}

// TableNameForFile derives a table name from the file stem, e.g. "sales.csv" -> "TAB_SALES"
func TableNameForFile(path, prefix string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return prefix + strings.ToUpper(stem)
}

// SanitizeIdentifier lower-cases a column name and replaces spaces, dashes and dots with underscores
func SanitizeIdentifier(name string) string {
	return identifierReplacer.Replace(strings.ToLower(name))
}

// SanitizeHeader turns a raw header row into unique sanitized column names.
// Empty cells are named "unnamed:_<index>"; repeated names get _1, _2, ... suffixes.
func SanitizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))

	for i, raw := range header {
		if strings.TrimSpace(raw) == "" {
			raw = "Unnamed: " + strconv.Itoa(i)
		}
		name := SanitizeIdentifier(raw)

		if seen[name] {
			for n := 1; ; n++ {
				candidate := name + "_" + strconv.Itoa(n)
				if !seen[candidate] {
					name = candidate
					break
				}
			}
		}

		seen[name] = true
		names[i] = name
	}

	return names
}
