package tabular

import (
	"fmt"
	"path/filepath"

	"github.com/vitebski/tabular-seeder/pkg/models"
)

// LoadFile reads a supported file fully into memory
func LoadFile(path string) (*models.Table, error) {
	switch format := DetectFormat(path); format {
	case models.FormatCSV:
		return ReadCSVFile(path)
	case models.FormatXLSX:
		return ReadXLSXFile(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %q", filepath.Ext(path))
	}
}
