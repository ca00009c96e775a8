package tabular

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vitebski/tabular-seeder/pkg/models"
	"github.com/xuri/excelize/v2"
)

// builtInDateFormats are the number format ids Excel reserves for dates and times
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	45: true, 46: true, 47: true,
}

// quoted literals and [color]/[$-locale] sections never carry date tokens
var numFmtNoise = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]`)

// ReadXLSXFile loads the first sheet of a workbook. The first non-empty row is the header.
func ReadXLSXFile(path string) (*models.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found in XLSX file")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %s: %w", sheet, err)
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook properties: %w", err)
	}

	reader := &sheetReader{file: f, sheet: sheet, dateStyles: make(map[int]bool)}
	if props.Date1904 != nil {
		reader.date1904 = *props.Date1904
	}

	var (
		header  []string
		records [][]string
	)
	for r, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if header == nil {
			header = append([]string(nil), row...)
			continue
		}

		record := make([]string, len(row))
		for c, raw := range row {
			value, err := reader.cellValue(c+1, r+1, raw)
			if err != nil {
				return nil, err
			}
			record[c] = value
		}
		records = append(records, record)
	}

	if header == nil {
		return nil, ErrNoColumns
	}

	// Trailing blank header cells are trimmed by excelize; unnamed columns are restored here
	for _, record := range records {
		for len(header) < len(record) {
			header = append(header, "")
		}
	}

	return Build(header, records)
}

type sheetReader struct {
	file       *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

// cellValue renders a raw cell so that type inference sees dates and booleans
func (sr *sheetReader) cellValue(col, row int, raw string) (string, error) {
	if raw == "" {
		return raw, nil
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}

	cellType, err := sr.file.GetCellType(sr.sheet, cell)
	if err != nil {
		return "", fmt.Errorf("cell %s: %w", cell, err)
	}
	if cellType == excelize.CellTypeBool {
		if raw == "1" || strings.EqualFold(raw, "true") {
			return "TRUE", nil
		}
		return "FALSE", nil
	}

	styleID, err := sr.file.GetCellStyle(sr.sheet, cell)
	if err != nil {
		return "", fmt.Errorf("cell %s: %w", cell, err)
	}
	isDate, err := sr.isDateStyle(styleID)
	if err != nil {
		return "", err
	}
	if !isDate {
		return raw, nil
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	t, err := excelize.ExcelDateToTime(serial, sr.date1904)
	if err != nil {
		return raw, nil
	}
	return t.Format("2006-01-02 15:04:05"), nil
}

func (sr *sheetReader) isDateStyle(styleID int) (bool, error) {
	if styleID == 0 {
		return false, nil
	}
	if isDate, ok := sr.dateStyles[styleID]; ok {
		return isDate, nil
	}

	style, err := sr.file.GetStyle(styleID)
	if err != nil {
		return false, fmt.Errorf("style %d: %w", styleID, err)
	}

	isDate := builtInDateFormats[style.NumFmt]
	if !isDate && style.CustomNumFmt != nil {
		isDate = isDateFormatCode(*style.CustomNumFmt)
	}

	sr.dateStyles[styleID] = isDate
	return isDate, nil
}

func isDateFormatCode(code string) bool {
	code = strings.ToLower(numFmtNoise.ReplaceAllString(code, ""))
	return strings.ContainsAny(code, "ydh")
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
