package tabular

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/tabular-seeder/pkg/models"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves rows to the first sheet of a new workbook, starting at startRow
func writeWorkbook(t *testing.T, startRow int, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for c, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, startRow+i)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadXLSXFile(t *testing.T) {
	ordered := time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC)

	path := writeWorkbook(t, 1, [][]interface{}{
		{"Order ID", "Customer", "Amount", "Ordered At", "Shipped"},
		{1001, "ann@example.com", 19.5, ordered, true},
		{1002, "bob@example.com", 7.25, ordered.AddDate(0, 0, 1), nil},
		{1003, nil, 3, ordered.AddDate(0, 0, 2), false},
	})

	table, err := ReadXLSXFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"order_id", "customer", "amount", "ordered_at", "shipped"}, table.ColumnNames())
	assert.Equal(t, models.TypeInteger, table.Columns[0].Type)
	assert.Equal(t, models.TypeText, table.Columns[1].Type)
	assert.Equal(t, models.TypeFloat, table.Columns[2].Type)
	assert.Equal(t, models.TypeTimestamp, table.Columns[3].Type)
	assert.Equal(t, models.TypeBoolean, table.Columns[4].Type)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, int64(1001), table.Rows[0][0])
	assert.Equal(t, ordered, table.Rows[0][3])
	assert.Equal(t, true, table.Rows[0][4])
	assert.Nil(t, table.Rows[1][4], "trailing empty cell is NULL")
	assert.Nil(t, table.Rows[2][1], "empty cell is NULL")
	assert.Equal(t, 3.0, table.Rows[2][2])
}

func TestReadXLSXFileSkipsLeadingBlankRows(t *testing.T) {
	path := writeWorkbook(t, 3, [][]interface{}{
		{"Name", "Qty"},
		{"bolt", 10},
	})

	table, err := ReadXLSXFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "qty"}, table.ColumnNames())
	assert.Equal(t, [][]interface{}{{"bolt", int64(10)}}, table.Rows)
}

func TestReadXLSXFileEmptySheet(t *testing.T) {
	path := writeWorkbook(t, 1, nil)

	_, err := ReadXLSXFile(path)
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestReadXLSXFileBlankTrailingHeaderCell(t *testing.T) {
	path := writeWorkbook(t, 1, [][]interface{}{
		{"a", "b"},
		{1, 2, 3},
		{4, 5},
	})

	table, err := ReadXLSXFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "unnamed:_2"}, table.ColumnNames())
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, table.Rows[0])
	assert.Equal(t, []interface{}{int64(4), int64(5), nil}, table.Rows[1])
}

func TestReadXLSXFileDate1904(t *testing.T) {
	ordered := time.Date(2023, 11, 2, 9, 45, 0, 0, time.UTC)

	f := excelize.NewFile()
	defer f.Close()

	date1904 := true
	require.NoError(t, f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &date1904}))

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Ordered At"))
	require.NoError(t, f.SetCellValue(sheet, "A2", ordered))

	path := filepath.Join(t.TempDir(), "mac.xlsx")
	require.NoError(t, f.SaveAs(path))

	table, err := ReadXLSXFile(path)
	require.NoError(t, err)
	assert.Equal(t, models.TypeTimestamp, table.Columns[0].Type)
	assert.Equal(t, ordered, table.Rows[0][0])
}

func TestIsDateFormatCode(t *testing.T) {
	assert.True(t, isDateFormatCode("yyyy-mm-dd hh:mm:ss"))
	assert.True(t, isDateFormatCode("[$-409]d-mmm-yy"))
	assert.False(t, isDateFormatCode("0.00"))
	assert.False(t, isDateFormatCode(`#,##0 "days"`))
	assert.False(t, isDateFormatCode("[Red]0.00"))
}

func TestLoadFile(t *testing.T) {
	_, err := LoadFile("notes.txt")
	assert.Error(t, err)
}
