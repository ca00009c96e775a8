package generator

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/tabular-seeder/internal/tabular"
	"github.com/vitebski/tabular-seeder/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func TestNewSampleGenerator(t *testing.T) {
	logger := createTestLogger()
	sg := NewSampleGenerator(10, logger)

	assert.Equal(t, 10, sg.Rows)
	assert.Equal(t, logger, sg.Logger)
	assert.InDelta(t, 0.1, sg.NullRatio, 1e-9)
}

func TestGenerateFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "src")
	sg := NewSampleGenerator(40, createTestLogger())

	files, err := sg.GenerateFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, CustomersFile), filepath.Join(dir, OrdersFile)}, files)

	customers, err := tabular.LoadFile(files[0])
	require.NoError(t, err)
	assert.Len(t, customers.Rows, 40)
	assert.Equal(t, []string{
		"customer_name", "e_mail", "city", "signup_date", "lifetime_value", "order_count", "active", "notes",
	}, customers.ColumnNames())

	customerTypes := map[string]models.ColumnType{}
	for _, c := range customers.Columns {
		customerTypes[c.Name] = c.Type
	}
	assert.Equal(t, models.TypeText, customerTypes["customer_name"])
	assert.Equal(t, models.TypeTimestamp, customerTypes["signup_date"])
	assert.Equal(t, models.TypeInteger, customerTypes["order_count"])
	assert.Equal(t, models.TypeBoolean, customerTypes["active"])

	orders, err := tabular.LoadFile(files[1])
	require.NoError(t, err)
	assert.Len(t, orders.Rows, 40)
	assert.Equal(t, []string{"order_id", "customer_e_mail", "amount", "ordered_at", "shipped"}, orders.ColumnNames())
	assert.Equal(t, models.TypeInteger, orders.Columns[0].Type)
	assert.Equal(t, models.TypeTimestamp, orders.Columns[3].Type)
}

func TestNullable(t *testing.T) {
	sg := NewSampleGenerator(1, createTestLogger())

	sg.NullRatio = 0
	assert.Equal(t, "value", sg.nullable("value"))

	sg.NullRatio = 1
	assert.Equal(t, "", sg.nullable("value"))
}

func TestGenerateDateTime(t *testing.T) {
	sg := NewSampleGenerator(1, createTestLogger())

	for i := 0; i < 20; i++ {
		ts := sg.generateDateTime()
		assert.Zero(t, ts.Nanosecond(), "timestamps are truncated to seconds")
		assert.Equal(t, "UTC", ts.Location().String())
	}
}
