package generator

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Names of the files written by GenerateFiles
const (
	CustomersFile = "customers.csv"
	OrdersFile    = "orders.xlsx"
)

// CustomerHeader is the header row of the generated customers file
var CustomerHeader = []string{"Customer Name", "E-mail", "City", "Signup Date", "Lifetime Value", "Order Count", "Active", "Notes"}

// OrderHeader is the header row of the generated orders file
var OrderHeader = []string{"Order ID", "Customer E-mail", "Amount", "Ordered At", "Shipped"}

// SampleGenerator writes demo source files filled with fake data
type SampleGenerator struct {
	Faker     faker.Faker
	Rows      int
	NullRatio float64
	Logger    *logrus.Logger
}

// NewSampleGenerator creates a new sample generator
func NewSampleGenerator(rows int, logger *logrus.Logger) *SampleGenerator {
	return &SampleGenerator{
		Faker:     faker.New(),
		Rows:      rows,
		NullRatio: 0.1,
		Logger:    logger,
	}
}

// GenerateFiles writes customers.csv and orders.xlsx into dir and returns their paths
func (sg *SampleGenerator) GenerateFiles(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	customers := filepath.Join(dir, CustomersFile)
	if err := sg.WriteCustomersCSV(customers); err != nil {
		return nil, err
	}

	orders := filepath.Join(dir, OrdersFile)
	if err := sg.WriteOrdersXLSX(orders); err != nil {
		return nil, err
	}

	return []string{customers, orders}, nil
}

// WriteCustomersCSV writes a CSV file with every supported column type and some empty cells
func (sg *SampleGenerator) WriteCustomersCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CustomerHeader); err != nil {
		return err
	}

	for i := 0; i < sg.Rows; i++ {
		record := []string{
			sg.Faker.Person().Name(),
			sg.Faker.Internet().Email(),
			sg.Faker.Address().City(),
			sg.generateDateTime().Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(sg.generateAmount(), 'f', 2, 64),
			strconv.Itoa(rand.Intn(50)),
			strconv.FormatBool(rand.Intn(2) == 1),
			sg.nullable(sg.Faker.Lorem().Sentence(6)),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	sg.Logger.Infof("Wrote %d customers to %s", sg.Rows, path)
	return nil
}

// WriteOrdersXLSX writes a workbook whose first sheet holds order rows
func (sg *SampleGenerator) WriteOrdersXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(OrderHeader))
	for i, h := range OrderHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i := 0; i < sg.Rows; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		row := []interface{}{
			1000 + i,
			sg.Faker.Internet().Email(),
			sg.generateAmount(),
			sg.generateDateTime(),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}

		// Shipped stays empty for a share of the orders
		if sg.isNull() {
			continue
		}
		shippedCell, err := excelize.CoordinatesToCellName(len(OrderHeader), i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, shippedCell, rand.Intn(2) == 1); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}

	sg.Logger.Infof("Wrote %d orders to %s", sg.Rows, path)
	return nil
}

// generateDateTime generates a random datetime within the last year, truncated to seconds
func (sg *SampleGenerator) generateDateTime() time.Time {
	days := rand.Intn(365)
	seconds := rand.Intn(24 * 60 * 60)

	return time.Now().UTC().
		AddDate(0, 0, -days).
		Add(-time.Duration(seconds) * time.Second).
		Truncate(time.Second)
}

func (sg *SampleGenerator) generateAmount() float64 {
	return float64(int64(rand.Float64()*100000)) / 100
}

func (sg *SampleGenerator) isNull() bool {
	return rand.Float64() < sg.NullRatio
}

// nullable returns an empty cell for a share of the values
func (sg *SampleGenerator) nullable(value string) string {
	if sg.isNull() {
		return ""
	}
	return value
}
