package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName  = "data"
	dateLayout = "2006-01-02 15:04:05"
)

// Columns is the header row of every workbook this package writes.
var Columns = []string{
	"Brand", "Category", "Size", "MRP", "Color", "SalesQty", "PurchaseQty", "date", "Week", "Month",
}

// WriteWorkbook writes records to path, replacing any existing file.
// The file is written beside path first and renamed into place.
func WriteWorkbook(path string, records []inventory.Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".workbook-*")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := EncodeWorkbook(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename workbook into place: %w", err)
	}
	return nil
}

// EncodeWorkbook streams records as a single-sheet xlsx document to w.
func EncodeWorkbook(w io.Writer, records []inventory.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []interface{}{
			r.Brand,
			r.Category,
			r.Size,
			r.MRP.InexactFloat64(),
			r.Color,
			r.SalesQty,
			r.PurchaseQty,
			r.Date.Format(dateLayout),
			r.Week,
			r.Month,
		}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadWorkbook loads records from a workbook produced by WriteWorkbook.
// Date values are interpreted in UTC.
func ReadWorkbook(path string) ([]inventory.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows from %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range Columns {
		if _, ok := index[strings.ToLower(c)]; !ok {
			return nil, fmt.Errorf("workbook %s: missing column %q", filepath.Base(path), c)
		}
	}

	// col is a lowercased header name.
	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]inventory.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		date, err := time.Parse(dateLayout, cell(row, "date"))
		if err != nil {
			return nil, fmt.Errorf("workbook %s row %d: %w", filepath.Base(path), n+2, err)
		}
		mrp, _ := inventory.ParseDecimal(cell(row, "mrp"))
		sales, _ := inventory.ParseQuantity(cell(row, "salesqty"))
		purchases, _ := inventory.ParseQuantity(cell(row, "purchaseqty"))
		records = append(records, inventory.Record{
			Brand:       cell(row, "brand"),
			Category:    cell(row, "category"),
			Size:        cell(row, "size"),
			MRP:         mrp,
			Color:       cell(row, "color"),
			SalesQty:    sales,
			PurchaseQty: purchases,
			Date:        date,
			Week:        cell(row, "week"),
			Month:       cell(row, "month"),
		})
	}
	return records, nil
}
