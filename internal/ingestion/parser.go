package ingestion

import (
	"fmt"
	"path/filepath"
	"strings"

	coreerrors "github.com/aevon-lab/stockpile/internal/core/errors"
	"github.com/xuri/excelize/v2"
)

// DefaultHeaderRows is the number of report banner rows that precede the
// column header in exported inventory sheets.
const DefaultHeaderRows = 9

// RequiredColumns are the source columns every input sheet must carry.
var RequiredColumns = []string{"Brand", "Category", "Size", "MRP", "Color", "SalesQty", "PurchaseQty"}

// RawRow is one data row as read from the sheet, before cleaning.
type RawRow struct {
	Line        int
	Brand       string
	Category    string
	Size        string
	MRP         string
	Color       string
	SalesQty    string
	PurchaseQty string
}

// columnMap holds the position of every required column in the header row.
type columnMap struct {
	brand, category, size, mrp, color, salesQty, purchaseQty int
}

func (m columnMap) row(cells []string, line int) RawRow {
	cell := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return cells[i]
	}
	return RawRow{
		Line:        line,
		Brand:       cell(m.brand),
		Category:    cell(m.category),
		Size:        cell(m.size),
		MRP:         cell(m.mrp),
		Color:       cell(m.color),
		SalesQty:    cell(m.salesQty),
		PurchaseQty: cell(m.purchaseQty),
	}
}

// headerKey folds a header cell so "Sales Qty", "sales_qty" and "SalesQty"
// resolve to the same column.
func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "").Replace(s)
}

// mapColumns resolves the required columns against the header row once.
func mapColumns(file string, header []string) (columnMap, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		k := headerKey(h)
		if _, seen := index[k]; !seen && k != "" {
			index[k] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := index[headerKey(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	m := columnMap{
		brand:       lookup("Brand"),
		category:    lookup("Category"),
		size:        lookup("Size"),
		mrp:         lookup("MRP"),
		color:       lookup("Color"),
		salesQty:    lookup("SalesQty"),
		purchaseQty: lookup("PurchaseQty"),
	}
	if len(missing) > 0 {
		return columnMap{}, &coreerrors.ValidationError{File: file, Missing: missing}
	}
	return m, nil
}

// ParseWorkbook reads the first sheet of an input workbook. The first
// headerRows rows are skipped and the next row is the column header. Fully
// blank rows are ignored and a trailing "grand total" row from the source
// system is dropped.
func ParseWorkbook(path string, headerRows int) ([]RawRow, error) {
	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(name), ".xls") {
		return nil, &coreerrors.ValidationError{File: name, Reason: "legacy .xls workbooks are not supported, re-export as .xlsx"}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &coreerrors.ValidationError{File: name, Reason: fmt.Sprintf("unreadable workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &coreerrors.ValidationError{File: name, Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &coreerrors.ValidationError{File: name, Reason: fmt.Sprintf("read sheet %s: %v", sheets[0], err)}
	}
	if headerRows < 0 {
		headerRows = 0
	}
	if len(rows) <= headerRows {
		return nil, &coreerrors.ValidationError{File: name, Reason: fmt.Sprintf("expected a header at row %d, sheet has %d rows", headerRows+1, len(rows))}
	}

	cols, err := mapColumns(name, rows[headerRows])
	if err != nil {
		return nil, err
	}

	out := make([]RawRow, 0, len(rows)-headerRows-1)
	for i := headerRows + 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		out = append(out, cols.row(rows[i], i+1))
	}

	if n := len(out); n > 0 {
		last := rows[out[n-1].Line-1]
		if len(last) > 0 && strings.Contains(strings.ToLower(last[0]), "grand total") {
			out = out[:n-1]
		}
	}
	return out, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
