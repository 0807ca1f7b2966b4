package ingestion

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var sourceHeader = []interface{}{"Brand", "Category", "Size", "MRP", "Color", "SalesQty", "PurchaseQty"}

// writeSourceWorkbook builds an export in the shape the stores upload:
// DefaultHeaderRows banner lines, a header row, then data rows.
func writeSourceWorkbook(t *testing.T, dir, name string, header []interface{}, rows ...[]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	line := 1
	setRow := func(values []interface{}) {
		cell, err := excelize.CoordinatesToCellName(1, line)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
		line++
	}

	for i := 0; i < DefaultHeaderRows; i++ {
		setRow([]interface{}{"Stock & Sales Report"})
	}
	setRow(header)
	for _, r := range rows {
		setRow(r)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}
