package ingestion

import (
	"strings"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
)

// CleanStats carries the before/after figures logged for every file.
type CleanStats struct {
	Rows             int   `json:"rows"`
	RawSales         int64 `json:"raw_sales"`
	RawPurchases     int64 `json:"raw_purchases"`
	NonZeroSales     int   `json:"non_zero_sales"`
	NonZeroPurchases int   `json:"non_zero_purchases"`
	NonNumeric       int   `json:"non_numeric"`
	Negative         int   `json:"negative"`
	CleanSales       int64 `json:"clean_sales"`
	CleanPurchases   int64 `json:"clean_purchases"`
}

// Clean coerces raw rows into records stamped at at. Text is lowercased and
// trimmed with blanks becoming "unknown"; a blank or unparseable MRP becomes
// 0; non-numeric and negative quantities become 0.
func Clean(rows []RawRow, at time.Time) ([]inventory.Record, CleanStats) {
	stats := CleanStats{Rows: len(rows)}
	records := make([]inventory.Record, 0, len(rows))

	quantity := func(raw string, total *int64, nonZero *int) int64 {
		q, ok := inventory.ParseQuantity(raw)
		if !ok {
			if strings.TrimSpace(raw) != "" {
				stats.NonNumeric++
			}
			return 0
		}
		*total += q
		if q != 0 {
			*nonZero++
		}
		if q < 0 {
			stats.Negative++
			return 0
		}
		return q
	}

	for _, row := range rows {
		mrp, _ := inventory.ParseDecimal(row.MRP)
		r := inventory.Record{
			Brand:       inventory.NormalizeText(row.Brand),
			Category:    inventory.NormalizeText(row.Category),
			Size:        inventory.NormalizeText(row.Size),
			MRP:         mrp,
			Color:       inventory.NormalizeText(row.Color),
			SalesQty:    quantity(row.SalesQty, &stats.RawSales, &stats.NonZeroSales),
			PurchaseQty: quantity(row.PurchaseQty, &stats.RawPurchases, &stats.NonZeroPurchases),
		}
		r.Stamp(at)
		records = append(records, r)
	}

	stats.CleanSales, stats.CleanPurchases = inventory.Totals(records)
	return records, stats
}
