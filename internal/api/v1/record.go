package v1

import (
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/shopspring/decimal"
)

// Record is the wire form of one sales/inventory line.
type Record struct {
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Size        string          `json:"size"`
	MRP         decimal.Decimal `json:"mrp"`
	Color       string          `json:"color"`
	SalesQty    int64           `json:"sales_qty"`
	PurchaseQty int64           `json:"purchase_qty"`
	Date        time.Time       `json:"date"`
	Week        string          `json:"week"`
	Month       string          `json:"month"`
}

// FromRecord converts a domain record to its wire form.
func FromRecord(r inventory.Record) Record {
	return Record{
		Brand:       r.Brand,
		Category:    r.Category,
		Size:        r.Size,
		MRP:         r.MRP,
		Color:       r.Color,
		SalesQty:    r.SalesQty,
		PurchaseQty: r.PurchaseQty,
		Date:        r.Date,
		Week:        r.Week,
		Month:       r.Month,
	}
}

// FromRecords converts a slice, never returning nil.
func FromRecords(records []inventory.Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r))
	}
	return out
}

// SnapshotResponse is the body of GET /v1/rollups/:period.
type SnapshotResponse struct {
	Period      string    `json:"period"`
	Key         string    `json:"key"`
	RefreshedAt time.Time `json:"refreshed_at"`
	RowCount    int       `json:"row_count"`
	Total       *Record   `json:"total,omitempty"`
	Rows        []Record  `json:"rows"`
}

// GrandTotalResponse is the body of GET /v1/summary/grand-total.
type GrandTotalResponse struct {
	SalesQty    int64     `json:"sales_qty"`
	PurchaseQty int64     `json:"purchase_qty"`
	Week        string    `json:"week"`
	Month       string    `json:"month"`
	ComputedAt  time.Time `json:"computed_at"`
}
